package main

import "github.com/karungo/studentid/cmd"

func main() {
	cmd.Execute()
}
