package roster

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/karungo/studentid/internal/types"
)

// Filter keeps the students for which expression evaluates to true.
// Fields are addressed by name, e.g. `Course == "DIP" && ExpiryDate.Year() > 2026`.
// An empty expression keeps everyone.
func Filter(students []types.Student, expression string) ([]types.Student, error) {
	if strings.TrimSpace(expression) == "" {
		return students, nil
	}

	program, err := expr.Compile(expression, expr.Env(types.Student{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expression, err)
	}

	var out []types.Student
	for _, s := range students {
		res, err := expr.Run(program, s)
		if err != nil {
			return nil, fmt.Errorf("evaluate filter for %s: %w", s.AdmissionNumber, err)
		}
		if res.(bool) {
			out = append(out, s)
		}
	}
	return out, nil
}
