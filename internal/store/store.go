package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/karungo/studentid/internal/types"
)

// Store manages the PostgreSQL connection holding imported rosters and card photos.
type Store struct {
	conn *pgx.Conn
}

// Batch is one run of the card pipeline.
type Batch struct {
	ID         string
	RosterPath string
	StartedAt  time.Time
	FinishedAt *time.Time
	Processed  int
	NoFace     int
	Failed     int
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS batches (
			id TEXT PRIMARY KEY,
			roster_path TEXT NOT NULL,
			started_at TIMESTAMPTZ DEFAULT NOW(),
			finished_at TIMESTAMPTZ,
			processed INT NOT NULL DEFAULT 0,
			no_face INT NOT NULL DEFAULT 0,
			failed INT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS students (
			admission_number TEXT PRIMARY KEY,
			no TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			gender TEXT NOT NULL DEFAULT '',
			id_number TEXT NOT NULL DEFAULT '',
			nationality TEXT NOT NULL DEFAULT '',
			course TEXT NOT NULL,
			expiry_date DATE NOT NULL,
			photo_path TEXT NOT NULL DEFAULT '',
			batch_id TEXT REFERENCES batches(id) ON DELETE SET NULL,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS students_course_idx ON students (course);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// CreateBatch registers a new pipeline run.
func (s *Store) CreateBatch(ctx context.Context, id, rosterPath string) error {
	_, err := s.conn.Exec(ctx, `INSERT INTO batches (id, roster_path, started_at) VALUES ($1, $2, NOW())`, id, rosterPath)
	return err
}

// FinishBatch stores the outcome counters of a run.
func (s *Store) FinishBatch(ctx context.Context, id string, processed, noFace, failed int) error {
	tag, err := s.conn.Exec(ctx, `
		UPDATE batches SET finished_at = NOW(), processed = $2, no_face = $3, failed = $4
		WHERE id = $1
	`, id, processed, noFace, failed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("batch %s not found", id)
	}
	return nil
}

// GetBatch fetches one run.
func (s *Store) GetBatch(ctx context.Context, id string) (*Batch, error) {
	var b Batch
	err := s.conn.QueryRow(ctx, `
		SELECT id, roster_path, started_at, finished_at, processed, no_face, failed
		FROM batches WHERE id = $1
	`, id).Scan(&b.ID, &b.RosterPath, &b.StartedAt, &b.FinishedAt, &b.Processed, &b.NoFace, &b.Failed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("batch %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpsertStudents inserts or refreshes roster rows in one transaction.
// An existing photo_path is kept when the incoming row has none.
func (s *Store) UpsertStudents(ctx context.Context, batchID string, students []types.Student) error {
	if len(students) == 0 {
		return nil
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var batch *string
	if batchID != "" {
		batch = &batchID
	}

	b := &pgx.Batch{}
	for _, st := range students {
		b.Queue(`
			INSERT INTO students (admission_number, no, name, gender, id_number, nationality, course, expiry_date, photo_path, batch_id, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
			ON CONFLICT (admission_number) DO UPDATE SET
				no = EXCLUDED.no,
				name = EXCLUDED.name,
				gender = EXCLUDED.gender,
				id_number = EXCLUDED.id_number,
				nationality = EXCLUDED.nationality,
				course = EXCLUDED.course,
				expiry_date = EXCLUDED.expiry_date,
				photo_path = COALESCE(NULLIF(EXCLUDED.photo_path, ''), students.photo_path),
				batch_id = EXCLUDED.batch_id,
				updated_at = NOW()
		`, st.AdmissionNumber, st.No, st.Name, st.Gender, st.IDNumber, st.Nationality, st.Course, st.ExpiryDate, st.PhotoPath, batch)
	}
	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("upsert students: %w", err)
	}
	return tx.Commit(ctx)
}

// SetPhoto records the card photo for a student.
func (s *Store) SetPhoto(ctx context.Context, admission, photoPath string) error {
	tag, err := s.conn.Exec(ctx, `UPDATE students SET photo_path = $2, updated_at = NOW() WHERE admission_number = $1`, admission, photoPath)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("student %s not found", admission)
	}
	return nil
}

// ListStudents returns every stored student ordered by admission number.
func (s *Store) ListStudents(ctx context.Context) ([]types.Student, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT admission_number, no, name, gender, id_number, nationality, course, expiry_date, photo_path
		FROM students ORDER BY admission_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []types.Student
	for rows.Next() {
		var st types.Student
		if err := rows.Scan(&st.AdmissionNumber, &st.No, &st.Name, &st.Gender, &st.IDNumber, &st.Nationality, &st.Course, &st.ExpiryDate, &st.PhotoPath); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS students CASCADE;
		DROP TABLE IF EXISTS batches CASCADE;
	`)
	return err
}
