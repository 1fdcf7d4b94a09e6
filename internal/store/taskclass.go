package store

import (
	"database/sql"

	"github.com/pkg/errors"
)

// UpsertTaskClass creates or updates a task class by name (used by the
// config resolver to seed task_classes.<NAME>.timeout from YAML — spec §6.2).
func (s *Store) UpsertTaskClass(name string, defaultTimeoutSeconds int, description string) (*TaskClass, error) {
	if name == "" || defaultTimeoutSeconds <= 0 {
		return nil, Invalid("task_class.invalid", "name and a positive default_timeout_seconds are required")
	}
	_, err := s.writer.Exec(
		`INSERT INTO task_classes (Name, DefaultTimeoutSeconds, Description) VALUES (?, ?, ?)
		 ON CONFLICT(Name) DO UPDATE SET DefaultTimeoutSeconds = excluded.DefaultTimeoutSeconds, Description = excluded.Description`,
		name, defaultTimeoutSeconds, description,
	)
	if err != nil {
		return nil, Internal(errors.Wrap(err, "upsert task class"))
	}
	return &TaskClass{Name: name, DefaultTimeoutSeconds: defaultTimeoutSeconds, Description: description}, nil
}

// GetTaskClass returns a TaskClass by name.
func (s *Store) GetTaskClass(name string) (*TaskClass, error) {
	row := s.reader.QueryRow(`SELECT Name, DefaultTimeoutSeconds, Description FROM task_classes WHERE Name = ?`, name)
	tc := &TaskClass{}
	var desc sql.NullString
	if err := row.Scan(&tc.Name, &tc.DefaultTimeoutSeconds, &desc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFound("task_class", name)
		}
		return nil, Internal(err)
	}
	tc.Description = desc.String
	return tc, nil
}

// ListTaskClasses returns every registered task class.
func (s *Store) ListTaskClasses() ([]*TaskClass, error) {
	rows, err := s.reader.Query(`SELECT Name, DefaultTimeoutSeconds, Description FROM task_classes ORDER BY Name`)
	if err != nil {
		return nil, Internal(err)
	}
	defer rows.Close()

	var out []*TaskClass
	for rows.Next() {
		tc := &TaskClass{}
		var desc sql.NullString
		if err := rows.Scan(&tc.Name, &tc.DefaultTimeoutSeconds, &desc); err != nil {
			return nil, Internal(err)
		}
		tc.Description = desc.String
		out = append(out, tc)
	}
	return out, Internal(rows.Err())
}

// DeleteTaskClass refuses if any task still references it (invariant 6).
func (s *Store) DeleteTaskClass(name string) error {
	if _, err := s.GetTaskClass(name); err != nil {
		return err
	}
	var refs int
	if err := s.reader.QueryRow(`SELECT COUNT(*) FROM tasks WHERE TaskClass = ?`, name).Scan(&refs); err != nil {
		return Internal(err)
	}
	if refs > 0 {
		return Conflict("task_class.in_use", "task class is referenced by existing tasks")
	}
	var toolRefs int
	if err := s.reader.QueryRow(`SELECT COUNT(*) FROM tools WHERE TaskClass = ?`, name).Scan(&toolRefs); err != nil {
		return Internal(err)
	}
	if toolRefs > 0 {
		return Conflict("task_class.in_use", "task class is referenced by existing tools")
	}
	if _, err := s.writer.Exec(`DELETE FROM task_classes WHERE Name = ?`, name); err != nil {
		return Internal(errors.Wrap(err, "delete task class"))
	}
	return nil
}
