package store

import (
	"database/sql"

	"github.com/pkg/errors"
)

// UpsertTool creates or updates a tool registration (spec §9 "registry
// dictionaries... model these as table-backed maps with foreign-key
// integrity"). taskClass must already exist (invariant 7).
func (s *Store) UpsertTool(name, taskClass, description string) (*Tool, error) {
	if name == "" || taskClass == "" {
		return nil, Invalid("tool.invalid", "name and task_class are required")
	}
	if _, err := s.GetTaskClass(taskClass); err != nil {
		return nil, err
	}
	_, err := s.writer.Exec(
		`INSERT INTO tools (Name, TaskClass, Description) VALUES (?, ?, ?)
		 ON CONFLICT(Name) DO UPDATE SET TaskClass = excluded.TaskClass, Description = excluded.Description`,
		name, taskClass, description,
	)
	if err != nil {
		return nil, Internal(errors.Wrap(err, "upsert tool"))
	}
	return &Tool{Name: name, TaskClass: taskClass, Description: description}, nil
}

// GetTool returns a Tool by name.
func (s *Store) GetTool(name string) (*Tool, error) {
	row := s.reader.QueryRow(`SELECT Name, TaskClass, Description FROM tools WHERE Name = ?`, name)
	t := &Tool{}
	var desc sql.NullString
	if err := row.Scan(&t.Name, &t.TaskClass, &desc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFound("tool", name)
		}
		return nil, Internal(err)
	}
	t.Description = desc.String
	return t, nil
}

// ListTools returns every registered tool.
func (s *Store) ListTools() ([]*Tool, error) {
	rows, err := s.reader.Query(`SELECT Name, TaskClass, Description FROM tools ORDER BY Name`)
	if err != nil {
		return nil, Internal(err)
	}
	defer rows.Close()

	var out []*Tool
	for rows.Next() {
		t := &Tool{}
		var desc sql.NullString
		if err := rows.Scan(&t.Name, &t.TaskClass, &desc); err != nil {
			return nil, Internal(err)
		}
		t.Description = desc.String
		out = append(out, t)
	}
	return out, Internal(rows.Err())
}

// DeleteTool refuses if any task still references it (invariant 6).
func (s *Store) DeleteTool(name string) error {
	if _, err := s.GetTool(name); err != nil {
		return err
	}
	var refs int
	if err := s.reader.QueryRow(`SELECT COUNT(*) FROM tasks WHERE ToolName = ?`, name).Scan(&refs); err != nil {
		return Internal(err)
	}
	if refs > 0 {
		return Conflict("tool.in_use", "tool is referenced by existing tasks")
	}
	if _, err := s.writer.Exec(`DELETE FROM tools WHERE Name = ?`, name); err != nil {
		return Internal(errors.Wrap(err, "delete tool"))
	}
	return nil
}
