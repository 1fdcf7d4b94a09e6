package store

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// EnsureDefaultProject creates prj_default if it doesn't exist yet. Called
// once at startup; the core never deletes it (spec §3).
func (s *Store) EnsureDefaultProject() (*Project, error) {
	p, err := s.GetProject(DefaultProjectID)
	if err == nil {
		return p, nil
	}
	if se, ok := AsError(err); !ok || se.Kind != KindNotFound {
		return nil, err
	}

	p = &Project{ID: DefaultProjectID, Name: "Default", CreatedAt: time.Now().UTC()}
	_, err = s.writer.Exec(`INSERT INTO projects (ID, Name, CreatedAt) VALUES (?, ?, ?)`, p.ID, p.Name, p.CreatedAt)
	if err != nil {
		return nil, Internal(errors.Wrap(err, "insert default project"))
	}
	return p, nil
}

// GetProject returns a Project by id.
func (s *Store) GetProject(id string) (*Project, error) {
	row := s.reader.QueryRow(`SELECT ID, Name, CreatedAt FROM projects WHERE ID = ?`, id)
	p := &Project{}
	if err := row.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFound("project", id)
		}
		return nil, Internal(err)
	}
	return p, nil
}
