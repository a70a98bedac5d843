package store

import (
	"context"
	"fmt"

	"github.com/museodigital/catalog/internal/catalog"
)

// UserByToken resolves an authentication token to its user.
func (s *Store) UserByToken(ctx context.Context, token string) (catalog.User, error) {
	var out catalog.User
	err := s.pool.QueryRow(ctx,
		`SELECT u.id, u.username, u.full_name, u.email, u.rut, u.role, u.institution_id
		 FROM users u
		 JOIN user_tokens t ON t.user_id = u.id
		 WHERE t.token = $1`, token,
	).Scan(&out.ID, &out.Username, &out.FullName, &out.Email, &out.Rut,
		&out.Role, &out.InstitutionID)
	if err != nil {
		return catalog.User{}, notFound(err, "token", "")
	}
	return out, nil
}

// CreateRequester records a download request for an artifact.
func (s *Store) CreateRequester(ctx context.Context, r catalog.Requester) (catalog.Requester, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO artifact_requesters
		   (name, rut, email, comments, is_registered, institution_id, artifact_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		r.Name, r.Rut, r.Email, r.Comments, r.IsRegistered, r.InstitutionID, r.ArtifactID,
	).Scan(&r.ID)
	if err != nil {
		return catalog.Requester{}, fmt.Errorf("create requester: %w", err)
	}
	return r, nil
}
