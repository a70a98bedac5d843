package store

import (
	"context"
	"fmt"

	"github.com/museodigital/catalog/internal/catalog"
)

// Shape looks up a shape by its exact name.
func (s *Store) Shape(ctx context.Context, name string) (catalog.Shape, error) {
	var out catalog.Shape
	err := s.pool.QueryRow(ctx,
		`SELECT id, name FROM shapes WHERE name = $1`, name,
	).Scan(&out.ID, &out.Name)
	if err != nil {
		return catalog.Shape{}, notFound(err, "shape", name)
	}
	return out, nil
}

// Culture looks up a culture by its exact name.
func (s *Store) Culture(ctx context.Context, name string) (catalog.Culture, error) {
	var out catalog.Culture
	err := s.pool.QueryRow(ctx,
		`SELECT id, name FROM cultures WHERE name = $1`, name,
	).Scan(&out.ID, &out.Name)
	if err != nil {
		return catalog.Culture{}, notFound(err, "culture", name)
	}
	return out, nil
}

// Tag looks up a tag by its exact name.
func (s *Store) Tag(ctx context.Context, name string) (catalog.Tag, error) {
	var out catalog.Tag
	err := s.pool.QueryRow(ctx,
		`SELECT id, name FROM tags WHERE name = $1`, name,
	).Scan(&out.ID, &out.Name)
	if err != nil {
		return catalog.Tag{}, notFound(err, "tag", name)
	}
	return out, nil
}

// ListShapes returns all shapes ordered by id.
func (s *Store) ListShapes(ctx context.Context) ([]catalog.Shape, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM shapes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list shapes: %w", err)
	}
	defer rows.Close()

	var out []catalog.Shape
	for rows.Next() {
		var sh catalog.Shape
		if err := rows.Scan(&sh.ID, &sh.Name); err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

// ListCultures returns all cultures ordered by id.
func (s *Store) ListCultures(ctx context.Context) ([]catalog.Culture, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM cultures ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list cultures: %w", err)
	}
	defer rows.Close()

	var out []catalog.Culture
	for rows.Next() {
		var c catalog.Culture
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListTags returns all tags ordered by id.
func (s *Store) ListTags(ctx context.Context) ([]catalog.Tag, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM tags ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var out []catalog.Tag
	for rows.Next() {
		var tg catalog.Tag
		if err := rows.Scan(&tg.ID, &tg.Name); err != nil {
			return nil, err
		}
		out = append(out, tg)
	}
	return out, rows.Err()
}

// ListInstitutions returns all institutions ordered by id.
func (s *Store) ListInstitutions(ctx context.Context) ([]catalog.Institution, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM institutions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list institutions: %w", err)
	}
	defer rows.Close()

	var out []catalog.Institution
	for rows.Next() {
		var in catalog.Institution
		if err := rows.Scan(&in.ID, &in.Name); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// CreateInstitution inserts a new institution.
func (s *Store) CreateInstitution(ctx context.Context, name string) (catalog.Institution, error) {
	var out catalog.Institution
	err := s.pool.QueryRow(ctx,
		`INSERT INTO institutions (name) VALUES ($1) RETURNING id, name`, name,
	).Scan(&out.ID, &out.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.Institution{}, fmt.Errorf("institution %q already exists", name)
		}
		return catalog.Institution{}, fmt.Errorf("create institution: %w", err)
	}
	return out, nil
}
