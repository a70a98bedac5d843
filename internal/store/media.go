package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/museodigital/catalog/internal/catalog"
)

// CreateThumbnail inserts a thumbnail record for an already-stored file.
func (s *Store) CreateThumbnail(ctx context.Context, path string) (catalog.Thumbnail, error) {
	var out catalog.Thumbnail
	err := s.pool.QueryRow(ctx,
		`INSERT INTO thumbnails (path) VALUES ($1) RETURNING id, path`, path,
	).Scan(&out.ID, &out.Path)
	if err != nil {
		return catalog.Thumbnail{}, fmt.Errorf("create thumbnail: %w", err)
	}
	return out, nil
}

// SetThumbnailDescriptor records the computed descriptor for a thumbnail.
func (s *Store) SetThumbnailDescriptor(ctx context.Context, id int64, descriptor string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE thumbnails SET descriptor = $2 WHERE id = $1`, id, descriptor)
	if err != nil {
		return fmt.Errorf("set thumbnail descriptor: %w", err)
	}
	return nil
}

// ThumbnailByPath looks up a thumbnail by its stored path.
func (s *Store) ThumbnailByPath(ctx context.Context, path string) (catalog.Thumbnail, error) {
	var out catalog.Thumbnail
	var desc pgtype.Text
	err := s.pool.QueryRow(ctx,
		`SELECT id, path, descriptor FROM thumbnails WHERE path = $1`, path,
	).Scan(&out.ID, &out.Path, &desc)
	if err != nil {
		return catalog.Thumbnail{}, notFound(err, "thumbnail", path)
	}
	out.Descriptor = desc.String
	return out, nil
}

// FindOrCreateModel returns the model with the given (texture, object,
// material) triple, creating it if absent. The triple is unique; a concurrent
// insert of the same triple is resolved by retrying the lookup.
func (s *Store) FindOrCreateModel(ctx context.Context, texture, object, material string) (catalog.Model, error) {
	var out catalog.Model
	err := s.pool.QueryRow(ctx,
		`SELECT id, texture, object, material FROM models
		 WHERE texture = $1 AND object = $2 AND material = $3`,
		texture, object, material,
	).Scan(&out.ID, &out.Texture, &out.Object, &out.Material)
	if err == nil {
		return out, nil
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO models (texture, object, material) VALUES ($1, $2, $3)
		 RETURNING id, texture, object, material`,
		texture, object, material,
	).Scan(&out.ID, &out.Texture, &out.Object, &out.Material)
	if err == nil {
		return out, nil
	}
	if isUniqueViolation(err) {
		// Lost the race; the triple now exists.
		retryErr := s.pool.QueryRow(ctx,
			`SELECT id, texture, object, material FROM models
			 WHERE texture = $1 AND object = $2 AND material = $3`,
			texture, object, material,
		).Scan(&out.ID, &out.Texture, &out.Object, &out.Material)
		if retryErr == nil {
			return out, nil
		}
	}
	return catalog.Model{}, fmt.Errorf("find or create model: %w", err)
}

// CreateImage inserts an image record, optionally linked to an artifact.
func (s *Store) CreateImage(ctx context.Context, artifactID *int64, path string) (catalog.Image, error) {
	var out catalog.Image
	err := s.pool.QueryRow(ctx,
		`INSERT INTO images (artifact_id, path) VALUES ($1, $2)
		 RETURNING id, artifact_id, path`,
		artifactID, path,
	).Scan(&out.ID, &out.ArtifactID, &out.Path)
	if err != nil {
		return catalog.Image{}, fmt.Errorf("create image: %w", err)
	}
	return out, nil
}

// SetImageDescriptor records the computed descriptor for an image.
func (s *Store) SetImageDescriptor(ctx context.Context, id int64, descriptor string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE images SET descriptor = $2 WHERE id = $1`, id, descriptor)
	if err != nil {
		return fmt.Errorf("set image descriptor: %w", err)
	}
	return nil
}

// ImagesByArtifact returns the images linked to an artifact.
func (s *Store) ImagesByArtifact(ctx context.Context, artifactID int64) ([]catalog.Image, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, artifact_id, path FROM images WHERE artifact_id = $1 ORDER BY id`,
		artifactID)
	if err != nil {
		return nil, fmt.Errorf("images by artifact: %w", err)
	}
	defer rows.Close()

	var out []catalog.Image
	for rows.Next() {
		var img catalog.Image
		if err := rows.Scan(&img.ID, &img.ArtifactID, &img.Path); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// ImageByPath looks up an image by its stored path.
func (s *Store) ImageByPath(ctx context.Context, path string) (catalog.Image, error) {
	var out catalog.Image
	err := s.pool.QueryRow(ctx,
		`SELECT id, artifact_id, path FROM images WHERE path = $1`, path,
	).Scan(&out.ID, &out.ArtifactID, &out.Path)
	if err != nil {
		return catalog.Image{}, notFound(err, "image", path)
	}
	return out, nil
}

// LinkImage attaches an image to an artifact; a nil artifactID detaches it.
func (s *Store) LinkImage(ctx context.Context, imageID int64, artifactID *int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE images SET artifact_id = $2 WHERE id = $1`, imageID, artifactID)
	if err != nil {
		return fmt.Errorf("link image: %w", err)
	}
	return nil
}

// UnlinkImages detaches all images from an artifact. Used during update so
// the caller can relink only the images that should be kept.
func (s *Store) UnlinkImages(ctx context.Context, artifactID int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE images SET artifact_id = NULL WHERE artifact_id = $1`, artifactID)
	if err != nil {
		return fmt.Errorf("unlink images: %w", err)
	}
	return nil
}
