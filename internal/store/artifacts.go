package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/museodigital/catalog/internal/catalog"
)

// CreateArtifact inserts an artifact and returns its id.
func (s *Store) CreateArtifact(ctx context.Context, p catalog.ArtifactParams) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO artifacts (description, thumbnail_id, model_id, shape_id, culture_id)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		p.Description, p.ThumbnailID, p.ModelID, p.ShapeID, p.CultureID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create artifact: %w", err)
	}
	return id, nil
}

// UpdateArtifact overwrites the artifact's persisted fields.
func (s *Store) UpdateArtifact(ctx context.Context, id int64, p catalog.ArtifactParams) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE artifacts
		 SET description = $2, thumbnail_id = $3, model_id = $4, shape_id = $5, culture_id = $6
		 WHERE id = $1`,
		id, p.Description, p.ThumbnailID, p.ModelID, p.ShapeID, p.CultureID)
	if err != nil {
		return fmt.Errorf("update artifact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("artifact %d: %w", id, catalog.ErrNotFound)
	}
	return nil
}

// AttachTags links tags to an artifact. Already-linked tags are skipped.
func (s *Store) AttachTags(ctx context.Context, artifactID int64, tagIDs []int64) error {
	for _, tagID := range tagIDs {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO artifact_tags (artifact_id, tag_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			artifactID, tagID)
		if err != nil {
			return fmt.Errorf("attach tag %d: %w", tagID, err)
		}
	}
	return nil
}

// ReplaceTags resets the artifact's tag set to exactly tagIDs.
func (s *Store) ReplaceTags(ctx context.Context, artifactID int64, tagIDs []int64) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM artifact_tags WHERE artifact_id = $1`, artifactID); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	return s.AttachTags(ctx, artifactID, tagIDs)
}

// Artifact loads an artifact with its vocabulary records, media and tags.
func (s *Store) Artifact(ctx context.Context, id int64) (catalog.Artifact, error) {
	var (
		out         catalog.Artifact
		thumbID     pgtype.Int8
		thumbPath   pgtype.Text
		modelID     pgtype.Int8
		texture     pgtype.Text
		object      pgtype.Text
		material    pgtype.Text
		shapeID     pgtype.Int8
		shapeName   pgtype.Text
		cultureID   pgtype.Int8
		cultureName pgtype.Text
	)

	err := s.pool.QueryRow(ctx,
		`SELECT a.id, a.description,
		        t.id, t.path,
		        m.id, m.texture, m.object, m.material,
		        sh.id, sh.name,
		        c.id, c.name
		 FROM artifacts a
		 LEFT JOIN thumbnails t ON t.id = a.thumbnail_id
		 LEFT JOIN models m ON m.id = a.model_id
		 LEFT JOIN shapes sh ON sh.id = a.shape_id
		 LEFT JOIN cultures c ON c.id = a.culture_id
		 WHERE a.id = $1`, id,
	).Scan(&out.ID, &out.Description,
		&thumbID, &thumbPath,
		&modelID, &texture, &object, &material,
		&shapeID, &shapeName,
		&cultureID, &cultureName)
	if err != nil {
		return catalog.Artifact{}, notFound(err, "artifact", strconv.FormatInt(id, 10))
	}

	if thumbID.Valid {
		out.Thumbnail = &catalog.Thumbnail{ID: thumbID.Int64, Path: thumbPath.String}
	}
	if modelID.Valid {
		out.Model = &catalog.Model{
			ID: modelID.Int64, Texture: texture.String,
			Object: object.String, Material: material.String,
		}
	}
	if shapeID.Valid {
		out.Shape = &catalog.Shape{ID: shapeID.Int64, Name: shapeName.String}
	}
	if cultureID.Valid {
		out.Culture = &catalog.Culture{ID: cultureID.Int64, Name: cultureName.String}
	}

	out.Tags, err = s.artifactTags(ctx, id)
	if err != nil {
		return catalog.Artifact{}, err
	}
	out.Images, err = s.ImagesByArtifact(ctx, id)
	if err != nil {
		return catalog.Artifact{}, err
	}
	if out.Tags == nil {
		out.Tags = []catalog.Tag{}
	}
	if out.Images == nil {
		out.Images = []catalog.Image{}
	}
	return out, nil
}

func (s *Store) artifactTags(ctx context.Context, artifactID int64) ([]catalog.Tag, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.name FROM tags t
		 JOIN artifact_tags at ON at.tag_id = t.id
		 WHERE at.artifact_id = $1 ORDER BY t.id`, artifactID)
	if err != nil {
		return nil, fmt.Errorf("artifact tags: %w", err)
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

// catalogFilter builds the WHERE clause shared by the catalog page query,
// the count query and the available-filters queries.
func catalogFilter(q catalog.CatalogQuery) (string, []any) {
	var conds []string
	var args []any

	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Query != "" {
		ph := next("%" + q.Query + "%")
		cond := fmt.Sprintf("(a.description ILIKE %s", ph)
		if id, err := strconv.ParseInt(q.Query, 10, 64); err == nil {
			cond += fmt.Sprintf(" OR a.id = %s", next(id))
		}
		cond += ")"
		conds = append(conds, cond)
	}
	if q.Culture != "" {
		conds = append(conds, fmt.Sprintf(
			"a.culture_id IN (SELECT id FROM cultures WHERE LOWER(name) = LOWER(%s))",
			next(q.Culture)))
	}
	if q.Shape != "" {
		conds = append(conds, fmt.Sprintf(
			"a.shape_id IN (SELECT id FROM shapes WHERE LOWER(name) = LOWER(%s))",
			next(q.Shape)))
	}
	for _, tag := range q.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		conds = append(conds, fmt.Sprintf(
			`EXISTS (SELECT 1 FROM artifact_tags at
			         JOIN tags tg ON tg.id = at.tag_id
			         WHERE at.artifact_id = a.id AND LOWER(tg.name) = LOWER(%s))`,
			next(tag)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Catalog returns one page of the filtered catalog plus the filter values
// still available within the filtered set.
func (s *Store) Catalog(ctx context.Context, q catalog.CatalogQuery) (catalog.CatalogPage, error) {
	where, args := catalogFilter(q)

	page := catalog.CatalogPage{
		PerPage: catalog.CatalogPageSize,
		Data:    []catalog.CatalogEntry{},
	}
	if q.Page < 1 {
		q.Page = 1
	}
	page.CurrentPage = q.Page

	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM artifacts a`+where, args...,
	).Scan(&page.Total); err != nil {
		return page, fmt.Errorf("count catalog: %w", err)
	}
	page.TotalPages = int((page.Total + catalog.CatalogPageSize - 1) / catalog.CatalogPageSize)

	offset := (q.Page - 1) * catalog.CatalogPageSize
	listArgs := append(append([]any{}, args...), catalog.CatalogPageSize, offset)
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT a.id, a.description,
		        COALESCE(t.path, ''), COALESCE(sh.name, ''), COALESCE(c.name, '')
		 FROM artifacts a
		 LEFT JOIN thumbnails t ON t.id = a.thumbnail_id
		 LEFT JOIN shapes sh ON sh.id = a.shape_id
		 LEFT JOIN cultures c ON c.id = a.culture_id
		 %s ORDER BY a.id LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2),
		listArgs...)
	if err != nil {
		return page, fmt.Errorf("list catalog: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e catalog.CatalogEntry
		if err := rows.Scan(&e.ID, &e.Description, &e.Thumbnail, &e.Shape, &e.Culture); err != nil {
			return page, err
		}
		e.Tags = []string{}
		page.Data = append(page.Data, e)
	}
	if err := rows.Err(); err != nil {
		return page, err
	}

	for i := range page.Data {
		tags, err := s.artifactTags(ctx, page.Data[i].ID)
		if err != nil {
			return page, err
		}
		for _, tg := range tags {
			page.Data[i].Tags = append(page.Data[i].Tags, tg.Name)
		}
	}

	page.Filters, err = s.availableFilters(ctx, where, args)
	if err != nil {
		return page, err
	}
	return page, nil
}

// availableFilters reports the distinct vocabulary names present in the
// filtered artifact set.
func (s *Store) availableFilters(ctx context.Context, where string, args []any) (catalog.AvailableFilters, error) {
	out := catalog.AvailableFilters{
		Cultures: []string{}, Shapes: []string{}, Tags: []string{},
	}

	collect := func(query string, dst *[]string) error {
		rows, err := s.pool.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("available filters: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			*dst = append(*dst, name)
		}
		return rows.Err()
	}

	if err := collect(
		`SELECT DISTINCT c.name FROM artifacts a
		 JOIN cultures c ON c.id = a.culture_id`+where+` ORDER BY c.name`,
		&out.Cultures); err != nil {
		return out, err
	}
	if err := collect(
		`SELECT DISTINCT sh.name FROM artifacts a
		 JOIN shapes sh ON sh.id = a.shape_id`+where+` ORDER BY sh.name`,
		&out.Shapes); err != nil {
		return out, err
	}
	if err := collect(
		`SELECT DISTINCT tg.name FROM artifacts a
		 JOIN artifact_tags at ON at.artifact_id = a.id
		 JOIN tags tg ON tg.id = at.tag_id`+where+` ORDER BY tg.name`,
		&out.Tags); err != nil {
		return out, err
	}
	return out, nil
}
