package importer

import (
	"context"
	"fmt"

	"github.com/museodigital/catalog/internal/catalog"
)

// WorkspaceFile points at an extracted file: Name is the archive-relative
// path (kept as the original filename), Path the absolute location inside
// the workspace.
type WorkspaceFile struct {
	Name string
	Path string
}

// Store is the persistence boundary the executor drives. Media creation is
// expected to also store the file itself and to trigger any post-persist
// side effects (descriptor computation); the pipeline never inspects those.
type Store interface {
	Vocabulary

	CreateThumbnail(ctx context.Context, file WorkspaceFile) (catalog.Thumbnail, error)
	FindOrCreateModel(ctx context.Context, texture, object, material WorkspaceFile) (catalog.Model, error)
	CreateArtifact(ctx context.Context, description string, thumbnailID int64, modelID *int64, shapeID, cultureID int64) (int64, error)
	CreateImage(ctx context.Context, artifactID int64, file WorkspaceFile) (catalog.Image, error)
	AttachTags(ctx context.Context, artifactID int64, tagIDs []int64) error
}

// ExecuteError reports a failure while persisting row k of a run. Rows
// before k stay committed: the pipeline is fail-fast with partial progress,
// not atomic.
type ExecuteError struct {
	Line      int
	Committed int
	Err       error
}

func (e *ExecuteError) Error() string {
	return fmt.Sprintf("import aborted at row %d after %d artifacts: %v",
		e.Line, e.Committed, e.Err)
}

func (e *ExecuteError) Unwrap() error { return e.Err }

// Execute persists every matched row in order. The first failure aborts the
// run immediately with an *ExecuteError; the caller owns workspace cleanup.
func Execute(ctx context.Context, st Store, ws *Workspace, rows []MatchedRow) (int, error) {
	committed := 0
	for _, row := range rows {
		if err := executeRow(ctx, st, ws, row); err != nil {
			return committed, &ExecuteError{Line: row.Line, Committed: committed, Err: err}
		}
		committed++
	}
	return committed, nil
}

func executeRow(ctx context.Context, st Store, ws *Workspace, row MatchedRow) error {
	// Vocabulary names were validated to exist; resolve them to records.
	var tagIDs []int64
	for _, name := range row.Tags {
		tag, err := st.Tag(ctx, name)
		if err != nil {
			return fmt.Errorf("resolve tag %q: %w", name, err)
		}
		tagIDs = append(tagIDs, tag.ID)
	}
	culture, err := st.Culture(ctx, row.Culture)
	if err != nil {
		return fmt.Errorf("resolve culture %q: %w", row.Culture, err)
	}
	shape, err := st.Shape(ctx, row.Shape)
	if err != nil {
		return fmt.Errorf("resolve shape %q: %w", row.Shape, err)
	}

	thumb, err := st.CreateThumbnail(ctx, ws.file(row.Files.Thumbnail))
	if err != nil {
		return fmt.Errorf("thumbnail %s: %w", row.Files.Thumbnail, err)
	}

	var modelID *int64
	if row.Files.HasModel() {
		model, err := st.FindOrCreateModel(ctx,
			ws.file(row.Files.Texture), ws.file(row.Files.Object), ws.file(row.Files.Material))
		if err != nil {
			return fmt.Errorf("model for artifact %s: %w", row.Identifier, err)
		}
		modelID = &model.ID
	}

	artifactID, err := st.CreateArtifact(ctx, row.Description, thumb.ID, modelID, shape.ID, culture.ID)
	if err != nil {
		return fmt.Errorf("artifact %s: %w", row.Identifier, err)
	}

	for _, photo := range row.Files.Photos {
		if _, err := st.CreateImage(ctx, artifactID, ws.file(photo)); err != nil {
			return fmt.Errorf("image %s: %w", photo, err)
		}
	}

	if err := st.AttachTags(ctx, artifactID, tagIDs); err != nil {
		return fmt.Errorf("tags for artifact %s: %w", row.Identifier, err)
	}
	return nil
}

func (w *Workspace) file(rel string) WorkspaceFile {
	return WorkspaceFile{Name: rel, Path: w.Abs(rel)}
}
