package service

import (
	"context"
	"io"

	"github.com/museodigital/catalog/internal/catalog"
	"github.com/museodigital/catalog/internal/importer"
	"github.com/museodigital/catalog/internal/media"
)

// BulkImport runs the import pipeline for one spreadsheet + archive pair.
// Concurrent runs are bounded by the import limiter; callers receive
// ErrTooManyImports when no slot frees up in time.
func (s *Service) BulkImport(ctx context.Context, sheetName string, sheet io.Reader, archiveName string, archive io.ReaderAt, archiveSize int64) (*importer.Result, error) {
	if err := s.imports.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.imports.Release()

	s.log.Info("bulk import started",
		"spreadsheet", sheetName, "archive", archiveName, "active", s.imports.ActiveCount())

	p := &importer.Pipeline{
		Store:    importStore{s},
		TempRoot: s.tempRoot,
		Log:      s.log,
	}
	return p.Run(ctx, sheetName, sheet, archiveName, archive, archiveSize)
}

// ImportStatus reports the limiter state for monitoring.
func (s *Service) ImportStatus() ImportLimiterStatus {
	return s.imports.Status()
}

// DrainImports blocks until running imports finish or ctx expires. Called
// during shutdown so extraction workspaces are cleaned up before exit.
func (s *Service) DrainImports(ctx context.Context) error {
	return s.imports.WaitForDrain(ctx)
}

// importStore adapts the service to the pipeline's persistence boundary:
// workspace files are copied into media storage, records created, and the
// descriptor hooks fired, so imported media behaves exactly like media
// uploaded through the artifact endpoints.
type importStore struct {
	s *Service
}

func (a importStore) Shape(ctx context.Context, name string) (catalog.Shape, error) {
	return a.s.store.Shape(ctx, name)
}

func (a importStore) Culture(ctx context.Context, name string) (catalog.Culture, error) {
	return a.s.store.Culture(ctx, name)
}

func (a importStore) Tag(ctx context.Context, name string) (catalog.Tag, error) {
	return a.s.store.Tag(ctx, name)
}

func (a importStore) CreateThumbnail(ctx context.Context, file importer.WorkspaceFile) (catalog.Thumbnail, error) {
	f, err := a.s.media.SaveFile(media.KindThumbnail, file.Path, file.Name)
	if err != nil {
		return catalog.Thumbnail{}, err
	}
	t, err := a.s.store.CreateThumbnail(ctx, f.Path)
	if err != nil {
		return catalog.Thumbnail{}, err
	}
	a.s.computeThumbnailDescriptor(ctx, t.ID, f.AbsPath)
	return t, nil
}

func (a importStore) FindOrCreateModel(ctx context.Context, texture, object, material importer.WorkspaceFile) (catalog.Model, error) {
	tf, err := a.s.media.SaveFile(media.KindImage, texture.Path, texture.Name)
	if err != nil {
		return catalog.Model{}, err
	}
	of, err := a.s.media.SaveFile(media.KindObject, object.Path, object.Name)
	if err != nil {
		return catalog.Model{}, err
	}
	mf, err := a.s.media.SaveFile(media.KindMaterial, material.Path, material.Name)
	if err != nil {
		return catalog.Model{}, err
	}
	return a.s.store.FindOrCreateModel(ctx, tf.Path, of.Path, mf.Path)
}

func (a importStore) CreateArtifact(ctx context.Context, description string, thumbnailID int64, modelID *int64, shapeID, cultureID int64) (int64, error) {
	return a.s.store.CreateArtifact(ctx, catalog.ArtifactParams{
		Description: description,
		ThumbnailID: &thumbnailID,
		ModelID:     modelID,
		ShapeID:     &shapeID,
		CultureID:   &cultureID,
	})
}

func (a importStore) CreateImage(ctx context.Context, artifactID int64, file importer.WorkspaceFile) (catalog.Image, error) {
	f, err := a.s.media.SaveFile(media.KindImage, file.Path, file.Name)
	if err != nil {
		return catalog.Image{}, err
	}
	img, err := a.s.store.CreateImage(ctx, &artifactID, f.Path)
	if err != nil {
		return catalog.Image{}, err
	}
	a.s.computeImageDescriptor(ctx, img.ID, f.AbsPath)
	return img, nil
}

func (a importStore) AttachTags(ctx context.Context, artifactID int64, tagIDs []int64) error {
	return a.s.store.AttachTags(ctx, artifactID, tagIDs)
}
