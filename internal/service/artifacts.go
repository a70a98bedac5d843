package service

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/museodigital/catalog/internal/catalog"
	"github.com/museodigital/catalog/internal/media"
)

// Upload is one file received from a multipart request.
type Upload struct {
	Name string
	Data io.Reader
}

// ModelUpload is a complete 3-D model triplet.
type ModelUpload struct {
	Texture  Upload
	Object   Upload
	Material Upload
}

// ArtifactInput carries everything needed to create or update an artifact.
// New* fields hold uploaded files; Keep* fields reference already-stored
// media by path (update only). A new upload always wins over its keep field.
type ArtifactInput struct {
	Description string
	Shape       string
	Culture     string
	Tags        []string

	NewThumbnail  *Upload
	KeepThumbnail string

	NewModel    *ModelUpload
	KeepModelID *int64

	NewImages  []Upload
	KeepImages []string
}

// CreateArtifact stores the input's media, creates the artifact record and
// links its tags and images.
func (s *Service) CreateArtifact(ctx context.Context, in ArtifactInput) (catalog.Artifact, error) {
	fields, tagIDs, err := s.resolveInput(ctx, in)
	if err != nil {
		return catalog.Artifact{}, err
	}
	if fields.ThumbnailID == nil {
		return catalog.Artifact{}, fmt.Errorf("%w: a thumbnail is required", ErrInvalidInput)
	}

	id, err := s.store.CreateArtifact(ctx, fields)
	if err != nil {
		return catalog.Artifact{}, err
	}
	if err := s.store.AttachTags(ctx, id, tagIDs); err != nil {
		return catalog.Artifact{}, err
	}
	if err := s.addImages(ctx, id, in.NewImages); err != nil {
		return catalog.Artifact{}, err
	}

	s.log.Info("artifact created", "id", id)
	return s.store.Artifact(ctx, id)
}

// UpdateArtifact overwrites an artifact's fields, tag set and image links.
// Images absent from both KeepImages and NewImages end up detached, not
// deleted, matching how curators shuffle photographs between artifacts.
func (s *Service) UpdateArtifact(ctx context.Context, id int64, in ArtifactInput) (catalog.Artifact, error) {
	current, err := s.store.Artifact(ctx, id)
	if err != nil {
		return catalog.Artifact{}, err
	}

	fields, tagIDs, err := s.resolveInput(ctx, in)
	if err != nil {
		return catalog.Artifact{}, err
	}
	if fields.ThumbnailID == nil && current.Thumbnail != nil {
		fields.ThumbnailID = &current.Thumbnail.ID
	}
	if fields.ThumbnailID == nil {
		return catalog.Artifact{}, fmt.Errorf("%w: a thumbnail is required", ErrInvalidInput)
	}
	if fields.ModelID == nil && in.KeepModelID == nil && current.Model != nil {
		fields.ModelID = &current.Model.ID
	}

	if err := s.store.UpdateArtifact(ctx, id, fields); err != nil {
		return catalog.Artifact{}, err
	}
	if err := s.store.ReplaceTags(ctx, id, tagIDs); err != nil {
		return catalog.Artifact{}, err
	}

	if err := s.store.UnlinkImages(ctx, id); err != nil {
		return catalog.Artifact{}, err
	}
	for _, p := range in.KeepImages {
		img, err := s.store.ImageByPath(ctx, p)
		if err != nil {
			return catalog.Artifact{}, fmt.Errorf("keep image %q: %w", p, err)
		}
		if err := s.store.LinkImage(ctx, img.ID, &id); err != nil {
			return catalog.Artifact{}, err
		}
	}
	if err := s.addImages(ctx, id, in.NewImages); err != nil {
		return catalog.Artifact{}, err
	}

	s.log.Info("artifact updated", "id", id)
	return s.store.Artifact(ctx, id)
}

// resolveInput turns names and uploads into persisted record references.
func (s *Service) resolveInput(ctx context.Context, in ArtifactInput) (catalog.ArtifactParams, []int64, error) {
	var fields catalog.ArtifactParams
	fields.Description = in.Description
	if in.Description == "" {
		return fields, nil, fmt.Errorf("%w: a description is required", ErrInvalidInput)
	}

	if in.Shape != "" {
		sh, err := s.store.Shape(ctx, in.Shape)
		if errors.Is(err, catalog.ErrNotFound) {
			return fields, nil, fmt.Errorf("%w: unknown shape %q", ErrInvalidInput, in.Shape)
		} else if err != nil {
			return fields, nil, err
		}
		fields.ShapeID = &sh.ID
	}
	if in.Culture != "" {
		c, err := s.store.Culture(ctx, in.Culture)
		if errors.Is(err, catalog.ErrNotFound) {
			return fields, nil, fmt.Errorf("%w: unknown culture %q", ErrInvalidInput, in.Culture)
		} else if err != nil {
			return fields, nil, err
		}
		fields.CultureID = &c.ID
	}

	var tagIDs []int64
	for _, name := range in.Tags {
		tg, err := s.store.Tag(ctx, name)
		if errors.Is(err, catalog.ErrNotFound) {
			return fields, nil, fmt.Errorf("%w: unknown tag %q", ErrInvalidInput, name)
		} else if err != nil {
			return fields, nil, err
		}
		tagIDs = append(tagIDs, tg.ID)
	}

	switch {
	case in.NewThumbnail != nil:
		f, err := s.media.Save(media.KindThumbnail, in.NewThumbnail.Name, in.NewThumbnail.Data)
		if err != nil {
			return fields, nil, err
		}
		t, err := s.store.CreateThumbnail(ctx, f.Path)
		if err != nil {
			return fields, nil, err
		}
		s.computeThumbnailDescriptor(ctx, t.ID, f.AbsPath)
		fields.ThumbnailID = &t.ID
	case in.KeepThumbnail != "":
		t, err := s.store.ThumbnailByPath(ctx, in.KeepThumbnail)
		if err != nil {
			return fields, nil, fmt.Errorf("keep thumbnail %q: %w", in.KeepThumbnail, err)
		}
		fields.ThumbnailID = &t.ID
	}

	switch {
	case in.NewModel != nil:
		m, err := s.saveModel(ctx, *in.NewModel)
		if err != nil {
			return fields, nil, err
		}
		fields.ModelID = &m.ID
	case in.KeepModelID != nil:
		fields.ModelID = in.KeepModelID
	}

	return fields, tagIDs, nil
}

func (s *Service) saveModel(ctx context.Context, m ModelUpload) (catalog.Model, error) {
	texture, err := s.media.Save(media.KindImage, m.Texture.Name, m.Texture.Data)
	if err != nil {
		return catalog.Model{}, err
	}
	object, err := s.media.Save(media.KindObject, m.Object.Name, m.Object.Data)
	if err != nil {
		return catalog.Model{}, err
	}
	material, err := s.media.Save(media.KindMaterial, m.Material.Name, m.Material.Data)
	if err != nil {
		return catalog.Model{}, err
	}
	return s.store.FindOrCreateModel(ctx, texture.Path, object.Path, material.Path)
}

func (s *Service) addImages(ctx context.Context, artifactID int64, uploads []Upload) error {
	for _, up := range uploads {
		f, err := s.media.Save(media.KindImage, up.Name, up.Data)
		if err != nil {
			return err
		}
		img, err := s.store.CreateImage(ctx, &artifactID, f.Path)
		if err != nil {
			return err
		}
		s.computeImageDescriptor(ctx, img.ID, f.AbsPath)
	}
	return nil
}

// WriteDownloadArchive streams a zip of the artifact's media to w:
// the thumbnail, the model triplet when present, and every photograph.
func (s *Service) WriteDownloadArchive(ctx context.Context, id int64, w io.Writer) error {
	a, err := s.store.Artifact(ctx, id)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	add := func(dir, stored string) error {
		if stored == "" {
			return nil
		}
		src, err := os.Open(s.media.Abs(stored))
		if err != nil {
			return fmt.Errorf("open media file: %w", err)
		}
		defer src.Close()

		dst, err := zw.Create(path.Join(dir, path.Base(stored)))
		if err != nil {
			return err
		}
		_, err = io.Copy(dst, src)
		return err
	}

	if a.Thumbnail != nil {
		if err := add("thumbnail", a.Thumbnail.Path); err != nil {
			return err
		}
	}
	if a.Model != nil {
		for _, stored := range []string{a.Model.Object, a.Model.Material, a.Model.Texture} {
			if err := add("model", stored); err != nil {
				return err
			}
		}
	}
	for _, img := range a.Images {
		if err := add("images", img.Path); err != nil {
			return err
		}
	}
	return zw.Close()
}
