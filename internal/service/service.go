// Package service is the application layer: it ties the persistence store,
// the media storage and the bulk import pipeline together and exposes the
// operations the web layer serves.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/museodigital/catalog/internal/catalog"
	"github.com/museodigital/catalog/internal/descriptor"
	"github.com/museodigital/catalog/internal/media"
)

// ErrInvalidInput marks request payloads the service rejects before touching
// storage. The web layer maps it to a 400 response.
var ErrInvalidInput = errors.New("invalid input")

// Store is the persistence surface the service needs. *store.Store
// implements it.
type Store interface {
	Shape(ctx context.Context, name string) (catalog.Shape, error)
	Culture(ctx context.Context, name string) (catalog.Culture, error)
	Tag(ctx context.Context, name string) (catalog.Tag, error)
	ListShapes(ctx context.Context) ([]catalog.Shape, error)
	ListCultures(ctx context.Context) ([]catalog.Culture, error)
	ListTags(ctx context.Context) ([]catalog.Tag, error)
	ListInstitutions(ctx context.Context) ([]catalog.Institution, error)
	CreateInstitution(ctx context.Context, name string) (catalog.Institution, error)

	CreateThumbnail(ctx context.Context, path string) (catalog.Thumbnail, error)
	SetThumbnailDescriptor(ctx context.Context, id int64, descriptor string) error
	ThumbnailByPath(ctx context.Context, path string) (catalog.Thumbnail, error)
	FindOrCreateModel(ctx context.Context, texture, object, material string) (catalog.Model, error)
	CreateImage(ctx context.Context, artifactID *int64, path string) (catalog.Image, error)
	SetImageDescriptor(ctx context.Context, id int64, descriptor string) error
	ImageByPath(ctx context.Context, path string) (catalog.Image, error)
	LinkImage(ctx context.Context, imageID int64, artifactID *int64) error
	UnlinkImages(ctx context.Context, artifactID int64) error

	CreateArtifact(ctx context.Context, p catalog.ArtifactParams) (int64, error)
	UpdateArtifact(ctx context.Context, id int64, p catalog.ArtifactParams) error
	AttachTags(ctx context.Context, artifactID int64, tagIDs []int64) error
	ReplaceTags(ctx context.Context, artifactID int64, tagIDs []int64) error
	Artifact(ctx context.Context, id int64) (catalog.Artifact, error)
	Catalog(ctx context.Context, q catalog.CatalogQuery) (catalog.CatalogPage, error)

	UserByToken(ctx context.Context, token string) (catalog.User, error)
	CreateRequester(ctx context.Context, r catalog.Requester) (catalog.Requester, error)
}

// DescriptorFn computes the serialized visual descriptor for an image file.
// Wired as a post-persist hook: it runs after the media record exists and a
// failure never fails the surrounding operation.
type DescriptorFn func(path string) (string, error)

// HistogramDescriptor is the default DescriptorFn: the zoned equalized
// grayscale histogram, serialized as a JSON float array.
func HistogramDescriptor(path string) (string, error) {
	d, err := descriptor.ComputeFile(path)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Options configures optional service behavior.
type Options struct {
	// Descriptor overrides the post-persist descriptor hook.
	// Nil means HistogramDescriptor.
	Descriptor DescriptorFn

	// MaxConcurrentImports and ImportMaxWait configure the bulk import
	// limiter; zero values use the limiter defaults.
	MaxConcurrentImports int
	ImportMaxWait        time.Duration

	// TempRoot is where extraction workspaces live; empty means the
	// system temp directory.
	TempRoot string

	Log *slog.Logger
}

// Service implements the catalog operations.
type Service struct {
	store      Store
	media      *media.Storage
	descriptor DescriptorFn
	imports    *ImportLimiter
	tempRoot   string
	log        *slog.Logger
}

// New assembles a service.
func New(st Store, m *media.Storage, opts Options) *Service {
	desc := opts.Descriptor
	if desc == nil {
		desc = HistogramDescriptor
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:      st,
		media:      m,
		descriptor: desc,
		imports:    NewImportLimiter(opts.MaxConcurrentImports, opts.ImportMaxWait),
		tempRoot:   opts.TempRoot,
		log:        log,
	}
}

// Catalog returns one page of the filtered catalog listing.
func (s *Service) Catalog(ctx context.Context, q catalog.CatalogQuery) (catalog.CatalogPage, error) {
	return s.store.Catalog(ctx, q)
}

// Artifact returns one artifact with its media and vocabulary records.
func (s *Service) Artifact(ctx context.Context, id int64) (catalog.Artifact, error) {
	return s.store.Artifact(ctx, id)
}

// MetadataItem is one vocabulary value in the metadata listing.
type MetadataItem struct {
	ID    int64  `json:"id"`
	Value string `json:"value"`
}

// Metadata lists every vocabulary value, for populating client filters and
// forms.
type Metadata struct {
	Shapes   []MetadataItem `json:"shapes"`
	Cultures []MetadataItem `json:"cultures"`
	Tags     []MetadataItem `json:"tags"`
}

// Metadata returns all controlled-vocabulary values.
func (s *Service) Metadata(ctx context.Context) (Metadata, error) {
	out := Metadata{
		Shapes:   []MetadataItem{},
		Cultures: []MetadataItem{},
		Tags:     []MetadataItem{},
	}

	shapes, err := s.store.ListShapes(ctx)
	if err != nil {
		return out, err
	}
	for _, sh := range shapes {
		out.Shapes = append(out.Shapes, MetadataItem{ID: sh.ID, Value: sh.Name})
	}

	cultures, err := s.store.ListCultures(ctx)
	if err != nil {
		return out, err
	}
	for _, c := range cultures {
		out.Cultures = append(out.Cultures, MetadataItem{ID: c.ID, Value: c.Name})
	}

	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return out, err
	}
	for _, tg := range tags {
		out.Tags = append(out.Tags, MetadataItem{ID: tg.ID, Value: tg.Name})
	}
	return out, nil
}

// Institutions lists all institutions.
func (s *Service) Institutions(ctx context.Context) ([]catalog.Institution, error) {
	return s.store.ListInstitutions(ctx)
}

// CreateInstitution registers a new institution.
func (s *Service) CreateInstitution(ctx context.Context, name string) (catalog.Institution, error) {
	if name == "" {
		return catalog.Institution{}, fmt.Errorf("%w: institution name is required", ErrInvalidInput)
	}
	return s.store.CreateInstitution(ctx, name)
}

// RequestArtifact records a download request for an artifact.
func (s *Service) RequestArtifact(ctx context.Context, r catalog.Requester) (catalog.Requester, error) {
	if r.Name == "" || r.Email == "" {
		return catalog.Requester{}, fmt.Errorf("%w: requester name and email are required", ErrInvalidInput)
	}
	// Reject requests for artifacts that do not exist up front so the
	// caller gets a 404, not a foreign key violation.
	if _, err := s.store.Artifact(ctx, r.ArtifactID); err != nil {
		return catalog.Requester{}, err
	}
	return s.store.CreateRequester(ctx, r)
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (catalog.User, error) {
	return s.store.UserByToken(ctx, token)
}

// computeThumbnailDescriptor runs the descriptor hook for a stored
// thumbnail. Failures are logged and swallowed: an unreadable image leaves
// the record without a descriptor, it never fails the operation.
func (s *Service) computeThumbnailDescriptor(ctx context.Context, id int64, absPath string) {
	d, err := s.descriptor(absPath)
	if err != nil {
		s.log.Warn("thumbnail descriptor computation failed", "id", id, "error", err)
		return
	}
	if err := s.store.SetThumbnailDescriptor(ctx, id, d); err != nil {
		s.log.Warn("storing thumbnail descriptor failed", "id", id, "error", err)
	}
}

func (s *Service) computeImageDescriptor(ctx context.Context, id int64, absPath string) {
	d, err := s.descriptor(absPath)
	if err != nil {
		s.log.Warn("image descriptor computation failed", "id", id, "error", err)
		return
	}
	if err := s.store.SetImageDescriptor(ctx, id, d); err != nil {
		s.log.Warn("storing image descriptor failed", "id", id, "error", err)
	}
}
