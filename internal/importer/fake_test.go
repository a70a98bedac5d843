package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/museodigital/catalog/internal/catalog"
)

// fakeStore implements Store in memory for pipeline tests. Vocabulary names
// are seeded up front; created records get sequential ids.
type fakeStore struct {
	mu sync.Mutex

	shapes   map[string]int64
	cultures map[string]int64
	tags     map[string]int64

	nextID     int64
	thumbnails []WorkspaceFile
	models     [][3]WorkspaceFile
	artifacts  []fakeArtifact
	images     map[int64][]WorkspaceFile
	tagLinks   map[int64][]int64

	failArtifact string // description that makes CreateArtifact fail
}

type fakeArtifact struct {
	id          int64
	description string
	thumbnailID int64
	modelID     *int64
	shapeID     int64
	cultureID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		shapes:   map[string]int64{"Vessel": 1, "Figurine": 2},
		cultures: map[string]int64{"Inca": 1, "Moche": 2},
		tags:     map[string]int64{"pottery": 1, "ritual": 2},
		nextID:   100,
		images:   make(map[int64][]WorkspaceFile),
		tagLinks: make(map[int64][]int64),
	}
}

func (s *fakeStore) Shape(_ context.Context, name string) (catalog.Shape, error) {
	if id, ok := s.shapes[name]; ok {
		return catalog.Shape{ID: id, Name: name}, nil
	}
	return catalog.Shape{}, catalog.ErrNotFound
}

func (s *fakeStore) Culture(_ context.Context, name string) (catalog.Culture, error) {
	if id, ok := s.cultures[name]; ok {
		return catalog.Culture{ID: id, Name: name}, nil
	}
	return catalog.Culture{}, catalog.ErrNotFound
}

func (s *fakeStore) Tag(_ context.Context, name string) (catalog.Tag, error) {
	if id, ok := s.tags[name]; ok {
		return catalog.Tag{ID: id, Name: name}, nil
	}
	return catalog.Tag{}, catalog.ErrNotFound
}

func (s *fakeStore) CreateThumbnail(_ context.Context, file WorkspaceFile) (catalog.Thumbnail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.thumbnails = append(s.thumbnails, file)
	return catalog.Thumbnail{ID: s.nextID, Path: file.Name}, nil
}

func (s *fakeStore) FindOrCreateModel(_ context.Context, texture, object, material WorkspaceFile) (catalog.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.models = append(s.models, [3]WorkspaceFile{texture, object, material})
	return catalog.Model{ID: s.nextID, Texture: texture.Name, Object: object.Name, Material: material.Name}, nil
}

func (s *fakeStore) CreateArtifact(_ context.Context, description string, thumbnailID int64, modelID *int64, shapeID, cultureID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failArtifact != "" && description == s.failArtifact {
		return 0, errors.New("insert failed")
	}
	s.nextID++
	s.artifacts = append(s.artifacts, fakeArtifact{
		id:          s.nextID,
		description: description,
		thumbnailID: thumbnailID,
		modelID:     modelID,
		shapeID:     shapeID,
		cultureID:   cultureID,
	})
	return s.nextID, nil
}

func (s *fakeStore) CreateImage(_ context.Context, artifactID int64, file WorkspaceFile) (catalog.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.images[artifactID] = append(s.images[artifactID], file)
	return catalog.Image{ID: s.nextID, ArtifactID: &artifactID, Path: file.Name}, nil
}

func (s *fakeStore) AttachTags(_ context.Context, artifactID int64, tagIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tagLinks[artifactID] = append(s.tagLinks[artifactID], tagIDs...)
	return nil
}

// erringVocabulary fails every lookup with a non-not-found error, modelling
// a database outage during validation.
type erringVocabulary struct{}

func (erringVocabulary) Shape(context.Context, string) (catalog.Shape, error) {
	return catalog.Shape{}, fmt.Errorf("connection refused")
}

func (erringVocabulary) Culture(context.Context, string) (catalog.Culture, error) {
	return catalog.Culture{}, fmt.Errorf("connection refused")
}

func (erringVocabulary) Tag(context.Context, string) (catalog.Tag, error) {
	return catalog.Tag{}, fmt.Errorf("connection refused")
}
