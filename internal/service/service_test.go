package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/museodigital/catalog/internal/catalog"
	"github.com/museodigital/catalog/internal/media"
)

// memStore is an in-memory Store for service tests.
type memStore struct {
	mu sync.Mutex

	shapes   map[string]int64
	cultures map[string]int64
	tags     map[string]int64

	nextID       int64
	thumbnails   map[int64]*catalog.Thumbnail
	models       map[int64]*catalog.Model
	images       map[int64]*catalog.Image
	artifacts    map[int64]*catalog.ArtifactParams
	artifactTags map[int64][]int64
	institutions []catalog.Institution
	requesters   []catalog.Requester
	tokens       map[string]catalog.User
}

func newMemStore() *memStore {
	return &memStore{
		shapes:       map[string]int64{"Vessel": 1, "Figurine": 2},
		cultures:     map[string]int64{"Inca": 1, "Moche": 2},
		tags:         map[string]int64{"pottery": 1, "ritual": 2},
		nextID:       100,
		thumbnails:   make(map[int64]*catalog.Thumbnail),
		models:       make(map[int64]*catalog.Model),
		images:       make(map[int64]*catalog.Image),
		artifacts:    make(map[int64]*catalog.ArtifactParams),
		artifactTags: make(map[int64][]int64),
		tokens:       make(map[string]catalog.User),
	}
}

func (m *memStore) id() int64 { m.nextID++; return m.nextID }

func (m *memStore) Shape(_ context.Context, name string) (catalog.Shape, error) {
	if id, ok := m.shapes[name]; ok {
		return catalog.Shape{ID: id, Name: name}, nil
	}
	return catalog.Shape{}, catalog.ErrNotFound
}

func (m *memStore) Culture(_ context.Context, name string) (catalog.Culture, error) {
	if id, ok := m.cultures[name]; ok {
		return catalog.Culture{ID: id, Name: name}, nil
	}
	return catalog.Culture{}, catalog.ErrNotFound
}

func (m *memStore) Tag(_ context.Context, name string) (catalog.Tag, error) {
	if id, ok := m.tags[name]; ok {
		return catalog.Tag{ID: id, Name: name}, nil
	}
	return catalog.Tag{}, catalog.ErrNotFound
}

func (m *memStore) ListShapes(context.Context) ([]catalog.Shape, error) {
	return []catalog.Shape{{ID: 1, Name: "Vessel"}, {ID: 2, Name: "Figurine"}}, nil
}

func (m *memStore) ListCultures(context.Context) ([]catalog.Culture, error) {
	return []catalog.Culture{{ID: 1, Name: "Inca"}, {ID: 2, Name: "Moche"}}, nil
}

func (m *memStore) ListTags(context.Context) ([]catalog.Tag, error) {
	return []catalog.Tag{{ID: 1, Name: "pottery"}, {ID: 2, Name: "ritual"}}, nil
}

func (m *memStore) ListInstitutions(context.Context) ([]catalog.Institution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]catalog.Institution(nil), m.institutions...), nil
}

func (m *memStore) CreateInstitution(_ context.Context, name string) (catalog.Institution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in := catalog.Institution{ID: m.id(), Name: name}
	m.institutions = append(m.institutions, in)
	return in, nil
}

func (m *memStore) CreateThumbnail(_ context.Context, path string) (catalog.Thumbnail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &catalog.Thumbnail{ID: m.id(), Path: path}
	m.thumbnails[t.ID] = t
	return *t, nil
}

func (m *memStore) SetThumbnailDescriptor(_ context.Context, id int64, d string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.thumbnails[id]
	if !ok {
		return catalog.ErrNotFound
	}
	t.Descriptor = d
	return nil
}

func (m *memStore) ThumbnailByPath(_ context.Context, path string) (catalog.Thumbnail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.thumbnails {
		if t.Path == path {
			return *t, nil
		}
	}
	return catalog.Thumbnail{}, catalog.ErrNotFound
}

func (m *memStore) FindOrCreateModel(_ context.Context, texture, object, material string) (catalog.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, md := range m.models {
		if md.Texture == texture && md.Object == object && md.Material == material {
			return *md, nil
		}
	}
	md := &catalog.Model{ID: m.id(), Texture: texture, Object: object, Material: material}
	m.models[md.ID] = md
	return *md, nil
}

func (m *memStore) CreateImage(_ context.Context, artifactID *int64, path string) (catalog.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img := &catalog.Image{ID: m.id(), ArtifactID: artifactID, Path: path}
	m.images[img.ID] = img
	return *img, nil
}

func (m *memStore) SetImageDescriptor(_ context.Context, id int64, d string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[id]
	if !ok {
		return catalog.ErrNotFound
	}
	img.Descriptor = d
	return nil
}

func (m *memStore) ImageByPath(_ context.Context, path string) (catalog.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, img := range m.images {
		if img.Path == path {
			return *img, nil
		}
	}
	return catalog.Image{}, catalog.ErrNotFound
}

func (m *memStore) LinkImage(_ context.Context, imageID int64, artifactID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[imageID]
	if !ok {
		return catalog.ErrNotFound
	}
	img.ArtifactID = artifactID
	return nil
}

func (m *memStore) UnlinkImages(_ context.Context, artifactID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, img := range m.images {
		if img.ArtifactID != nil && *img.ArtifactID == artifactID {
			img.ArtifactID = nil
		}
	}
	return nil
}

func (m *memStore) CreateArtifact(_ context.Context, p catalog.ArtifactParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	cp := p
	m.artifacts[id] = &cp
	return id, nil
}

func (m *memStore) UpdateArtifact(_ context.Context, id int64, p catalog.ArtifactParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.artifacts[id]; !ok {
		return catalog.ErrNotFound
	}
	cp := p
	m.artifacts[id] = &cp
	return nil
}

func (m *memStore) AttachTags(_ context.Context, artifactID int64, tagIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifactTags[artifactID] = append(m.artifactTags[artifactID], tagIDs...)
	return nil
}

func (m *memStore) ReplaceTags(_ context.Context, artifactID int64, tagIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifactTags[artifactID] = append([]int64(nil), tagIDs...)
	return nil
}

func (m *memStore) Artifact(_ context.Context, id int64) (catalog.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.artifacts[id]
	if !ok {
		return catalog.Artifact{}, catalog.ErrNotFound
	}
	out := catalog.Artifact{ID: id, Description: p.Description, Tags: []catalog.Tag{}, Images: []catalog.Image{}}
	if p.ThumbnailID != nil {
		if t, ok := m.thumbnails[*p.ThumbnailID]; ok {
			cp := *t
			out.Thumbnail = &cp
		}
	}
	if p.ModelID != nil {
		if md, ok := m.models[*p.ModelID]; ok {
			cp := *md
			out.Model = &cp
		}
	}
	for _, tagID := range m.artifactTags[id] {
		for name, tid := range m.tags {
			if tid == tagID {
				out.Tags = append(out.Tags, catalog.Tag{ID: tid, Name: name})
			}
		}
	}
	for _, img := range m.images {
		if img.ArtifactID != nil && *img.ArtifactID == id {
			out.Images = append(out.Images, *img)
		}
	}
	return out, nil
}

func (m *memStore) Catalog(_ context.Context, q catalog.CatalogQuery) (catalog.CatalogPage, error) {
	return catalog.CatalogPage{CurrentPage: q.Page, PerPage: catalog.CatalogPageSize}, nil
}

func (m *memStore) UserByToken(_ context.Context, token string) (catalog.User, error) {
	if u, ok := m.tokens[token]; ok {
		return u, nil
	}
	return catalog.User{}, catalog.ErrNotFound
}

func (m *memStore) CreateRequester(_ context.Context, r catalog.Requester) (catalog.Requester, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.id()
	m.requesters = append(m.requesters, r)
	return r, nil
}

// newTestService wires a service over memStore with media storage in a
// temp dir and a descriptor stub that records the files it saw.
func newTestService(t *testing.T, st *memStore) (*Service, *[]string) {
	t.Helper()
	storage, err := media.NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var described []string
	svc := New(st, storage, Options{
		Descriptor: func(path string) (string, error) {
			described = append(described, path)
			return `[0.5]`, nil
		},
		TempRoot: t.TempDir(),
	})
	return svc, &described
}

func TestCreateArtifact(t *testing.T) {
	st := newMemStore()
	svc, described := newTestService(t, st)

	a, err := svc.CreateArtifact(context.Background(), ArtifactInput{
		Description:  "ceremonial bowl",
		Shape:        "Vessel",
		Culture:      "Inca",
		Tags:         []string{"pottery", "ritual"},
		NewThumbnail: &Upload{Name: "bowl_thumbnail.jpg", Data: strings.NewReader("thumb")},
		NewImages: []Upload{
			{Name: "front.jpg", Data: strings.NewReader("f")},
			{Name: "back.jpg", Data: strings.NewReader("b")},
		},
	})
	if err != nil {
		t.Fatalf("CreateArtifact: %v", err)
	}
	if a.Thumbnail == nil || !strings.HasPrefix(a.Thumbnail.Path, "thumbnails/") {
		t.Errorf("thumbnail = %+v", a.Thumbnail)
	}
	if len(a.Images) != 2 {
		t.Errorf("images = %d, want 2", len(a.Images))
	}
	if len(a.Tags) != 2 {
		t.Errorf("tags = %d, want 2", len(a.Tags))
	}
	if a.Model != nil {
		t.Error("unexpected model")
	}
	// Descriptor hook must fire for the thumbnail and both images.
	if len(*described) != 3 {
		t.Errorf("descriptor hook ran %d times, want 3", len(*described))
	}
	if got := st.thumbnails[a.Thumbnail.ID].Descriptor; got != `[0.5]` {
		t.Errorf("stored descriptor = %q", got)
	}
}

func TestCreateArtifactValidation(t *testing.T) {
	st := newMemStore()
	svc, _ := newTestService(t, st)

	tests := []struct {
		name string
		in   ArtifactInput
	}{
		{"missing description", ArtifactInput{
			Shape: "Vessel", Culture: "Inca",
			NewThumbnail: &Upload{Name: "t.jpg", Data: strings.NewReader("x")},
		}},
		{"unknown culture", ArtifactInput{
			Description: "bowl", Shape: "Vessel", Culture: "Atlantis",
			NewThumbnail: &Upload{Name: "t.jpg", Data: strings.NewReader("x")},
		}},
		{"unknown tag", ArtifactInput{
			Description: "bowl", Shape: "Vessel", Culture: "Inca",
			Tags:         []string{"outerspace"},
			NewThumbnail: &Upload{Name: "t.jpg", Data: strings.NewReader("x")},
		}},
		{"missing thumbnail", ArtifactInput{
			Description: "bowl", Shape: "Vessel", Culture: "Inca",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateArtifact(context.Background(), tt.in)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
	if len(st.artifacts) != 0 {
		t.Errorf("artifacts persisted despite validation failures: %d", len(st.artifacts))
	}
}

func TestUpdateArtifact(t *testing.T) {
	st := newMemStore()
	svc, _ := newTestService(t, st)
	ctx := context.Background()

	a, err := svc.CreateArtifact(ctx, ArtifactInput{
		Description:  "bowl",
		Shape:        "Vessel",
		Culture:      "Inca",
		Tags:         []string{"pottery"},
		NewThumbnail: &Upload{Name: "t.jpg", Data: strings.NewReader("x")},
		NewImages:    []Upload{{Name: "a.jpg", Data: strings.NewReader("a")}},
	})
	if err != nil {
		t.Fatal(err)
	}
	oldImage := a.Images[0].Path

	updated, err := svc.UpdateArtifact(ctx, a.ID, ArtifactInput{
		Description: "painted bowl",
		Shape:       "Figurine",
		Culture:     "Moche",
		Tags:        []string{"ritual"},
		NewImages:   []Upload{{Name: "b.jpg", Data: strings.NewReader("b")}},
	})
	if err != nil {
		t.Fatalf("UpdateArtifact: %v", err)
	}

	if updated.Description != "painted bowl" {
		t.Errorf("description = %q", updated.Description)
	}
	// Thumbnail survives an update that does not replace it.
	if updated.Thumbnail == nil || updated.Thumbnail.ID != a.Thumbnail.ID {
		t.Errorf("thumbnail = %+v, want kept", updated.Thumbnail)
	}
	if len(updated.Tags) != 1 || updated.Tags[0].Name != "ritual" {
		t.Errorf("tags = %+v, want replaced", updated.Tags)
	}
	// The old image was not in KeepImages, so it is detached.
	if len(updated.Images) != 1 || updated.Images[0].Path == oldImage {
		t.Errorf("images = %+v, want only the new upload", updated.Images)
	}
	detached, err := st.ImageByPath(ctx, oldImage)
	if err != nil {
		t.Fatal(err)
	}
	if detached.ArtifactID != nil {
		t.Error("old image still linked")
	}
}

func TestUpdateArtifactNotFound(t *testing.T) {
	svc, _ := newTestService(t, newMemStore())
	_, err := svc.UpdateArtifact(context.Background(), 999, ArtifactInput{Description: "x"})
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMetadata(t *testing.T) {
	svc, _ := newTestService(t, newMemStore())
	md, err := svc.Metadata(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(md.Shapes) != 2 || len(md.Cultures) != 2 || len(md.Tags) != 2 {
		t.Fatalf("metadata = %+v", md)
	}
	if md.Shapes[0].Value != "Vessel" || md.Shapes[0].ID != 1 {
		t.Errorf("Shapes[0] = %+v", md.Shapes[0])
	}
}

func TestRequestArtifact(t *testing.T) {
	st := newMemStore()
	svc, _ := newTestService(t, st)
	ctx := context.Background()

	a, err := svc.CreateArtifact(ctx, ArtifactInput{
		Description:  "bowl",
		Shape:        "Vessel",
		Culture:      "Inca",
		NewThumbnail: &Upload{Name: "t.jpg", Data: strings.NewReader("x")},
	})
	if err != nil {
		t.Fatal(err)
	}

	r, err := svc.RequestArtifact(ctx, catalog.Requester{
		Name: "Ana", Email: "ana@example.org", ArtifactID: a.ID,
	})
	if err != nil {
		t.Fatalf("RequestArtifact: %v", err)
	}
	if r.ID == 0 {
		t.Error("requester id not assigned")
	}

	_, err = svc.RequestArtifact(ctx, catalog.Requester{
		Name: "Ana", Email: "ana@example.org", ArtifactID: 9999,
	})
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for missing artifact", err)
	}
}

func TestBulkImport(t *testing.T) {
	st := newMemStore()
	svc, described := newTestService(t, st)

	var zbuf bytes.Buffer
	zw := zip.NewWriter(&zbuf)
	for name, content := range map[string]string{
		"1_thumbnail.jpg": "t",
		"fotos/1_a.jpg":   "a",
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		fmt.Fprint(w, content)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	sheet := "id,description,shape,culture,tags\n1,bowl,Vessel,Inca,pottery\n"
	res, err := svc.BulkImport(context.Background(),
		"artifacts.csv", strings.NewReader(sheet),
		"media.zip", bytes.NewReader(zbuf.Bytes()), int64(zbuf.Len()))
	if err != nil {
		t.Fatalf("BulkImport: %v", err)
	}
	if res.Imported != 1 || len(res.Errors) != 0 {
		t.Fatalf("result = %+v", res)
	}
	if len(st.artifacts) != 1 {
		t.Fatalf("artifacts = %d", len(st.artifacts))
	}
	// Imported media went through storage and the descriptor hook like any
	// other upload.
	for _, tb := range st.thumbnails {
		if !strings.HasPrefix(tb.Path, "thumbnails/") {
			t.Errorf("thumbnail path = %q", tb.Path)
		}
		if _, err := os.Stat(svc.media.Abs(tb.Path)); err != nil {
			t.Errorf("stored thumbnail missing: %v", err)
		}
	}
	if len(*described) != 2 {
		t.Errorf("descriptor hook ran %d times, want 2", len(*described))
	}

	status := svc.ImportStatus()
	if status.Active != 0 {
		t.Errorf("active imports = %d after completion", status.Active)
	}
}

func TestWriteDownloadArchive(t *testing.T) {
	st := newMemStore()
	svc, _ := newTestService(t, st)
	ctx := context.Background()

	a, err := svc.CreateArtifact(ctx, ArtifactInput{
		Description:  "bowl",
		Shape:        "Vessel",
		Culture:      "Inca",
		NewThumbnail: &Upload{Name: "t.jpg", Data: strings.NewReader("thumb")},
		NewImages:    []Upload{{Name: "a.jpg", Data: strings.NewReader("photo")}},
	})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := svc.WriteDownloadArchive(ctx, a.ID, &buf); err != nil {
		t.Fatalf("WriteDownloadArchive: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, filepath.ToSlash(f.Name))
	}
	if len(names) != 2 {
		t.Fatalf("archive entries = %q, want 2", names)
	}
	for _, name := range names {
		if !strings.HasPrefix(name, "thumbnail/") && !strings.HasPrefix(name, "images/") {
			t.Errorf("unexpected entry %q", name)
		}
	}
}
