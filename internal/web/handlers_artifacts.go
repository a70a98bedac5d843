package web

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/museodigital/catalog/internal/service"
)

// multipart memory ceiling before form parts spill to disk.
const multipartMemory = 32 << 20

// handleCreateArtifact creates an artifact from a multipart form.
//
// Scalar fields: description, shape, culture, tags (comma-separated names).
// File fields: new_thumbnail, new_texture + new_object + new_material
// (model triplet, all three or none), new_images (repeatable).
func (s *Server) handleCreateArtifact(w http.ResponseWriter, r *http.Request) {
	in, closers, ok := s.parseArtifactForm(w, r)
	defer closeAll(closers)
	if !ok {
		return
	}

	a, err := s.service.CreateArtifact(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// handleUpdateArtifact overwrites an artifact from a multipart form. Besides
// the create fields it accepts keep_thumbnail (stored path), keep_model_id
// and keep_images (repeatable stored paths) to retain existing media.
func (s *Server) handleUpdateArtifact(w http.ResponseWriter, r *http.Request) {
	id, ok := artifactID(w, r)
	if !ok {
		return
	}

	in, closers, ok := s.parseArtifactForm(w, r)
	defer closeAll(closers)
	if !ok {
		return
	}

	a, err := s.service.UpdateArtifact(r.Context(), id, in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// parseArtifactForm decodes the shared multipart form of the create and
// update endpoints. On failure it writes the 400 response and returns
// ok=false. Returned closers must be closed after the service call.
func (s *Server) parseArtifactForm(w http.ResponseWriter, r *http.Request) (service.ArtifactInput, []multipart.File, bool) {
	var in service.ArtifactInput
	var closers []multipart.File

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return in, closers, false
	}

	in.Description = strings.TrimSpace(r.FormValue("description"))
	in.Shape = strings.TrimSpace(r.FormValue("shape"))
	in.Culture = strings.TrimSpace(r.FormValue("culture"))
	for _, t := range strings.Split(r.FormValue("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			in.Tags = append(in.Tags, t)
		}
	}

	in.KeepThumbnail = strings.TrimSpace(r.FormValue("keep_thumbnail"))
	if raw := strings.TrimSpace(r.FormValue("keep_model_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			writeError(w, http.StatusBadRequest, "keep_model_id must be a positive integer")
			return in, closers, false
		}
		in.KeepModelID = &id
	}
	if r.MultipartForm != nil {
		for _, p := range r.MultipartForm.Value["keep_images"] {
			if p = strings.TrimSpace(p); p != "" {
				in.KeepImages = append(in.KeepImages, p)
			}
		}
	}

	if up, f, ok := formUpload(w, r, "new_thumbnail"); !ok {
		return in, closers, false
	} else if up != nil {
		closers = append(closers, f)
		in.NewThumbnail = up
	}

	texture, tf, ok := formUpload(w, r, "new_texture")
	if !ok {
		return in, closers, false
	}
	object, of, ok := formUpload(w, r, "new_object")
	if !ok {
		return in, closers, false
	}
	material, mf, ok := formUpload(w, r, "new_material")
	if !ok {
		return in, closers, false
	}
	switch {
	case texture != nil && object != nil && material != nil:
		closers = append(closers, tf, of, mf)
		in.NewModel = &service.ModelUpload{
			Texture:  *texture,
			Object:   *object,
			Material: *material,
		}
	case texture != nil || object != nil || material != nil:
		for _, f := range []multipart.File{tf, of, mf} {
			if f != nil {
				f.Close()
			}
		}
		writeError(w, http.StatusBadRequest,
			"a model needs new_texture, new_object and new_material together")
		return in, closers, false
	}

	if r.MultipartForm != nil {
		for _, hdr := range r.MultipartForm.File["new_images"] {
			f, err := hdr.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable file in new_images")
				return in, closers, false
			}
			closers = append(closers, f)
			in.NewImages = append(in.NewImages, service.Upload{
				Name: sanitizeFilename(hdr.Filename),
				Data: f,
			})
		}
	}

	return in, closers, true
}

// formUpload opens a single optional file field. A missing field returns
// (nil, nil, true); a present but unreadable one writes the 400 response.
func formUpload(w http.ResponseWriter, r *http.Request, field string) (*service.Upload, multipart.File, bool) {
	f, hdr, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil, true
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable file in "+field)
		return nil, nil, false
	}
	return &service.Upload{Name: sanitizeFilename(hdr.Filename), Data: f}, f, true
}

func closeAll(files []multipart.File) {
	for _, f := range files {
		f.Close()
	}
}
