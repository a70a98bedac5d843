package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/museodigital/catalog/internal/catalog"
	"github.com/museodigital/catalog/internal/web/middleware"
)

// handleCatalog serves the paginated, filtered catalog listing.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	q := catalog.CatalogQuery{
		Query:   strings.TrimSpace(r.URL.Query().Get("query")),
		Culture: strings.TrimSpace(r.URL.Query().Get("culture")),
		Shape:   strings.TrimSpace(r.URL.Query().Get("shape")),
		Page:    1,
	}
	if raw := r.URL.Query().Get("tags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				q.Tags = append(q.Tags, t)
			}
		}
	}
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		q.Page = page
	}

	page, err := s.service.Catalog(r.Context(), q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleArtifactDetail serves a single artifact with its media records.
func (s *Server) handleArtifactDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := artifactID(w, r)
	if !ok {
		return
	}
	a, err := s.service.Artifact(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleArtifactDownload streams a zip of the artifact's media.
func (s *Server) handleArtifactDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := artifactID(w, r)
	if !ok {
		return
	}
	// Existence is checked before any zip bytes go out so failures can
	// still produce a JSON error response.
	a, err := s.service.Artifact(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "artifact_"+strconv.FormatInt(a.ID, 10)+".zip"))
	if err := s.service.WriteDownloadArchive(r.Context(), id, w); err != nil {
		// Body may be partially written; log and give up.
		s.logError(r, err)
	}
}

// requestArtifactBody is the JSON payload for a download request.
type requestArtifactBody struct {
	Name          string `json:"name"`
	Rut           string `json:"rut"`
	Email         string `json:"email"`
	Comments      string `json:"comments"`
	InstitutionID *int64 `json:"institution_id"`
}

// handleRequestArtifact records a download request for an artifact.
func (s *Server) handleRequestArtifact(w http.ResponseWriter, r *http.Request) {
	id, ok := artifactID(w, r)
	if !ok {
		return
	}

	var body requestArtifactBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req := catalog.Requester{
		Name:          strings.TrimSpace(body.Name),
		Rut:           strings.TrimSpace(body.Rut),
		Email:         strings.TrimSpace(body.Email),
		Comments:      strings.TrimSpace(body.Comments),
		InstitutionID: body.InstitutionID,
		ArtifactID:    id,
	}
	// A request made with a valid token counts as registered.
	if _, authed := middleware.UserFromContext(r.Context()); authed {
		req.IsRegistered = true
	}

	created, err := s.service.RequestArtifact(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleMetadata lists every controlled-vocabulary value.
func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	md, err := s.service.Metadata(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, md)
}

// handleListInstitutions lists all institutions.
func (s *Server) handleListInstitutions(w http.ResponseWriter, r *http.Request) {
	insts, err := s.service.Institutions(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if insts == nil {
		insts = []catalog.Institution{}
	}
	writeJSON(w, http.StatusOK, insts)
}

// handleCreateInstitution registers a new institution.
func (s *Server) handleCreateInstitution(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	inst, err := s.service.CreateInstitution(r.Context(), strings.TrimSpace(body.Name))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

// artifactID extracts and validates the {id} route parameter. It writes the
// 400 response itself when the parameter is not a positive integer.
func artifactID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "artifact id must be a positive integer")
		return 0, false
	}
	return id, true
}

// sanitizeFilename keeps only the final path element of a client-supplied
// file name.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return path.Base(name)
}
