package web

import (
	"context"
	"net/http"
)

// handleBulkImport runs the spreadsheet + archive import pipeline.
//
// Multipart fields: "spreadsheet" (.xlsx or .csv) and "archive" (.zip).
// Responses: 201 {"imported": N} on success; 400 {"detail", "errors"} when
// validation or file matching collected row errors; 500 with a single
// aggregate message when persistence fails mid-run.
func (s *Server) handleBulkImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	sheet, sheetHdr, err := r.FormFile("spreadsheet")
	if err != nil {
		writeError(w, http.StatusBadRequest, "a spreadsheet file is required")
		return
	}
	defer sheet.Close()

	archive, archiveHdr, err := r.FormFile("archive")
	if err != nil {
		writeError(w, http.StatusBadRequest, "an archive file is required")
		return
	}
	defer archive.Close()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()

	res, err := s.service.BulkImport(ctx,
		sanitizeFilename(sheetHdr.Filename), sheet,
		sanitizeFilename(archiveHdr.Filename), archive, archiveHdr.Size)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if len(res.Errors) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Detail: "import rejected",
			Errors: res.Errors,
		})
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
