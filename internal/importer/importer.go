package importer

import (
	"context"
	"io"
	"log/slog"
)

// Result summarizes a pipeline run. Errors holds every validation and
// matching problem found; when it is non-empty nothing was persisted unless
// Imported says otherwise.
type Result struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors,omitempty"`
}

// Pipeline runs bulk imports: spreadsheet plus archive in, artifact records
// out. TempRoot is where extraction workspaces are created; empty means the
// system default.
type Pipeline struct {
	Store    Store
	TempRoot string
	Log      *slog.Logger
}

// Run executes the full import. The extraction workspace is removed before
// Run returns on every path, success or not. A non-nil error means the run
// could not complete (bad inputs or a persistence failure); per-row
// validation and matching problems come back inside the Result instead.
func (p *Pipeline) Run(ctx context.Context, sheetName string, sheet io.Reader, archiveName string, archive io.ReaderAt, archiveSize int64) (*Result, error) {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}

	ws, err := Extract(p.TempRoot, archiveName, archive, archiveSize)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			log.Warn("import workspace cleanup failed", "dir", ws.Dir(), "error", err)
		}
	}()

	parsed, err := ReadSheet(sheetName, sheet)
	if err != nil {
		return nil, err
	}

	ok, errs, rows, err := ValidateSheet(ctx, p.Store, parsed)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Info("import rejected by validation", "errors", len(errs))
		return &Result{Errors: errs}, nil
	}

	ok, errs, matched := MatchFiles(rows, ws.Files())
	if !ok {
		log.Info("import rejected by file matching", "errors", len(errs))
		return &Result{Errors: errs}, nil
	}

	imported, err := Execute(ctx, p.Store, ws, matched)
	if err != nil {
		log.Error("import aborted", "imported", imported, "error", err)
		return &Result{Imported: imported}, err
	}
	log.Info("import complete", "imported", imported)
	return &Result{Imported: imported}, nil
}
