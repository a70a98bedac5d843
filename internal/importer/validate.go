package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/museodigital/catalog/internal/catalog"
)

// Row is one validated spreadsheet row, ready for file matching. The
// identifier is only used to associate archive files; the persisted record
// gets its own id.
type Row struct {
	Line        int // 1-based spreadsheet row, header-adjusted
	Identifier  string
	Description string
	Shape       string
	Culture     string
	Tags        []string
}

// Vocabulary resolves controlled-vocabulary names to existing records.
// Lookups return catalog.ErrNotFound for unknown names.
type Vocabulary interface {
	Shape(ctx context.Context, name string) (catalog.Shape, error)
	Culture(ctx context.Context, name string) (catalog.Culture, error)
	Tag(ctx context.Context, name string) (catalog.Tag, error)
}

// ValidateSheet checks the tabular shape and every row's referential
// integrity against the vocabularies. Validation is exhaustive: all rows are
// checked and all errors are collected, never short-circuited. Error
// messages cite the 1-based spreadsheet row (data row i is row i+2, after
// the header).
//
// The returned rows cover the whole sheet in order; callers must not use
// them unless ok is true.
func ValidateSheet(ctx context.Context, vocab Vocabulary, sheet *Sheet) (ok bool, errs []string, rows []Row, err error) {
	if len(sheet.Header) != ExpectedColumns {
		errs = append(errs, fmt.Sprintf(
			"spreadsheet must have %d columns (identifier, description, shape, culture, tags), found %d",
			ExpectedColumns, len(sheet.Header)))
		return false, errs, nil, nil
	}

	for i, cells := range sheet.Rows {
		line := i + 2

		row := Row{
			Line:        line,
			Identifier:  cells[0],
			Description: cells[1],
			Shape:       cells[2],
			Culture:     cells[3],
			Tags:        splitTags(cells[4]),
		}
		rows = append(rows, row)

		if hasEmptyCell(cells) {
			errs = append(errs, fmt.Sprintf("row %d has empty values", line))
			continue
		}

		if _, lookupErr := vocab.Culture(ctx, row.Culture); lookupErr != nil {
			if !errors.Is(lookupErr, catalog.ErrNotFound) {
				return false, nil, nil, lookupErr
			}
			errs = append(errs, fmt.Sprintf("row %d has an unknown culture: %s", line, row.Culture))
		}
		for _, tag := range row.Tags {
			if _, lookupErr := vocab.Tag(ctx, tag); lookupErr != nil {
				if !errors.Is(lookupErr, catalog.ErrNotFound) {
					return false, nil, nil, lookupErr
				}
				errs = append(errs, fmt.Sprintf("row %d has an unknown tag: %s", line, tag))
			}
		}
		if _, lookupErr := vocab.Shape(ctx, row.Shape); lookupErr != nil {
			if !errors.Is(lookupErr, catalog.ErrNotFound) {
				return false, nil, nil, lookupErr
			}
			errs = append(errs, fmt.Sprintf("row %d has an unknown shape: %s", line, row.Shape))
		}
	}

	return len(errs) == 0, errs, rows, nil
}

func hasEmptyCell(cells []string) bool {
	for _, c := range cells[:ExpectedColumns] {
		if c == "" {
			return true
		}
	}
	return false
}

func splitTags(cell string) []string {
	var out []string
	for _, t := range strings.Split(cell, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
