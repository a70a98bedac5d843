package importer

import (
	"fmt"
	"strings"
)

// FileSet is the set of archive files resolved for one row, by role.
// A row is import-eligible iff it has exactly one thumbnail and either at
// least one photograph or a complete model triplet.
type FileSet struct {
	Thumbnail string

	// Model triplet: all three present or the model is absent.
	Object   string
	Material string
	Texture  string

	Photos []string
}

// HasModel reports whether the triplet is complete.
func (f FileSet) HasModel() bool {
	return f.Object != "" && f.Material != "" && f.Texture != ""
}

// MatchedRow couples a validated row with its resolved files.
type MatchedRow struct {
	Row
	Files FileSet
}

// MatchFiles associates each row with its files from the extracted archive.
//
// Rows are processed in input order over a shared pool of not-yet-claimed
// paths: every pool path the row's classifier matches is claimed by that row
// and removed before the next row runs, so the per-row sets strictly
// partition the pool. A file never serves two rows even if its name matches
// both identifiers.
//
// Row-level failures are collected, never fatal to other rows; rows that
// fail are excluded from the returned list (their problems are in errs).
func MatchFiles(rows []Row, paths []string) (ok bool, errs []string, matched []MatchedRow) {
	pool := append([]string(nil), paths...)

	for _, row := range rows {
		c := NewClassifier(row.Identifier)

		var claimed []string
		var rest []string
		for _, p := range pool {
			if c.Matches(p) {
				claimed = append(claimed, p)
			} else {
				rest = append(rest, p)
			}
		}
		pool = rest

		set, rowErrs := buildFileSet(row, claimed)
		if len(rowErrs) > 0 {
			errs = append(errs, rowErrs...)
			continue
		}
		matched = append(matched, MatchedRow{Row: row, Files: set})
	}

	return len(errs) == 0, errs, matched
}

// buildFileSet classifies a row's claimed files and checks completeness.
func buildFileSet(row Row, claimed []string) (FileSet, []string) {
	if len(claimed) == 0 {
		return FileSet{}, []string{fmt.Sprintf(
			"row %d: artifact %s has no files in the archive", row.Line, row.Identifier)}
	}

	var set FileSet
	var thumbnails []string
	for _, p := range claimed {
		switch classifyName(p) {
		case RoleThumbnail:
			thumbnails = append(thumbnails, p)
		case RoleModel:
			lower := strings.ToLower(p)
			switch {
			case strings.HasSuffix(lower, ".obj") && set.Object == "":
				set.Object = p
			case strings.HasSuffix(lower, ".mtl") && set.Material == "":
				set.Material = p
			case strings.HasSuffix(lower, ".jpg") && set.Texture == "":
				set.Texture = p
			}
		case RolePhoto:
			set.Photos = append(set.Photos, p)
		}
	}

	var errs []string
	switch len(thumbnails) {
	case 0:
		errs = append(errs, fmt.Sprintf(
			"row %d: artifact %s has no thumbnail", row.Line, row.Identifier))
	case 1:
		set.Thumbnail = thumbnails[0]
	default:
		errs = append(errs, fmt.Sprintf(
			"row %d: artifact %s has more than one thumbnail: %s",
			row.Line, row.Identifier, strings.Join(thumbnails, ", ")))
	}

	// A model is only required when the row has no photographs; when it is
	// required, each missing triplet member is reported individually.
	if len(set.Photos) == 0 && !set.HasModel() {
		if set.Object == "" {
			errs = append(errs, fmt.Sprintf(
				"row %d: artifact %s has no .obj model file", row.Line, row.Identifier))
		}
		if set.Material == "" {
			errs = append(errs, fmt.Sprintf(
				"row %d: artifact %s has no .mtl material file", row.Line, row.Identifier))
		}
		if set.Texture == "" {
			errs = append(errs, fmt.Sprintf(
				"row %d: artifact %s has no .jpg texture file", row.Line, row.Identifier))
		}
		errs = append(errs, fmt.Sprintf(
			"row %d: artifact %s has no photographs and no complete model",
			row.Line, row.Identifier))
	}

	// An incomplete triplet alongside photographs is tolerated: the stray
	// model files stay claimed by the row but no model is created.
	if !set.HasModel() {
		set.Object, set.Material, set.Texture = "", "", ""
	}

	return set, errs
}
