package importer

import (
	"path"
	"regexp"
	"strings"
)

// FileRole classifies a matched file within a row's file set.
type FileRole int

const (
	// RoleNone means the file does not belong to the identifier.
	RoleNone FileRole = iota

	// RoleThumbnail is the catalog thumbnail (name contains "thumbnail").
	RoleThumbnail

	// RoleModel covers 3-D model files (name contains "obj"); the triplet
	// members are told apart by extension (.obj / .mtl / .jpg).
	RoleModel

	// RolePhoto is a plain photograph (.jpg or .png, not thumbnail or model).
	RolePhoto
)

// Classifier decides, for one row identifier, whether a candidate file
// belongs to the row and in which role. It is pure string matching with no
// filesystem dependency, so the association rules are testable in isolation
// from the extraction workspace.
//
// The identifier must appear in the file's final path segment as a distinct
// token: bounded on each side by the segment edge or one of the separator
// characters ". , / _ \ -". Leading zeros directly before the identifier
// are tolerated ("012_a.jpg" matches identifier "12") but a longer numeric
// token is not ("120_a.jpg" does not).
type Classifier struct {
	re *regexp.Regexp
}

// NewClassifier compiles the matcher for one identifier.
func NewClassifier(identifier string) *Classifier {
	return &Classifier{
		re: regexp.MustCompile(
			`(?:^|[.,/_\\-])0*` + regexp.QuoteMeta(identifier) + `(?:$|[.,/_\\-])`),
	}
}

// Matches reports whether the file at relPath belongs to the identifier.
func (c *Classifier) Matches(relPath string) bool {
	return c.re.MatchString(path.Base(path.Clean(toSlash(relPath))))
}

// Role returns the file's role within the row, or RoleNone when the file
// does not belong to the identifier at all.
func (c *Classifier) Role(relPath string) FileRole {
	if !c.Matches(relPath) {
		return RoleNone
	}
	return classifyName(relPath)
}

// classifyName assigns a role by name alone. Thumbnail wins over model for
// pathological names containing both markers.
func classifyName(relPath string) FileRole {
	name := strings.ToLower(path.Base(toSlash(relPath)))
	switch {
	case strings.Contains(name, "thumbnail"):
		return RoleThumbnail
	case strings.Contains(name, "obj"):
		return RoleModel
	case strings.HasSuffix(name, ".jpg") || strings.HasSuffix(name, ".png"):
		return RolePhoto
	default:
		return RoleNone
	}
}

// toSlash normalizes backslash separators from archives built on Windows.
func toSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
