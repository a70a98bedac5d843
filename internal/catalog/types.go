// Package catalog defines the domain model for the artifact catalog and the
// service layer that ties persistence, media storage and the bulk import
// pipeline together.
package catalog

import "errors"

// ErrNotFound is returned by lookups when no record matches.
// Store implementations wrap it so callers can test with errors.Is.
var ErrNotFound = errors.New("not found")

// Shape is a controlled-vocabulary record describing an artifact's form.
type Shape struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Culture is a controlled-vocabulary record for the originating culture.
type Culture struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Tag is a free-form label from the controlled tag vocabulary.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Institution identifies an organization that may request artifacts.
type Institution struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Thumbnail is the catalog image shown for an artifact. The descriptor is a
// spatial grayscale histogram computed when the file is stored; similarity
// search reads it, nothing in this service does.
type Thumbnail struct {
	ID         int64  `json:"id"`
	Path       string `json:"path"`
	Descriptor string `json:"-"`
}

// Model is a 3-D model triplet. The (texture, object, material) set is
// unique across the system.
type Model struct {
	ID       int64  `json:"id"`
	Texture  string `json:"texture"`
	Object   string `json:"object"`
	Material string `json:"material"`
}

// Image is a photograph linked to an artifact. ArtifactID is nil while an
// image is uploaded but not yet attached.
type Image struct {
	ID         int64  `json:"id"`
	ArtifactID *int64 `json:"artifact_id,omitempty"`
	Path       string `json:"path"`
	Descriptor string `json:"-"`
}

// Artifact is a cataloged piece with its owned media and vocabulary links.
type Artifact struct {
	ID          int64      `json:"id"`
	Description string     `json:"description"`
	Thumbnail   *Thumbnail `json:"thumbnail,omitempty"`
	Model       *Model     `json:"model,omitempty"`
	Shape       *Shape     `json:"shape,omitempty"`
	Culture     *Culture   `json:"culture,omitempty"`
	Tags        []Tag      `json:"tags"`
	Images      []Image    `json:"images"`
}

// ArtifactParams are the persisted scalar fields of an artifact record.
// Nil references clear the corresponding link.
type ArtifactParams struct {
	Description string
	ThumbnailID *int64
	ModelID     *int64
	ShapeID     *int64
	CultureID   *int64
}

// User roles. Curators and admins may create, update and bulk-import
// artifacts; everyone else has read-only access.
const (
	RoleCurator = "curator"
	RoleAdmin   = "admin"
)

// User is an authenticated catalog user.
type User struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	Rut           string `json:"rut"`
	Role          string `json:"role"`
	InstitutionID *int64 `json:"institution_id,omitempty"`
}

// CanWrite reports whether the user may mutate the catalog.
func (u User) CanWrite() bool {
	return u.Role == RoleCurator || u.Role == RoleAdmin
}

// Requester records a download request for a single artifact.
type Requester struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Rut           string `json:"rut"`
	Email         string `json:"email"`
	Comments      string `json:"comments,omitempty"`
	IsRegistered  bool   `json:"is_registered"`
	InstitutionID *int64 `json:"institution_id,omitempty"`
	ArtifactID    int64  `json:"artifact_id"`
}
