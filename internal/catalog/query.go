package catalog

// CatalogPageSize is the number of artifacts per catalog page.
const CatalogPageSize = 9

// CatalogQuery carries the catalog listing filters. Zero values mean
// "no filter"; Tags requires every listed tag to be present.
type CatalogQuery struct {
	// Query matches case-insensitively against the description, or against
	// the artifact id when numeric.
	Query string

	// Culture and Shape match their vocabulary name case-insensitively.
	Culture string
	Shape   string

	// Tags lists tag names that must all be attached.
	Tags []string

	// Page is 1-based.
	Page int
}

// CatalogEntry is the summary row shown in the catalog listing.
type CatalogEntry struct {
	ID          int64    `json:"id"`
	Description string   `json:"description"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Shape       string   `json:"shape,omitempty"`
	Culture     string   `json:"culture,omitempty"`
	Tags        []string `json:"tags"`
}

// AvailableFilters lists the vocabulary values present in a filtered
// catalog result, so clients can narrow filters without dead ends.
type AvailableFilters struct {
	Cultures []string `json:"cultures"`
	Shapes   []string `json:"shapes"`
	Tags     []string `json:"tags"`
}

// CatalogPage is one page of catalog results.
type CatalogPage struct {
	CurrentPage int              `json:"current_page"`
	Total       int64            `json:"total"`
	PerPage     int              `json:"per_page"`
	TotalPages  int              `json:"total_pages"`
	Data        []CatalogEntry   `json:"data"`
	Filters     AvailableFilters `json:"filters"`
}
