// Package catalog owns the catalog entry model and its persistence. The
// sqlite store is the sole writer of enrichment fields; user edits always win
// over provider data (fill-if-null).
package catalog

// Enrichment field names. These double as the column names in the sqlite
// store and as the keys accepted in patches.
const (
	FieldPosterURL       = "poster_url"
	FieldBackdropURL     = "backdrop_url"
	FieldDescription     = "description"
	FieldDirector        = "director"
	FieldActors          = "actors"
	FieldAvailableImages = "available_images"
	FieldInfoPageLink    = "info_page_link"
	FieldExternalID      = "external_id"
)

// EnrichableFields lists every field the pipeline is allowed to fill, in the
// order they appear in reports.
var EnrichableFields = []string{
	FieldPosterURL,
	FieldBackdropURL,
	FieldDescription,
	FieldDirector,
	FieldActors,
	FieldAvailableImages,
	FieldInfoPageLink,
	FieldExternalID,
}

// Entry is one user-owned catalog record. Empty strings, zero years and nil
// slices mean the field has no value yet.
type Entry struct {
	ID              int64
	Title           string
	Year            int
	CatalogueNumber string
	PosterURL       string
	BackdropURL     string
	Description     string
	Director        string
	Actors          []string
	AvailableImages []string
	InfoPageLink    string
	ExternalID      string
}

// Queryable reports whether the entry carries enough identity to be resolved
// against any provider.
func (e *Entry) Queryable() bool {
	return e.CatalogueNumber != "" || e.Title != ""
}

// HasField reports whether the named enrichment field already has a value.
func (e *Entry) HasField(field string) bool {
	switch field {
	case FieldPosterURL:
		return e.PosterURL != ""
	case FieldBackdropURL:
		return e.BackdropURL != ""
	case FieldDescription:
		return e.Description != ""
	case FieldDirector:
		return e.Director != ""
	case FieldActors:
		return len(e.Actors) > 0
	case FieldAvailableImages:
		return len(e.AvailableImages) > 0
	case FieldInfoPageLink:
		return e.InfoPageLink != ""
	case FieldExternalID:
		return e.ExternalID != ""
	default:
		return false
	}
}

// ValidField reports whether field names an enrichable field.
func ValidField(field string) bool {
	for _, f := range EnrichableFields {
		if f == field {
			return true
		}
	}
	return false
}
