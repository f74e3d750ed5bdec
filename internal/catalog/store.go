package catalog

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the entry no longer exists (e.g. it was
	// deleted mid-run). Upstream treats it as a non-fatal failed outcome.
	ErrNotFound = errors.New("catalog entry not found")

	// ErrUnknownField is returned when a patch or field filter names a field
	// the pipeline does not own.
	ErrUnknownField = errors.New("unknown enrichment field")
)

// Store is the catalog persistence surface the pipeline consumes. The
// surrounding application owns the schema and all non-enrichment writes.
type Store interface {
	// GetEntry fetches one entry by id. Returns ErrNotFound if it is gone.
	GetEntry(ctx context.Context, id int64) (*Entry, error)

	// ListMissing returns queryable entries where at least one of the given
	// enrichment fields has no value yet, ordered by id ascending and bounded
	// by limit.
	ListMissing(ctx context.Context, fields []string, limit int) ([]Entry, error)

	// ApplyPatch writes the patch fields whose stored value is still empty;
	// fields that already have a value are silently dropped. Patch values are
	// string or []string depending on the field. Returns ErrNotFound if the
	// entry vanished.
	ApplyPatch(ctx context.Context, id int64, patch map[string]any) error

	// InsertEntry adds a new entry and returns it with its assigned id.
	InsertEntry(ctx context.Context, e Entry) (*Entry, error)

	// Close releases the underlying database handle.
	Close() error
}
