package history

import (
	"context"
	"time"
)

// Record is one confirmed upload kept in the local journal. It exists so
// the user can see what already lives on the server without a network
// round trip.
type Record struct {
	MediaID    string
	Filename   string
	SHA256     string
	ByteSize   int64
	Width      int
	Height     int
	GroupID    string
	Duplicate  bool
	UploadedAt time.Time
}

// Repository describes the persistence operations for upload records.
type Repository interface {
	// Insert appends a confirmed upload to the journal.
	Insert(ctx context.Context, rec *Record) error

	// List returns the most recent records, newest first. limit <= 0
	// means no limit.
	List(ctx context.Context, limit int) ([]Record, error)

	// FindByHash returns the most recent record with the given
	// fingerprint, or common.ErrorNotFound.
	FindByHash(ctx context.Context, sha256 string) (*Record, error)
}
