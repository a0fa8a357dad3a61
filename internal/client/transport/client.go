// Package transport implements the client side of the backend upload
// contract: the prepare/complete REST operations and the presigned-URL
// byte transfer to blob storage.
package transport

import (
	"context"
	"time"

	"github.com/dmitrijs2005/photovault/internal/client/models"
)

// PrepareRequest carries the file metadata the server needs for its
// dedup check and storage allocation.
type PrepareRequest struct {
	Filename    string
	ContentType string
	Size        int64
	SHA256      string
	Width       int
	Height      int
}

// PrepareOutcome is the server's decision for one file. Exactly one of
// three shapes comes back:
//
//   - Duplicate=false: a fresh upload slot (UploadID, StorageKey,
//     UploadURL) the caller must PUT bytes to.
//   - Duplicate=true, SkipUpload=false: the logical record already
//     exists; ExistingMediaID identifies it and no bytes move.
//   - Duplicate=true, SkipUpload=true: the bytes already exist in
//     storage but a new logical record should be created by reference;
//     UploadID/StorageKey are reusable and the PUT step is skipped.
type PrepareOutcome struct {
	Duplicate       bool
	SkipUpload      bool
	ExistingMediaID string
	UploadID        string
	StorageKey      string
	UploadURL       string
}

// CompleteRequest finalizes a single independent upload.
type CompleteRequest struct {
	UploadID   string
	StorageKey string
	Mode       models.AnalysisMode
	TakenAt    time.Time // zero value means unknown, omitted on the wire
}

// CompleteResult is the server acknowledgement of a completed upload.
type CompleteResult struct {
	MediaID string
	JobID   string
	Status  string
	Message string
}

// GroupItem references one already-uploaded file inside a group request.
type GroupItem struct {
	UploadID   string
	StorageKey string
	SHA256     string
}

// GroupResult is the server acknowledgement of a group commit.
type GroupResult struct {
	GroupID     string
	TotalImages int
	AddedImages int
	MediaIDs    []string
}

// Client is the upload transport consumed by the ingestion service.
// Operations do not retry; retrying is the caller's decision.
type Client interface {
	// Prepare asks the server for an upload slot or a dedup verdict.
	Prepare(ctx context.Context, req PrepareRequest) (*PrepareOutcome, error)

	// PutBytes streams the file to the presigned URL, reporting integer
	// percentage progress (monotonically increasing, 0–100) through
	// onProgress. onProgress may be nil.
	PutBytes(ctx context.Context, url string, file models.SelectedFile, onProgress func(int)) error

	// Complete finalizes a single upload and returns the confirmed media
	// record identifiers.
	Complete(ctx context.Context, req CompleteRequest) (*CompleteResult, error)

	// CompleteGroup commits all referenced uploads as one group with the
	// given primary image. The call is atomic on the server side.
	CompleteGroup(ctx context.Context, items []GroupItem, primaryIndex int, mode models.AnalysisMode) (*GroupResult, error)

	// AddToGroup appends already-uploaded files to an existing group.
	AddToGroup(ctx context.Context, groupID string, items []GroupItem) (*GroupResult, error)

	// SetAccessToken replaces the bearer token attached to API requests.
	SetAccessToken(token string)
}
