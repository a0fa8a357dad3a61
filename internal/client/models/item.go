package models

import "fmt"

// UploadStatus is the lifecycle state of an UploadItem. Non-error states
// form a total order and an item can only move forward through it.
type UploadStatus string

const (
	StatusIdle       UploadStatus = "idle"
	StatusHashing    UploadStatus = "hashing"
	StatusPreparing  UploadStatus = "preparing"
	StatusUploading  UploadStatus = "uploading"
	StatusCompleting UploadStatus = "completing"
	StatusDone       UploadStatus = "done"
	StatusError      UploadStatus = "error"
)

var statusRank = map[UploadStatus]int{
	StatusIdle:       0,
	StatusHashing:    1,
	StatusPreparing:  2,
	StatusUploading:  3,
	StatusCompleting: 4,
	StatusDone:       5,
}

// Terminal reports whether no further transitions are allowed.
func (s UploadStatus) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// InFlight reports whether the item is between idle and a terminal state.
func (s UploadStatus) InFlight() bool {
	return !s.Terminal() && s != StatusIdle
}

// UploadItem tracks one selected file through the ingestion pipeline.
// All mutation goes through the transition methods below, which enforce
// forward-only status movement, monotonic progress, and immutability
// after a terminal state is reached.
type UploadItem struct {
	Id           string
	File         SelectedFile
	Status       UploadStatus
	Progress     int
	ErrorMessage string
	MediaID      string
	GroupID      string
	SHA256       string
	Duplicate    bool
}

// Advance moves the item forward to next. Skipping intermediate states is
// allowed (duplicate branches jump from preparing straight to completing
// or done); moving backward or out of a terminal state is not.
func (i *UploadItem) Advance(next UploadStatus) error {
	if i.Status.Terminal() {
		return fmt.Errorf("item %s is %s, no further transitions", i.Id, i.Status)
	}
	nr, ok := statusRank[next]
	if !ok {
		return fmt.Errorf("cannot advance to %q", next)
	}
	if nr <= statusRank[i.Status] {
		return fmt.Errorf("cannot move from %s back to %s", i.Status, next)
	}
	i.Status = next
	return nil
}

// SetProgress raises the reported progress. Values below the current one
// are dropped so progress never regresses; values above 100 are capped.
func (i *UploadItem) SetProgress(p int) error {
	if i.Status.Terminal() {
		return fmt.Errorf("item %s is %s, progress is frozen", i.Id, i.Status)
	}
	if p > 100 {
		p = 100
	}
	if p > i.Progress {
		i.Progress = p
	}
	return nil
}

// Fail moves the item to the terminal error state, retaining the progress
// value reached so far.
func (i *UploadItem) Fail(msg string) error {
	if i.Status.Terminal() {
		return fmt.Errorf("item %s is %s, cannot fail", i.Id, i.Status)
	}
	i.Status = StatusError
	i.ErrorMessage = msg
	return nil
}

// ResetForRetry returns an errored item to idle so it can be re-processed.
// Only valid from the error state.
func (i *UploadItem) ResetForRetry() error {
	if i.Status != StatusError {
		return fmt.Errorf("item %s is %s, only errored items can be retried", i.Id, i.Status)
	}
	i.Status = StatusIdle
	i.Progress = 0
	i.ErrorMessage = ""
	return nil
}

// Stats aggregates item states for progress UI.
type Stats struct {
	Total     int
	Pending   int
	Uploading int
	Done      int
	Error     int
}
