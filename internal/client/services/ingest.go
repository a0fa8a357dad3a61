// Package services contains the client-side ingestion engine: it drives
// selected files through hashing, prepare, byte transfer and completion
// against the upload transport, tracking each file in the item store.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/photovault/internal/client/models"
	"github.com/dmitrijs2005/photovault/internal/client/repositories/history"
	"github.com/dmitrijs2005/photovault/internal/client/transport"
	"github.com/dmitrijs2005/photovault/internal/common"
	"github.com/dmitrijs2005/photovault/internal/hashx"
	"github.com/dmitrijs2005/photovault/internal/logging"
)

// Progress checkpoints. The byte transfer maps its own 0-100 onto the
// band between progressPrepared and progressTransferred so the overall
// bar keeps a familiar feel regardless of file size.
const (
	progressHashStart   = 5
	progressHashDone    = 10
	progressPrepared    = 15
	progressTransferred = 90
)

const uploadBand = progressTransferred - progressPrepared

// DefaultMaxUploadSize is the per-file limit enforced before any network
// round trip.
const DefaultMaxUploadSize = 100 << 20

// GroupOutcome reports the result of a group-mode batch.
type GroupOutcome struct {
	GroupID  string
	NewItems int
	Records  []models.MediaRecord
}

// Options tunes the ingestion engine.
type Options struct {
	// MaxUploadSize is the per-file byte limit; 0 means DefaultMaxUploadSize.
	MaxUploadSize int64
	// Concurrency bounds how many items are processed at once; 0 or 1
	// serializes the batch in input order, which keeps network and memory
	// usage flat on constrained devices.
	Concurrency int
	// Mode is the analysis depth requested on completion.
	Mode models.AnalysisMode
}

// IngestService is the coordinating engine of the upload pipeline.
type IngestService struct {
	transport transport.Client
	hasher    hashx.Hasher
	store     *Store
	history   history.Repository
	log       logging.Logger

	maxUploadSize int64
	concurrency   int
	mode          models.AnalysisMode
}

func NewIngestService(t transport.Client, h hashx.Hasher, hist history.Repository, store *Store, log logging.Logger, opts Options) *IngestService {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = DefaultMaxUploadSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Mode == "" {
		opts.Mode = models.AnalysisLight
	}
	return &IngestService{
		transport:     t,
		hasher:        h,
		store:         store,
		history:       hist,
		log:           log,
		maxUploadSize: opts.MaxUploadSize,
		concurrency:   opts.Concurrency,
		mode:          opts.Mode,
	}
}

// Store exposes the item store for read-only consumers (REPL rendering).
func (s *IngestService) Store() *Store {
	return s.store
}

// Enqueue accepts files into the pipeline and returns the created item ids.
func (s *IngestService) Enqueue(ctx context.Context, files []models.SelectedFile) []string {
	ids := make([]string, 0, len(files))
	for _, f := range files {
		item := s.store.Add(f)
		ids = append(ids, item.Id)
		s.log.Debug(ctx, "file queued", "item_id", item.Id, "filename", f.Filename, "size", f.Size)
	}
	return ids
}

// StartUpload processes every pending item independently. A failure on
// one item is recorded on that item and does not stop the rest; the
// returned slice holds the successfully completed records in input
// order. Callers inspect item state for partial failures.
func (s *IngestService) StartUpload(ctx context.Context) ([]models.MediaRecord, error) {
	ids := s.store.PendingIDs()
	if len(ids) == 0 {
		return nil, common.ErrEmptyBatch
	}

	results := make([]*models.MediaRecord, len(ids))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			rec, err := s.processItem(ctx, id)
			if err != nil {
				s.log.Warn(ctx, "item upload failed", "item_id", id, "error", err)
				return nil // isolated: the item carries the error state
			}
			results[i] = &rec
			return nil
		})
	}
	_ = g.Wait()

	records := make([]models.MediaRecord, 0, len(ids))
	for _, rec := range results {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records, nil
}

// StartGroupUpload uploads every pending item, then commits the
// newly-uploaded ones as a single group with the given primary image.
// Server-side dedup hits are finished immediately with their existing
// media id and excluded from the group; the primary index is clamped to
// stay valid after exclusions. When everything is a duplicate, no group
// call is made at all. Unlike independent mode, an upload failure aborts
// the whole batch: a partial group is never committed.
func (s *IngestService) StartGroupUpload(ctx context.Context, primaryIndex int) (*GroupOutcome, error) {
	return s.runGroup(ctx, func(ctx context.Context, items []transport.GroupItem) (*transport.GroupResult, error) {
		primary := primaryIndex
		if primary >= len(items) {
			primary = len(items) - 1
		}
		if primary < 0 {
			primary = 0
		}
		return s.transport.CompleteGroup(ctx, items, primary, s.mode)
	})
}

// AddToExistingGroup uploads every pending item and appends the
// newly-uploaded ones to an existing group. Dedup and failure semantics
// match StartGroupUpload.
func (s *IngestService) AddToExistingGroup(ctx context.Context, groupID string) (*GroupOutcome, error) {
	return s.runGroup(ctx, func(ctx context.Context, items []transport.GroupItem) (*transport.GroupResult, error) {
		return s.transport.AddToGroup(ctx, groupID, items)
	})
}

// Retry re-runs a single errored item through the independent pipeline.
func (s *IngestService) Retry(ctx context.Context, id string) (models.MediaRecord, error) {
	err := s.store.Update(id, func(it *models.UploadItem) error {
		return it.ResetForRetry()
	})
	if err != nil {
		return models.MediaRecord{}, err
	}
	return s.processItem(ctx, id)
}

type groupCommitFunc func(ctx context.Context, items []transport.GroupItem) (*transport.GroupResult, error)

func (s *IngestService) runGroup(ctx context.Context, commit groupCommitFunc) (*GroupOutcome, error) {
	ids := s.store.PendingIDs()
	if len(ids) == 0 {
		return nil, common.ErrEmptyBatch
	}

	type slot struct {
		record    *models.MediaRecord // set for dedup hits, finished immediately
		candidate *transport.GroupItem
	}
	slots := make([]slot, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			rec, cand, err := s.uploadForGroup(gctx, id)
			if err != nil {
				return err
			}
			slots[i] = slot{record: rec, candidate: cand}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("group upload aborted: %w", err)
	}

	outcome := &GroupOutcome{}
	var items []transport.GroupItem
	var candidateIDs []string
	for i, sl := range slots {
		if sl.record != nil {
			outcome.Records = append(outcome.Records, *sl.record)
		}
		if sl.candidate != nil {
			items = append(items, *sl.candidate)
			candidateIDs = append(candidateIDs, ids[i])
		}
	}

	// every file already existed server-side: nothing to group
	if len(items) == 0 {
		s.log.Info(ctx, "group skipped, all items were duplicates", "items", len(ids))
		return outcome, nil
	}

	result, err := commit(ctx, items)
	if err != nil {
		// items stay at completing; the bytes are uploaded, nothing is rolled back
		return nil, fmt.Errorf("%w: %v", common.ErrGroupCommit, err)
	}

	for i, id := range candidateIDs {
		mediaID := ""
		if i < len(result.MediaIDs) {
			mediaID = result.MediaIDs[i]
		}
		rec, err := s.finishItem(ctx, id, mediaID, "", result.GroupID, false)
		if err != nil {
			s.log.Error(ctx, "failed to finalize grouped item", "item_id", id, "error", err)
			continue
		}
		outcome.Records = append(outcome.Records, rec)
	}
	outcome.GroupID = result.GroupID
	outcome.NewItems = len(items)

	s.log.Info(ctx, "group committed",
		"group_id", result.GroupID, "new_items", len(items), "duplicates", len(ids)-len(items))
	return outcome, nil
}

// processItem drives a single item through the full independent
// lifecycle. On any step failure the item is moved to the error state
// with a user-presentable message and the error is returned.
func (s *IngestService) processItem(ctx context.Context, id string) (models.MediaRecord, error) {
	item, ok := s.store.Get(id)
	if !ok {
		return models.MediaRecord{}, fmt.Errorf("unknown upload item %s", id)
	}

	_, outcome, err := s.hashAndPrepare(ctx, id, item.File)
	if err != nil {
		return models.MediaRecord{}, err
	}

	// fully duplicate: the logical record already exists, reuse it
	if outcome.Duplicate && !outcome.SkipUpload {
		return s.finishItem(ctx, id, outcome.ExistingMediaID, "", "", true)
	}

	if outcome.SkipUpload {
		// bytes already in storage, jump straight past the transfer
		if err := s.transition(id, models.StatusCompleting, progressTransferred); err != nil {
			return models.MediaRecord{}, err
		}
	} else {
		if err := s.transferBytes(ctx, id, item.File, outcome); err != nil {
			return models.MediaRecord{}, err
		}
	}

	res, err := s.transport.Complete(ctx, transport.CompleteRequest{
		UploadID:   outcome.UploadID,
		StorageKey: outcome.StorageKey,
		Mode:       s.mode,
		TakenAt:    item.File.TakenAt,
	})
	if err != nil {
		s.markFailed(ctx, id, userMessage(err))
		return models.MediaRecord{}, err
	}

	return s.finishItem(ctx, id, res.MediaID, res.JobID, "", false)
}

// uploadForGroup runs the per-item part of a group batch: everything up
// to and including the byte transfer, but not completion. Dedup hits are
// finished on the spot and reported as a record instead of a candidate.
func (s *IngestService) uploadForGroup(ctx context.Context, id string) (*models.MediaRecord, *transport.GroupItem, error) {
	item, ok := s.store.Get(id)
	if !ok {
		return nil, nil, fmt.Errorf("unknown upload item %s", id)
	}

	sum, outcome, err := s.hashAndPrepare(ctx, id, item.File)
	if err != nil {
		return nil, nil, err
	}

	if outcome.Duplicate && !outcome.SkipUpload {
		rec, err := s.finishItem(ctx, id, outcome.ExistingMediaID, "", "", true)
		if err != nil {
			return nil, nil, err
		}
		return &rec, nil, nil
	}

	if outcome.SkipUpload {
		if err := s.transition(id, models.StatusCompleting, progressTransferred); err != nil {
			return nil, nil, err
		}
	} else {
		if err := s.transferBytes(ctx, id, item.File, outcome); err != nil {
			return nil, nil, err
		}
	}

	return nil, &transport.GroupItem{
		UploadID:   outcome.UploadID,
		StorageKey: outcome.StorageKey,
		SHA256:     sum,
	}, nil
}

// hashAndPrepare covers the shared head of both modes: size gate,
// fingerprint, prepare round trip.
func (s *IngestService) hashAndPrepare(ctx context.Context, id string, file models.SelectedFile) (string, *transport.PrepareOutcome, error) {
	if file.Size > s.maxUploadSize {
		msg := fmt.Sprintf("%s is larger than the %d MB upload limit", file.Filename, s.maxUploadSize>>20)
		s.markFailed(ctx, id, msg)
		return "", nil, fmt.Errorf("%w: %s (%d bytes)", common.ErrFileTooLarge, file.Filename, file.Size)
	}

	if err := s.transition(id, models.StatusHashing, progressHashStart); err != nil {
		return "", nil, err
	}

	sum := s.hasher.Hash(ctx, file.Path)
	err := s.store.Update(id, func(it *models.UploadItem) error {
		it.SHA256 = sum
		return it.SetProgress(progressHashDone)
	})
	if err != nil {
		return "", nil, err
	}

	if err := s.transition(id, models.StatusPreparing, 0); err != nil {
		return "", nil, err
	}

	outcome, err := s.transport.Prepare(ctx, transport.PrepareRequest{
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Size:        file.Size,
		SHA256:      sum,
		Width:       file.Width,
		Height:      file.Height,
	})
	if err != nil {
		s.markFailed(ctx, id, userMessage(err))
		return "", nil, err
	}
	s.setProgress(id, progressPrepared)

	return sum, outcome, nil
}

// transferBytes PUTs the file to the presigned URL, mapping transfer
// progress onto the 15-90 band, and parks the item at completing.
func (s *IngestService) transferBytes(ctx context.Context, id string, file models.SelectedFile, outcome *transport.PrepareOutcome) error {
	if err := s.transition(id, models.StatusUploading, 0); err != nil {
		return err
	}

	err := s.transport.PutBytes(ctx, outcome.UploadURL, file, func(pct int) {
		s.setProgress(id, progressPrepared+pct*uploadBand/100)
	})
	if err != nil {
		s.markFailed(ctx, id, userMessage(err))
		return err
	}

	return s.transition(id, models.StatusCompleting, progressTransferred)
}

// finishItem records the terminal success state and writes the journal
// entry. Journal failures are logged, never surfaced: the upload itself
// succeeded.
func (s *IngestService) finishItem(ctx context.Context, id, mediaID, jobID, groupID string, duplicate bool) (models.MediaRecord, error) {
	var rec models.MediaRecord
	err := s.store.Update(id, func(it *models.UploadItem) error {
		if err := it.SetProgress(100); err != nil {
			return err
		}
		if err := it.Advance(models.StatusDone); err != nil {
			return err
		}
		it.MediaID = mediaID
		it.GroupID = groupID
		it.Duplicate = duplicate
		rec = models.MediaRecord{
			ItemID:    it.Id,
			MediaID:   mediaID,
			JobID:     jobID,
			GroupID:   groupID,
			Filename:  it.File.Filename,
			SHA256:    it.SHA256,
			Duplicate: duplicate,
		}
		return nil
	})
	if err != nil {
		return models.MediaRecord{}, err
	}

	if s.history != nil {
		item, _ := s.store.Get(id)
		herr := s.history.Insert(ctx, &history.Record{
			MediaID:    mediaID,
			Filename:   item.File.Filename,
			SHA256:     item.SHA256,
			ByteSize:   item.File.Size,
			Width:      item.File.Width,
			Height:     item.File.Height,
			GroupID:    groupID,
			Duplicate:  duplicate,
			UploadedAt: time.Now().UTC(),
		})
		if herr != nil {
			s.log.Warn(ctx, "failed to journal upload", "item_id", id, "error", herr)
		}
	}

	s.log.Info(ctx, "item done", "item_id", id, "media_id", mediaID, "duplicate", duplicate)
	return rec, nil
}

func (s *IngestService) transition(id string, next models.UploadStatus, progress int) error {
	return s.store.Update(id, func(it *models.UploadItem) error {
		if err := it.Advance(next); err != nil {
			return err
		}
		if progress > 0 {
			return it.SetProgress(progress)
		}
		return nil
	})
}

func (s *IngestService) setProgress(id string, p int) {
	_ = s.store.Update(id, func(it *models.UploadItem) error {
		return it.SetProgress(p)
	})
}

func (s *IngestService) markFailed(ctx context.Context, id, msg string) {
	err := s.store.Update(id, func(it *models.UploadItem) error {
		return it.Fail(msg)
	})
	if err != nil {
		s.log.Error(ctx, "failed to record item error", "item_id", id, "error", err)
	}
}

// userMessage turns transport errors into a string fit for the UI.
func userMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrUnavailable):
		return "server unavailable, please try again"
	case errors.Is(err, common.ErrUnauthorized):
		return "authorization required, set a valid access token"
	default:
		return err.Error()
	}
}
