package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/photovault/internal/client/models"
	"github.com/dmitrijs2005/photovault/internal/client/repositories/history"
	"github.com/dmitrijs2005/photovault/internal/client/transport"
	"github.com/dmitrijs2005/photovault/internal/common"
	"github.com/dmitrijs2005/photovault/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.DiscardHandler))
}

// fakeTransport scripts the backend per test. Zero-value behavior is a
// plain non-duplicate upload that succeeds end to end.
type fakeTransport struct {
	mu sync.Mutex

	prepareFn  func(req transport.PrepareRequest) (*transport.PrepareOutcome, error)
	putFn      func(url string, file models.SelectedFile) error
	completeFn func(req transport.CompleteRequest) (*transport.CompleteResult, error)
	groupFn    func(items []transport.GroupItem, primary int) (*transport.GroupResult, error)
	addFn      func(groupID string, items []transport.GroupItem) (*transport.GroupResult, error)

	prepareCalls  int
	putCalls      int
	completeCalls int
	groupCalls    int
	addCalls      int

	putFiles       []string
	lastGroupItems []transport.GroupItem
	lastPrimary    int
	lastGroupID    string
}

func (f *fakeTransport) Prepare(ctx context.Context, req transport.PrepareRequest) (*transport.PrepareOutcome, error) {
	f.mu.Lock()
	f.prepareCalls++
	fn := f.prepareFn
	f.mu.Unlock()

	if fn != nil {
		return fn(req)
	}
	return &transport.PrepareOutcome{
		UploadID:   "up-" + req.Filename,
		StorageKey: "key-" + req.Filename,
		UploadURL:  "https://blob.example/" + req.Filename,
	}, nil
}

func (f *fakeTransport) PutBytes(ctx context.Context, url string, file models.SelectedFile, onProgress func(int)) error {
	f.mu.Lock()
	f.putCalls++
	f.putFiles = append(f.putFiles, file.Filename)
	fn := f.putFn
	f.mu.Unlock()

	if fn != nil {
		if err := fn(url, file); err != nil {
			return err
		}
	}
	if onProgress != nil {
		onProgress(40)
		onProgress(100)
	}
	return nil
}

func (f *fakeTransport) Complete(ctx context.Context, req transport.CompleteRequest) (*transport.CompleteResult, error) {
	f.mu.Lock()
	f.completeCalls++
	fn := f.completeFn
	f.mu.Unlock()

	if fn != nil {
		return fn(req)
	}
	return &transport.CompleteResult{MediaID: "media-" + req.UploadID, JobID: "job-1", Status: "processing"}, nil
}

func (f *fakeTransport) CompleteGroup(ctx context.Context, items []transport.GroupItem, primaryIndex int, mode models.AnalysisMode) (*transport.GroupResult, error) {
	f.mu.Lock()
	f.groupCalls++
	f.lastGroupItems = items
	f.lastPrimary = primaryIndex
	fn := f.groupFn
	f.mu.Unlock()

	if fn != nil {
		return fn(items, primaryIndex)
	}
	return &transport.GroupResult{GroupID: "grp-1", TotalImages: len(items)}, nil
}

func (f *fakeTransport) AddToGroup(ctx context.Context, groupID string, items []transport.GroupItem) (*transport.GroupResult, error) {
	f.mu.Lock()
	f.addCalls++
	f.lastGroupID = groupID
	f.lastGroupItems = items
	fn := f.addFn
	f.mu.Unlock()

	if fn != nil {
		return fn(groupID, items)
	}
	return &transport.GroupResult{GroupID: groupID, AddedImages: len(items), TotalImages: 5}, nil
}

func (f *fakeTransport) SetAccessToken(string) {}

type fakeHasher struct{}

func (fakeHasher) Hash(_ context.Context, path string) string {
	return "hash-" + path
}

type fakeHistory struct {
	mu      sync.Mutex
	records []history.Record
}

func (f *fakeHistory) Insert(_ context.Context, rec *history.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeHistory) List(context.Context, int) ([]history.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]history.Record(nil), f.records...), nil
}

func (f *fakeHistory) FindByHash(context.Context, string) (*history.Record, error) {
	return nil, common.ErrorNotFound
}

func newService(t *testing.T, ft *fakeTransport, opts Options) (*IngestService, *Store, *fakeHistory) {
	t.Helper()
	store := NewStore()
	hist := &fakeHistory{}
	svc := NewIngestService(ft, fakeHasher{}, hist, store, testLogger(), opts)
	return svc, store, hist
}

func selected(name string, size int64) models.SelectedFile {
	return models.SelectedFile{
		Path:        "/photos/" + name,
		Filename:    name,
		Size:        size,
		ContentType: "image/jpeg",
		Width:       640,
		Height:      480,
	}
}

func drainStatuses(store *Store, id string) []models.UploadStatus {
	var out []models.UploadStatus
	for {
		select {
		case snap := <-store.Events():
			for _, it := range snap {
				if it.Id == id {
					if len(out) == 0 || out[len(out)-1] != it.Status {
						out = append(out, it.Status)
					}
				}
			}
		default:
			return out
		}
	}
}

func TestStartUpload_SingleFileHappyPath(t *testing.T) {
	ft := &fakeTransport{}
	svc, store, hist := newService(t, ft, Options{})
	ctx := context.Background()

	ids := svc.Enqueue(ctx, []models.SelectedFile{selected("cat.jpg", 2<<20)})
	require.Len(t, ids, 1)

	records, err := svc.StartUpload(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "media-up-cat.jpg", records[0].MediaID)
	assert.Equal(t, "cat.jpg", records[0].Filename)
	assert.False(t, records[0].Duplicate)

	item, ok := store.Get(ids[0])
	require.True(t, ok)
	assert.Equal(t, models.StatusDone, item.Status)
	assert.Equal(t, 100, item.Progress)
	assert.Equal(t, "media-up-cat.jpg", item.MediaID)
	assert.Equal(t, "hash-/photos/cat.jpg", item.SHA256)

	statuses := drainStatuses(store, ids[0])
	assert.Equal(t, []models.UploadStatus{
		models.StatusIdle, models.StatusHashing, models.StatusPreparing,
		models.StatusUploading, models.StatusCompleting, models.StatusDone,
	}, statuses)

	assert.Equal(t, 1, ft.prepareCalls)
	assert.Equal(t, 1, ft.putCalls)
	assert.Equal(t, 1, ft.completeCalls)

	require.Len(t, hist.records, 1)
	assert.Equal(t, "media-up-cat.jpg", hist.records[0].MediaID)
}

func TestStartUpload_ProgressStaysInBandDuringTransfer(t *testing.T) {
	var seen []int
	ft := &fakeTransport{}
	svc, store, _ := newService(t, ft, Options{})
	ctx := context.Background()

	ids := svc.Enqueue(ctx, []models.SelectedFile{selected("cat.jpg", 1024)})

	ft.putFn = func(string, models.SelectedFile) error {
		item, _ := store.Get(ids[0])
		seen = append(seen, item.Progress)
		return nil
	}

	_, err := svc.StartUpload(ctx)
	require.NoError(t, err)

	// at transfer start the prepare checkpoint (15) is already reported
	require.NotEmpty(t, seen)
	assert.Equal(t, 15, seen[0])
}

func TestStartUpload_OversizedFileShortCircuits(t *testing.T) {
	ft := &fakeTransport{}
	svc, store, _ := newService(t, ft, Options{})
	ctx := context.Background()

	ids := svc.Enqueue(ctx, []models.SelectedFile{selected("huge.jpg", 150<<20)})

	records, err := svc.StartUpload(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	item, _ := store.Get(ids[0])
	assert.Equal(t, models.StatusError, item.Status)
	assert.Contains(t, item.ErrorMessage, "100 MB")

	// no network round trips were spent on it
	assert.Zero(t, ft.prepareCalls)
	assert.Zero(t, ft.putCalls)
	assert.Zero(t, ft.completeCalls)
}

func TestStartUpload_FailureIsIsolated(t *testing.T) {
	ft := &fakeTransport{}
	ft.putFn = func(_ string, file models.SelectedFile) error {
		if file.Filename == "b.jpg" {
			return fmt.Errorf("%w: timeout", common.ErrUnavailable)
		}
		return nil
	}
	svc, store, _ := newService(t, ft, Options{})
	ctx := context.Background()

	ids := svc.Enqueue(ctx, []models.SelectedFile{
		selected("a.jpg", 1024), selected("b.jpg", 1024), selected("c.jpg", 1024),
	})

	records, err := svc.StartUpload(ctx)
	require.NoError(t, err)

	require.Len(t, records, 2, "failed item is excluded, others continue")
	assert.Equal(t, "a.jpg", records[0].Filename)
	assert.Equal(t, "c.jpg", records[1].Filename)

	a, _ := store.Get(ids[0])
	b, _ := store.Get(ids[1])
	c, _ := store.Get(ids[2])
	assert.Equal(t, models.StatusDone, a.Status)
	assert.Equal(t, models.StatusError, b.Status)
	assert.Equal(t, "server unavailable, please try again", b.ErrorMessage)
	assert.Equal(t, models.StatusDone, c.Status)

	// all three were attempted
	assert.Equal(t, 3, ft.prepareCalls)
}

func TestStartUpload_FullDuplicateSkipsTransferAndComplete(t *testing.T) {
	ft := &fakeTransport{}
	ft.prepareFn = func(req transport.PrepareRequest) (*transport.PrepareOutcome, error) {
		return &transport.PrepareOutcome{Duplicate: true, ExistingMediaID: "media-old"}, nil
	}
	svc, store, hist := newService(t, ft, Options{})
	ctx := context.Background()

	ids := svc.Enqueue(ctx, []models.SelectedFile{selected("dup.jpg", 1024)})

	records, err := svc.StartUpload(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "media-old", records[0].MediaID)
	assert.True(t, records[0].Duplicate)

	item, _ := store.Get(ids[0])
	assert.Equal(t, models.StatusDone, item.Status)
	assert.Equal(t, 100, item.Progress)

	assert.Zero(t, ft.putCalls)
	assert.Zero(t, ft.completeCalls)

	require.Len(t, hist.records, 1)
	assert.True(t, hist.records[0].Duplicate)
}

func TestStartUpload_SkipUploadStillCompletes(t *testing.T) {
	ft := &fakeTransport{}
	ft.prepareFn = func(req transport.PrepareRequest) (*transport.PrepareOutcome, error) {
		return &transport.PrepareOutcome{
			Duplicate:  true,
			SkipUpload: true,
			UploadID:   "up-reuse",
			StorageKey: "key-reuse",
		}, nil
	}
	svc, store, _ := newService(t, ft, Options{})
	ctx := context.Background()

	ids := svc.Enqueue(ctx, []models.SelectedFile{selected("dup.jpg", 1024)})

	records, err := svc.StartUpload(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "media-up-reuse", records[0].MediaID)

	assert.Zero(t, ft.putCalls, "byte transfer is skipped entirely")
	assert.Equal(t, 1, ft.completeCalls)

	statuses := drainStatuses(store, ids[0])
	assert.Equal(t, []models.UploadStatus{
		models.StatusIdle, models.StatusHashing, models.StatusPreparing,
		models.StatusCompleting, models.StatusDone,
	}, statuses, "uploading never appears")
}

func TestStartUpload_EmptyBatch(t *testing.T) {
	svc, _, _ := newService(t, &fakeTransport{}, Options{})
	_, err := svc.StartUpload(context.Background())
	require.ErrorIs(t, err, common.ErrEmptyBatch)
}

func TestRetry_AfterTransientFailure(t *testing.T) {
	fail := true
	ft := &fakeTransport{}
	ft.putFn = func(string, models.SelectedFile) error {
		if fail {
			return fmt.Errorf("%w: connection reset", common.ErrUnavailable)
		}
		return nil
	}
	svc, store, _ := newService(t, ft, Options{})
	ctx := context.Background()

	ids := svc.Enqueue(ctx, []models.SelectedFile{selected("a.jpg", 1024)})
	_, err := svc.StartUpload(ctx)
	require.NoError(t, err)

	item, _ := store.Get(ids[0])
	require.Equal(t, models.StatusError, item.Status)

	fail = false
	rec, err := svc.Retry(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "media-up-a.jpg", rec.MediaID)

	item, _ = store.Get(ids[0])
	assert.Equal(t, models.StatusDone, item.Status)
	assert.Equal(t, 100, item.Progress)
}

func TestRetry_RejectsNonErroredItem(t *testing.T) {
	svc, _, _ := newService(t, &fakeTransport{}, Options{})
	ctx := context.Background()

	ids := svc.Enqueue(ctx, []models.SelectedFile{selected("a.jpg", 1024)})
	_, err := svc.Retry(ctx, ids[0])
	require.Error(t, err)
}

func TestStartGroupUpload_DuplicateExcludedAndPrimaryClamped(t *testing.T) {
	// four images, the second is a full duplicate; the caller asked for
	// primary index 2 which must be clamped to the surviving three items
	ft := &fakeTransport{}
	ft.prepareFn = func(req transport.PrepareRequest) (*transport.PrepareOutcome, error) {
		if req.Filename == "img2.jpg" {
			return &transport.PrepareOutcome{Duplicate: true, ExistingMediaID: "media-existing"}, nil
		}
		return &transport.PrepareOutcome{
			UploadID:   "up-" + req.Filename,
			StorageKey: "key-" + req.Filename,
			UploadURL:  "https://blob.example/" + req.Filename,
		}, nil
	}
	svc, store, _ := newService(t, ft, Options{})
	ctx := context.Background()

	ids := svc.Enqueue(ctx, []models.SelectedFile{
		selected("img1.jpg", 1024), selected("img2.jpg", 1024),
		selected("img3.jpg", 1024), selected("img4.jpg", 1024),
	})

	outcome, err := svc.StartGroupUpload(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, "grp-1", outcome.GroupID)
	assert.Equal(t, 3, outcome.NewItems)

	require.Len(t, ft.lastGroupItems, 3)
	assert.Equal(t, "up-img1.jpg", ft.lastGroupItems[0].UploadID)
	assert.Equal(t, "up-img3.jpg", ft.lastGroupItems[1].UploadID)
	assert.Equal(t, "up-img4.jpg", ft.lastGroupItems[2].UploadID)
	assert.Equal(t, 2, ft.lastPrimary, "min(2, 3-1)")

	dup, _ := store.Get(ids[1])
	assert.Equal(t, models.StatusDone, dup.Status)
	assert.Equal(t, "media-existing", dup.MediaID)
	assert.True(t, dup.Duplicate)

	for _, i := range []int{0, 2, 3} {
		item, _ := store.Get(ids[i])
		assert.Equal(t, models.StatusDone, item.Status)
		assert.Equal(t, "grp-1", item.GroupID)
	}
}

func TestStartGroupUpload_PrimaryClampLowerBound(t *testing.T) {
	ft := &fakeTransport{}
	svc, _, _ := newService(t, ft, Options{})
	ctx := context.Background()

	svc.Enqueue(ctx, []models.SelectedFile{selected("a.jpg", 1024)})

	_, err := svc.StartGroupUpload(ctx, -3)
	require.NoError(t, err)
	assert.Equal(t, 0, ft.lastPrimary)
}

func TestStartGroupUpload_AllDuplicatesSkipsGroupCall(t *testing.T) {
	ft := &fakeTransport{}
	ft.prepareFn = func(req transport.PrepareRequest) (*transport.PrepareOutcome, error) {
		return &transport.PrepareOutcome{Duplicate: true, ExistingMediaID: "media-" + req.Filename}, nil
	}
	svc, _, _ := newService(t, ft, Options{})
	ctx := context.Background()

	svc.Enqueue(ctx, []models.SelectedFile{selected("a.jpg", 1024), selected("b.jpg", 1024)})

	outcome, err := svc.StartGroupUpload(ctx, 0)
	require.NoError(t, err)

	assert.Zero(t, ft.groupCalls, "empty groups are never sent")
	assert.Empty(t, outcome.GroupID)
	assert.Equal(t, 0, outcome.NewItems)
	require.Len(t, outcome.Records, 2)
	assert.True(t, outcome.Records[0].Duplicate)
}

func TestStartGroupUpload_CommitFailureLeavesItemsCompleting(t *testing.T) {
	ft := &fakeTransport{}
	ft.groupFn = func([]transport.GroupItem, int) (*transport.GroupResult, error) {
		return nil, errors.New("backend exploded")
	}
	svc, store, _ := newService(t, ft, Options{})
	ctx := context.Background()

	ids := svc.Enqueue(ctx, []models.SelectedFile{selected("a.jpg", 1024), selected("b.jpg", 1024)})

	_, err := svc.StartGroupUpload(ctx, 0)
	require.ErrorIs(t, err, common.ErrGroupCommit)

	// no rollback: the uploaded items stay parked at completing
	for _, id := range ids {
		item, _ := store.Get(id)
		assert.Equal(t, models.StatusCompleting, item.Status)
		assert.Equal(t, 90, item.Progress)
	}
}

func TestStartGroupUpload_ItemFailureAbortsBatch(t *testing.T) {
	ft := &fakeTransport{}
	ft.putFn = func(_ string, file models.SelectedFile) error {
		if file.Filename == "bad.jpg" {
			return errors.New("disk on fire")
		}
		return nil
	}
	svc, store, _ := newService(t, ft, Options{})
	ctx := context.Background()

	ids := svc.Enqueue(ctx, []models.SelectedFile{selected("bad.jpg", 1024), selected("ok.jpg", 1024)})

	_, err := svc.StartGroupUpload(ctx, 0)
	require.Error(t, err)
	assert.Zero(t, ft.groupCalls, "a partial group is never committed")

	bad, _ := store.Get(ids[0])
	assert.Equal(t, models.StatusError, bad.Status)
}

func TestStartGroupUpload_SkipUploadItemsJoinGroup(t *testing.T) {
	ft := &fakeTransport{}
	ft.prepareFn = func(req transport.PrepareRequest) (*transport.PrepareOutcome, error) {
		if req.Filename == "reused.jpg" {
			return &transport.PrepareOutcome{
				Duplicate:  true,
				SkipUpload: true,
				UploadID:   "up-reused",
				StorageKey: "key-reused",
			}, nil
		}
		return &transport.PrepareOutcome{
			UploadID:   "up-" + req.Filename,
			StorageKey: "key-" + req.Filename,
			UploadURL:  "https://blob.example/" + req.Filename,
		}, nil
	}
	svc, _, _ := newService(t, ft, Options{})
	ctx := context.Background()

	svc.Enqueue(ctx, []models.SelectedFile{selected("fresh.jpg", 1024), selected("reused.jpg", 1024)})

	outcome, err := svc.StartGroupUpload(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.NewItems, "skip_upload items still create new records")
	assert.Equal(t, 1, ft.putCalls, "only the fresh file moved bytes")
	require.Len(t, ft.lastGroupItems, 2)
}

func TestAddToExistingGroup(t *testing.T) {
	ft := &fakeTransport{}
	svc, store, _ := newService(t, ft, Options{})
	ctx := context.Background()

	ids := svc.Enqueue(ctx, []models.SelectedFile{selected("extra.jpg", 1024)})

	outcome, err := svc.AddToExistingGroup(ctx, "grp-77")
	require.NoError(t, err)

	assert.Equal(t, "grp-77", ft.lastGroupID)
	assert.Equal(t, 1, ft.addCalls)
	assert.Equal(t, "grp-77", outcome.GroupID)
	assert.Equal(t, 1, outcome.NewItems)

	item, _ := store.Get(ids[0])
	assert.Equal(t, models.StatusDone, item.Status)
	assert.Equal(t, "grp-77", item.GroupID)
}

func TestStartUpload_ResultsKeepInputOrderWithConcurrency(t *testing.T) {
	ft := &fakeTransport{}
	svc, _, _ := newService(t, ft, Options{Concurrency: 3})
	ctx := context.Background()

	var files []models.SelectedFile
	for i := 0; i < 6; i++ {
		files = append(files, selected(fmt.Sprintf("img%d.jpg", i), 1024))
	}
	svc.Enqueue(ctx, files)

	records, err := svc.StartUpload(ctx)
	require.NoError(t, err)
	require.Len(t, records, 6)
	for i, rec := range records {
		assert.Equal(t, fmt.Sprintf("img%d.jpg", i), rec.Filename)
	}
}
