package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/photovault/internal/client/models"
	"github.com/dmitrijs2005/photovault/internal/client/services"
	"github.com/dmitrijs2005/photovault/internal/common"
)

// Upload sends every queued file independently and prints the confirmed
// records. Per-item failures are reported but do not fail the command.
func (a *App) Upload(ctx context.Context) error {
	stop := a.watchProgress(ctx)
	records, err := a.ingest.StartUpload(ctx)
	stop()

	if err != nil {
		if errors.Is(err, common.ErrEmptyBatch) {
			fmt.Fprintln(a.out, "Nothing queued; run 'pick' or 'shoot' first.")
			return nil
		}
		colorError.Fprintln(a.out, "Upload failed:", err.Error())
		return err
	}

	for _, rec := range records {
		a.printRecord(rec)
	}
	a.printFailures()
	return nil
}

// Group sends every queued file and commits the new ones as a single
// group with the given primary image index.
func (a *App) Group(ctx context.Context, primary int) error {
	stop := a.watchProgress(ctx)
	outcome, err := a.ingest.StartGroupUpload(ctx, primary)
	stop()

	if err != nil {
		if errors.Is(err, common.ErrEmptyBatch) {
			fmt.Fprintln(a.out, "Nothing queued; run 'pick' or 'shoot' first.")
			return nil
		}
		colorError.Fprintln(a.out, "Group upload failed:", err.Error())
		return err
	}

	a.printGroupOutcome(outcome)
	return nil
}

// AddToGroup sends every queued file into an already existing group.
func (a *App) AddToGroup(ctx context.Context, groupID string) error {
	stop := a.watchProgress(ctx)
	outcome, err := a.ingest.AddToExistingGroup(ctx, groupID)
	stop()

	if err != nil {
		if errors.Is(err, common.ErrEmptyBatch) {
			fmt.Fprintln(a.out, "Nothing queued; run 'pick' or 'shoot' first.")
			return nil
		}
		colorError.Fprintln(a.out, "Group upload failed:", err.Error())
		return err
	}

	a.printGroupOutcome(outcome)
	return nil
}

// Retry re-runs a failed item identified by its number in the list output.
func (a *App) Retry(ctx context.Context, n int) error {
	items := a.ingest.Store().Items()
	if n < 1 || n > len(items) {
		fmt.Fprintf(a.out, "No item %d; run 'list' to see the queue.\n", n)
		return nil
	}

	rec, err := a.ingest.Retry(ctx, items[n-1].Id)
	if err != nil {
		colorError.Fprintln(a.out, "Retry failed:", err.Error())
		return err
	}

	a.printRecord(rec)
	return nil
}

// watchProgress consumes store snapshots and keeps a single compact
// progress line updated while a batch runs. The returned stop function
// blocks until the watcher goroutine has exited.
func (a *App) watchProgress(ctx context.Context) (stop func()) {
	wctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		events := a.ingest.Store().Events()
		for {
			select {
			case <-wctx.Done():
				return
			case snap := <-events:
				renderBatchLine(a.out, snap)
			}
		}
	}()

	return func() {
		cancel()
		<-done
		fmt.Fprintln(a.out)
	}
}

func (a *App) printRecord(rec models.MediaRecord) {
	if rec.Duplicate {
		colorBusy.Fprintf(a.out, "%s already uploaded, reusing media %s\n", rec.Filename, rec.MediaID)
		return
	}
	colorDone.Fprintf(a.out, "%s uploaded, media %s\n", rec.Filename, rec.MediaID)
}

func (a *App) printGroupOutcome(outcome *services.GroupOutcome) {
	for _, rec := range outcome.Records {
		a.printRecord(rec)
	}
	if outcome.GroupID == "" {
		fmt.Fprintln(a.out, "All files were duplicates; no group created.")
		return
	}
	colorDone.Fprintf(a.out, "Group %s committed with %d new image(s).\n", outcome.GroupID, outcome.NewItems)
}

func (a *App) printFailures() {
	for _, it := range a.ingest.Store().Items() {
		if it.Status == models.StatusError {
			colorError.Fprintf(a.out, "%s failed: %s\n", it.File.Filename, it.ErrorMessage)
		}
	}
}
