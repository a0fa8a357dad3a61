package cli

import (
	"context"
	"fmt"
)

// List shows the session queue with per-item progress.
func (a *App) List(ctx context.Context) error {
	renderItems(a.out, a.ingest.Store().Items())
	return nil
}

// Stats prints session totals.
func (a *App) Stats(ctx context.Context) error {
	s := a.ingest.Store().Stats()
	fmt.Fprintf(a.out, "Total: %d, pending: %d, in flight: %d, done: %d, failed: %d\n",
		s.Total, s.Pending, s.Uploading, s.Done, s.Error)
	return nil
}

// History prints recent confirmed uploads from the local journal.
func (a *App) History(ctx context.Context) error {
	records, err := a.repos.History.List(ctx, 20)
	if err != nil {
		colorError.Fprintln(a.out, "Cannot read history:", err.Error())
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No uploads recorded yet.")
		return nil
	}
	for _, rec := range records {
		line := fmt.Sprintf("%s  %-32s media %s", rec.UploadedAt.Format("2006-01-02 15:04"), rec.Filename, rec.MediaID)
		if rec.GroupID != "" {
			line += "  group " + rec.GroupID
		}
		if rec.Duplicate {
			line += "  (duplicate)"
		}
		fmt.Fprintln(a.out, line)
	}
	return nil
}

// Clear discards the session queue.
func (a *App) Clear(ctx context.Context) error {
	a.ingest.Store().Clear()
	fmt.Fprintln(a.out, "Queue cleared.")
	return nil
}
