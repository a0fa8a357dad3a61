package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/photovault/internal/client/models"
)

// Pick selects every image in the gallery directory and queues it.
func (a *App) Pick(ctx context.Context) error {
	files, err := a.source.PickFromGallery(ctx)
	if err != nil {
		fmt.Fprintln(a.out, "Cannot read gallery:", err.Error())
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(a.out, "No images found in", a.config.GalleryDir)
		return nil
	}

	a.ingest.Enqueue(ctx, files)
	fmt.Fprintf(a.out, "Queued %d file(s).\n", len(files))
	return nil
}

// Shoot queues the newest capture from the camera directory.
func (a *App) Shoot(ctx context.Context) error {
	file, err := a.source.TakePhoto(ctx)
	if err != nil {
		fmt.Fprintln(a.out, "No capture available:", err.Error())
		return err
	}

	a.ingest.Enqueue(ctx, []models.SelectedFile{*file})
	fmt.Fprintf(a.out, "Queued %s (%d bytes).\n", file.Filename, file.Size)
	return nil
}
