// Package picker supplies locally selected images to the ingestion
// pipeline. It models the device photo picker and camera at their
// boundary: files come from a gallery directory, camera captures appear
// in a separate handoff directory.
package picker

import (
	"context"

	"github.com/dmitrijs2005/photovault/internal/client/models"
)

// Source produces SelectedFile descriptors for the pipeline. Failures
// here stay outside the upload state machine: a file that cannot be
// described is simply not offered.
type Source interface {
	// PickFromGallery lists the images currently available for selection.
	PickFromGallery(ctx context.Context) ([]models.SelectedFile, error)

	// TakePhoto returns the most recent camera capture.
	TakePhoto(ctx context.Context) (*models.SelectedFile, error)
}
