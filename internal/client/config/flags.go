package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/photovault/internal/client/models"
	"github.com/dmitrijs2005/photovault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the backend API (default from Config)
//	-g string   gallery directory to pick files from
//	-p string   camera capture directory
//	-m string   analysis mode, "light" or "precision"
//	-w int      number of parallel uploads
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-p", "-m", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointURL, "a", cfg.ServerEndpointURL, "base URL of the backend API")
	fs.StringVar(&cfg.GalleryDir, "g", cfg.GalleryDir, "gallery directory")
	fs.StringVar(&cfg.CameraDir, "p", cfg.CameraDir, "camera capture directory")
	mode := fs.String("m", string(cfg.AnalysisMode), "analysis mode (light/precision)")
	fs.IntVar(&cfg.UploadConcurrency, "w", cfg.UploadConcurrency, "number of parallel uploads")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.AnalysisMode = models.AnalysisMode(*mode)
}
