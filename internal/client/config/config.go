package config

import (
	"time"

	"github.com/dmitrijs2005/photovault/internal/client/models"
)

// Config holds runtime settings for the PhotoVault CLI.
type Config struct {
	// ServerEndpointURL is the base URL of the backend REST API.
	ServerEndpointURL string
	// GalleryDir is the directory scanned when picking from the gallery.
	GalleryDir string
	// CameraDir is the directory new captures land in.
	CameraDir string
	// DataDir holds the local upload journal; empty means a per-user
	// default resolved at startup.
	DataDir string
	// RequestTimeout bounds API round trips (prepare, complete, group).
	RequestTimeout time.Duration
	// UploadTimeout bounds a single presigned-URL byte transfer.
	UploadTimeout time.Duration
	// MaxUploadSize is the per-file byte limit checked before hashing.
	MaxUploadSize int64
	// UploadConcurrency bounds parallel item processing; 1 keeps batches
	// strictly sequential.
	UploadConcurrency int
	// AnalysisMode is the processing depth requested on completion.
	AnalysisMode models.AnalysisMode
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointURL = "http://127.0.0.1:8080"
	c.GalleryDir = "."
	c.CameraDir = "."
	c.DataDir = ""
	c.RequestTimeout = 30 * time.Second
	c.UploadTimeout = 120 * time.Second
	c.MaxUploadSize = 100 << 20
	c.UploadConcurrency = 1
	c.AnalysisMode = models.AnalysisLight
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
