package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/photovault/internal/client/models"
	"github.com/dmitrijs2005/photovault/internal/flagx"
	"github.com/dmitrijs2005/photovault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Timeouts
// rely on timex.Duration so JSON can specify them either as strings like
// "120s" or as integer nanoseconds. After parsing, values are copied
// into the runtime Config.
type JsonConfig struct {
	ServerEndpointURL string         `json:"server_endpoint_url"`
	GalleryDir        string         `json:"gallery_dir"`
	CameraDir         string         `json:"camera_dir"`
	DataDir           string         `json:"data_dir"`
	RequestTimeout    timex.Duration `json:"request_timeout"`
	UploadTimeout     timex.Duration `json:"upload_timeout"`
	MaxUploadSize     int64          `json:"max_upload_size"`
	UploadConcurrency int            `json:"upload_concurrency"`
	AnalysisMode      string         `json:"analysis_mode"`
}

// parseJson overlays Config with values loaded from a JSON file selected
// via the -c/-config flags. Keys absent from the file keep their current
// values. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointURL != "" {
		cfg.ServerEndpointURL = jc.ServerEndpointURL
	}
	if jc.GalleryDir != "" {
		cfg.GalleryDir = jc.GalleryDir
	}
	if jc.CameraDir != "" {
		cfg.CameraDir = jc.CameraDir
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.UploadTimeout.Duration != 0 {
		cfg.UploadTimeout = time.Duration(jc.UploadTimeout.Duration)
	}
	if jc.MaxUploadSize != 0 {
		cfg.MaxUploadSize = jc.MaxUploadSize
	}
	if jc.UploadConcurrency != 0 {
		cfg.UploadConcurrency = jc.UploadConcurrency
	}
	if jc.AnalysisMode != "" {
		cfg.AnalysisMode = models.AnalysisMode(jc.AnalysisMode)
	}
}
