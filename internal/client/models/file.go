// Package models defines the data types flowing through the media
// ingestion pipeline.
package models

import "time"

// SelectedFile is an immutable descriptor of a locally selected image,
// produced by a picker source. The pipeline never mutates it.
type SelectedFile struct {
	Path        string
	Filename    string
	Size        int64
	ContentType string
	Width       int
	Height      int
	TakenAt     time.Time
}

// AnalysisMode selects the server-side analysis depth requested on
// completion.
type AnalysisMode string

const (
	AnalysisLight     AnalysisMode = "light"
	AnalysisPrecision AnalysisMode = "precision"
)

// MediaRecord is the final, server-confirmed result of one ingested file.
type MediaRecord struct {
	ItemID    string
	MediaID   string
	JobID     string
	GroupID   string
	Filename  string
	SHA256    string
	Duplicate bool
}
