package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/dmitrijs2005/photovault/internal/client/models"
)

var (
	colorDone  = color.New(color.FgGreen)
	colorError = color.New(color.FgRed)
	colorBusy  = color.New(color.FgCyan)
	colorIdle  = color.New(color.FgHiBlack)
)

func statusColor(s models.UploadStatus) *color.Color {
	switch {
	case s == models.StatusDone:
		return colorDone
	case s == models.StatusError:
		return colorError
	case s == models.StatusIdle:
		return colorIdle
	default:
		return colorBusy
	}
}

const barWidth = 20

func progressBar(p int) string {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	filled := p * barWidth / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]"
}

// renderItems prints the numbered queue; the numbers are what the retry
// command accepts.
func renderItems(w io.Writer, items []models.UploadItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "Queue is empty.")
		return
	}
	for i, it := range items {
		line := fmt.Sprintf("%3d. %-32s %s %3d%%  %s", i+1, it.File.Filename, progressBar(it.Progress), it.Progress, it.Status)
		if it.Duplicate {
			line += " (duplicate)"
		}
		if it.ErrorMessage != "" {
			line += " - " + it.ErrorMessage
		}
		statusColor(it.Status).Fprintln(w, line)
	}
}

// renderBatchLine rewrites a single compact progress line for the whole
// batch while an upload is running.
func renderBatchLine(w io.Writer, items []models.UploadItem) {
	if len(items) == 0 {
		return
	}
	var sum, finished, failed int
	for _, it := range items {
		sum += it.Progress
		switch it.Status {
		case models.StatusDone:
			finished++
		case models.StatusError:
			failed++
		}
	}
	overall := sum / len(items)
	line := fmt.Sprintf("%s %3d%%  %d/%d done", progressBar(overall), overall, finished+failed, len(items))
	fmt.Fprintf(w, "\r%-60s", line)
}
