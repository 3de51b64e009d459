// Package flowlog appends opportunity flow events to daily log files: a
// machine-readable JSON-lines file and a human-readable text file per UTC
// day.
package flowlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/domain"
)

// Output formats. FormatBoth writes the JSONL and the text file.
const (
	FormatJSON = "json"
	FormatText = "txt"
	FormatBoth = "both"
)

// Writer appends flow events to flows-YYYY-MM-DD.jsonl and .txt files under
// a directory, rotating when the event's UTC day changes.
type Writer struct {
	dir    string
	format string
	logger *slog.Logger

	mu    sync.Mutex
	day   string
	jsonF *os.File
	textF *os.File
}

// NewWriter creates the log directory if needed. An empty format means both
// files. Files are opened lazily on the first append.
func NewWriter(dir, format string, logger *slog.Logger) (*Writer, error) {
	switch format {
	case "":
		format = FormatBoth
	case FormatJSON, FormatText, FormatBoth:
	default:
		return nil, fmt.Errorf("flowlog: unknown format %q", format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("flowlog: create dir: %w", err)
	}
	return &Writer{
		dir:    dir,
		format: format,
		logger: logger.With(slog.String("component", "flowlog")),
	}, nil
}

// Append writes one event to the daily file(s). The day is taken from the
// event's own timestamp so replayed or delayed events land in the right file.
func (w *Writer) Append(ev domain.FlowEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	day := ev.Time.UTC().Format("2006-01-02")
	if day != w.day {
		if err := w.rotate(day); err != nil {
			return err
		}
	}

	if w.jsonF != nil {
		line, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("flowlog: marshal event: %w", err)
		}
		if _, err := w.jsonF.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("flowlog: write json: %w", err)
		}
	}

	if w.textF != nil {
		if _, err := w.textF.WriteString(formatEvent(ev)); err != nil {
			return fmt.Errorf("flowlog: write text: %w", err)
		}
	}
	return nil
}

// Close closes the current files.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeFiles()
}

// rotate closes the previous day's files and opens the new ones in append
// mode. Caller must hold w.mu.
func (w *Writer) rotate(day string) error {
	if err := w.closeFiles(); err != nil {
		w.logger.Warn("closing previous log files", slog.String("error", err.Error()))
	}

	if w.format != FormatText {
		jsonPath := filepath.Join(w.dir, "flows-"+day+".jsonl")
		jsonF, err := os.OpenFile(jsonPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("flowlog: open %s: %w", jsonPath, err)
		}
		w.jsonF = jsonF
	}

	if w.format != FormatJSON {
		textPath := filepath.Join(w.dir, "flows-"+day+".txt")
		textF, err := os.OpenFile(textPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			if w.jsonF != nil {
				w.jsonF.Close()
				w.jsonF = nil
			}
			return fmt.Errorf("flowlog: open %s: %w", textPath, err)
		}
		w.textF = textF
	}

	w.day = day
	return nil
}

func (w *Writer) closeFiles() error {
	var firstErr error
	for _, f := range []*os.File{w.jsonF, w.textF} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	w.jsonF = nil
	w.textF = nil
	return firstErr
}

// formatEvent renders the human-readable form, one block per event.
func formatEvent(ev domain.FlowEvent) string {
	ts := ev.Time.UTC().Format(time.RFC3339)
	switch ev.Kind {
	case domain.FlowEnd:
		s := fmt.Sprintf("%s END %s %.3f%% after %s", ts, ev.PathID, ev.Value, ev.Duration)
		if ev.Reason != "" {
			s += " (" + ev.Reason + ")"
		}
		return s + "\n"
	default:
		return fmt.Sprintf("%s START %s %.3f%%\n%s\n", ts, ev.PathID, ev.Value, ev.Description)
	}
}
