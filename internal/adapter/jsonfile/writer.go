// Package jsonfile writes station records as one indented JSON document per
// station and realization.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/storm-windfield/internal/domain"
)

// Writer stores each output message under Dir. It implements
// pipeline.BatchLoader.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates dir if needed.
func NewWriter(dir string, logger *slog.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Writer{dir: dir, logger: logger}, nil
}

// LoadBatch writes every message to <scenario>_<realization>_<station>.json,
// replacing any previous file of that name.
func (w *Writer) LoadBatch(ctx context.Context, msgs []domain.OutputMessage) error {
	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(w.dir, FileName(msg))
		var buf bytes.Buffer
		if err := json.Indent(&buf, msg.Value, "", "  "); err != nil {
			return fmt.Errorf("indent %s: %w", path, err)
		}
		buf.WriteByte('\n')
		if err := writeAtomic(path, buf.Bytes()); err != nil {
			return err
		}
	}
	w.logger.Debug("records written", "dir", w.dir, "count", len(msgs))
	return nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// FileName derives the record file name from the message headers and key.
func FileName(msg domain.OutputMessage) string {
	scenario := msg.Headers["scenario_id"]
	if scenario == "" {
		scenario = "scenario"
	}
	realization := msg.Headers["realization"]
	if realization == "" {
		realization = "0"
	}
	return fmt.Sprintf("%s_%s_%s.json", sanitize(scenario), sanitize(realization), sanitize(string(msg.Key)))
}

var unsafeChars = strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-", "..", "-")

func sanitize(s string) string {
	return unsafeChars.Replace(s)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".record-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
