// Package export writes snapshots of the medicine catalog.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"medshelf/m/domain"
	"medshelf/m/internal/migrations"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var ErrUnknownFormat = errors.New("unknown export format")

// Document is the exported catalog.
type Document struct {
	SchemaVersion int               `json:"schemaVersion" yaml:"schemaVersion"`
	ExportedAt    string            `json:"exportedAt" yaml:"exportedAt"`
	Medicines     []domain.Medicine `json:"medicines" yaml:"medicines"`
}

// Lister is the read side of the repository.
type Lister interface {
	List(ctx context.Context, query string) ([]domain.Medicine, error)
}

// Sink stores an encoded document under name and returns where it went.
type Sink interface {
	Put(ctx context.Context, name string, body []byte, contentType string) (string, error)
}

// Result describes a finished export.
type Result struct {
	Location string
	Count    int
}

// Exporter snapshots every medicine and writes it to a sink.
type Exporter struct {
	lister Lister
	sink   Sink
	format string
	now    func() time.Time
	logger *slog.Logger
}

func New(lister Lister, sink Sink, format string, logger *slog.Logger) (*Exporter, error) {
	if _, err := contentType(format); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{lister: lister, sink: sink, format: format, now: time.Now, logger: logger}, nil
}

// Snapshot builds the document without writing it.
func (e *Exporter) Snapshot(ctx context.Context) (Document, error) {
	meds, err := e.lister.List(ctx, "")
	if err != nil {
		return Document{}, err
	}
	return Document{
		SchemaVersion: migrations.CurrentVersion(),
		ExportedAt:    domain.FormatTimestamp(e.now()),
		Medicines:     meds,
	}, nil
}

// Run exports the whole catalog.
func (e *Exporter) Run(ctx context.Context) (Result, error) {
	doc, err := e.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("snapshot catalog: %w", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, doc, e.format); err != nil {
		return Result{}, err
	}
	ct, _ := contentType(e.format)
	name := fmt.Sprintf("medicines-%s.%s", e.now().UTC().Format("20060102T150405Z"), e.format)
	location, err := e.sink.Put(ctx, name, buf.Bytes(), ct)
	if err != nil {
		return Result{}, fmt.Errorf("write export %s: %w", name, err)
	}
	e.logger.Info("catalog exported", "location", location, "count", len(doc.Medicines))
	return Result{Location: location, Count: len(doc.Medicines)}, nil
}

// Encode writes doc to w in the given format.
func Encode(w io.Writer, doc Document, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Decode reads a document written by Encode.
func Decode(r io.Reader, format string) (Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return Document{}, err
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return Document{}, err
		}
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return doc, nil
}

func contentType(format string) (string, error) {
	switch format {
	case FormatJSON:
		return "application/json", nil
	case FormatYAML:
		return "application/yaml", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}
