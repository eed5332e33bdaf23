package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"

	"fetalscan/internal/document"
	"fetalscan/internal/logging"
	"fetalscan/internal/report"
)

// ErrNoRenderer is returned when document operations run on a controller
// built without a renderer.
var ErrNoRenderer = errors.New("document renderer not configured")

// Rendered describes a document written by GenerateDocument or RenderRecord.
type Rendered struct {
	FileName string
	Record   report.Record
}

// GenerateDocument validates the live draft and writes its document to w.
// A failing draft returns *report.ValidationError and nothing is written.
func (c *Controller) GenerateDocument(ctx context.Context, w io.Writer) (Rendered, error) {
	c.mu.Lock()
	rec := c.draft.Snapshot()
	c.mu.Unlock()

	if err := report.Validate(rec.Data).Err(); err != nil {
		return Rendered{}, err
	}
	return c.render(ctx, rec, w)
}

// RenderRecord writes the document for a stored record. Stored records are
// rendered as they are, complete or not.
func (c *Controller) RenderRecord(ctx context.Context, source report.State, key string, w io.Writer) (Rendered, error) {
	rec, err := c.Find(ctx, source, key)
	if err != nil {
		return Rendered{}, err
	}
	return c.render(ctx, rec, w)
}

func (c *Controller) render(ctx context.Context, rec report.Record, w io.Writer) (Rendered, error) {
	if c.renderer == nil {
		return Rendered{}, ErrNoRenderer
	}
	name := document.FileName(rec.Data.Patient, c.now())
	ctx = logging.WithReportID(ctx, rec.Key())
	if err := c.renderer.Render(ctx, rec, w); err != nil {
		return Rendered{}, fmt.Errorf("render %s: %w", name, err)
	}
	c.logger.Info("document rendered",
		logging.String(logging.FieldReportID, rec.Key()),
		logging.String("file", name),
	)
	return Rendered{FileName: name, Record: rec}, nil
}
