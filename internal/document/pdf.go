package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"fetalscan/internal/logging"
	"fetalscan/internal/report"
)

// ContentType is the MIME type of serialized documents.
const ContentType = "application/pdf"

// Options configures a Renderer.
type Options struct {
	Title            string
	FooterContact    string
	PlaceholderImage string
	Now              func() time.Time
	Measurer         Measurer
}

// Renderer lays out records and writes them as PDF. Text is drawn with the
// core fonts, which only cover Windows-1252; other characters print as dots
// and are reported as a render warning.
type Renderer struct {
	opts   Options
	logger *slog.Logger
}

// NewRenderer builds a renderer. A nil logger discards render warnings.
func NewRenderer(opts Options, logger *slog.Logger) *Renderer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Renderer{opts: opts, logger: logging.NewComponentLogger(logger, "document")}
}

// Layout positions rec using the renderer's options and current time.
func (r *Renderer) Layout(rec report.Record) Document {
	return Layout(rec, LayoutOptions{
		Title:            r.opts.Title,
		FooterContact:    r.opts.FooterContact,
		PlaceholderImage: r.opts.PlaceholderImage,
		GeneratedAt:      r.opts.Now(),
		Measurer:         r.opts.Measurer,
	})
}

// Render lays out rec and writes the PDF to w. Image problems are logged and
// the document is produced without the picture.
func (r *Renderer) Render(ctx context.Context, rec report.Record, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := r.Layout(rec)
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldReportID, rec.Key()))
	for _, warning := range doc.Warnings {
		logging.WarnWithContext(logger, "scan image not embedded", "render_warning",
			logging.String("reason", warning),
			logging.String(logging.FieldImpact, "document rendered without scan image"),
			logging.String(logging.FieldErrorHint, "re-attach the scan image as a PNG or JPEG data url"),
		)
	}
	return Serialize(doc, w, logger)
}

// Serialize replays doc through fpdf and writes the result to w.
func Serialize(doc Document, w io.Writer, logger *slog.Logger) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(doc.Title, true)
	if doc.Subject != "" {
		pdf.SetSubject(doc.Subject, true)
	}
	pdf.SetCreator("fetalscan", true)
	if !doc.Created.IsZero() {
		pdf.SetCreationDate(doc.Created)
		pdf.SetModificationDate(doc.Created)
	}
	pdf.AddPage()
	translate := pdf.UnicodeTranslatorFromDescriptor("")

	var lossy []string
	for _, op := range doc.Ops {
		switch op.Kind {
		case OpText:
			drawText(pdf, translate, op)
			if !encodable(op.Text) {
				lossy = append(lossy, op.Text)
			}
		case OpLine:
			pdf.Line(op.X, op.Y, op.X2, op.Y2)
		case OpRect:
			pdf.Rect(op.X, op.Y, op.W, op.H, "D")
		case OpImage:
			if !drawImage(pdf, op) {
				pdf.ClearError()
				logging.WarnWithContext(logger, "scan image not embedded", "render_warning",
					logging.String("reason", "pdf writer rejected image data"),
					logging.String(logging.FieldImpact, "document rendered without scan image"),
				)
				continue
			}
			if op.Caption != nil {
				drawText(pdf, translate, *op.Caption)
			}
		}
	}
	if len(lossy) > 0 {
		logging.WarnWithContext(logger, "text not representable in document font", "render_warning",
			logging.Int("lines", len(lossy)),
			logging.String("first", lossy[0]),
			logging.String(logging.FieldImpact, "unsupported characters printed as dots"),
			logging.String(logging.FieldErrorHint, "use Latin script for names and notes"),
		)
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func drawText(pdf *fpdf.Fpdf, translate func(string) string, op Op) {
	pdf.SetFont(op.Font.Family, op.Font.Style, op.Font.Size)
	text := translate(op.Text)
	x := op.X
	switch op.Align {
	case AlignCenter:
		x -= pdf.GetStringWidth(text) / 2
	case AlignRight:
		x -= pdf.GetStringWidth(text)
	}
	pdf.Text(x, op.Y, text)
}

// encodable reports whether every rune of text exists in Windows-1252.
func encodable(text string) bool {
	for _, r := range text {
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			return false
		}
	}
	return true
}

func drawImage(pdf *fpdf.Fpdf, op Op) bool {
	if op.Image == nil {
		return false
	}
	options := fpdf.ImageOptions{ImageType: op.Image.Type}
	pdf.RegisterImageOptionsReader(op.Image.Name, options, bytes.NewReader(op.Image.Data))
	if pdf.Err() {
		return false
	}
	pdf.ImageOptions(op.Image.Name, op.X, op.Y, op.W, op.H, false, options, 0, "")
	return !pdf.Err()
}

type pdfMeasurer struct {
	pdf       *fpdf.Fpdf
	translate func(string) string
}

// NewPDFMeasurer measures text with fpdf's core font metrics.
func NewPDFMeasurer() Measurer {
	pdf := fpdf.New("P", "mm", "A4", "")
	return &pdfMeasurer{pdf: pdf, translate: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (m *pdfMeasurer) Width(text string, font Font) float64 {
	m.pdf.SetFont(font.Family, font.Style, font.Size)
	return m.pdf.GetStringWidth(m.translate(text))
}
