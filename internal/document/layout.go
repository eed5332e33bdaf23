package document

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fetalscan/internal/report"
)

// Page geometry in millimetres.
const (
	PageWidth    = 210.0
	PageHeight   = 297.0
	Margin       = 15.0
	ContentWidth = PageWidth - 2*Margin

	column1 = Margin
	column2 = Margin + ContentWidth/2
	center  = PageWidth / 2
	right   = PageWidth - Margin

	lineDelta      = 5.0
	headingDelta   = 6.0
	sectionGap     = 8.0
	compactDelta   = 4.0
	imageWidth     = 80.0
	imageHeight    = 60.0
	imageRaise     = 13.0
	captionOffset  = 3.0
	footerGap      = 10.0
	footerRuleStep = 5.0
	tablePad       = 2.0
	tableAscent    = 4.0
)

// Align controls how a text operation is positioned relative to its X.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Font selects a core font face.
type Font struct {
	Family string
	Style  string
	Size   float64
}

var (
	fontClinicName = Font{Family: "Helvetica", Style: "B", Size: 18}
	fontHeader     = Font{Family: "Helvetica", Size: 12}
	fontTitle      = Font{Family: "Helvetica", Style: "B", Size: 16}
	fontSection    = Font{Family: "Helvetica", Style: "B", Size: 12}
	fontHeading    = Font{Family: "Helvetica", Style: "B", Size: 10}
	fontBody       = Font{Family: "Helvetica", Size: 10}
	fontCaption    = Font{Family: "Helvetica", Style: "B", Size: 8}
	fontFooter     = Font{Family: "Helvetica", Size: 8}
)

// OpKind identifies a drawing operation.
type OpKind int

const (
	OpText OpKind = iota
	OpLine
	OpRect
	OpImage
)

// Op is one drawing operation. Text uses X, Y, Text, Font, and Align. Line
// uses X, Y, X2, Y2 and Rect uses X, Y, W, H. Image uses X, Y, W, H, Image,
// and draws Caption beneath the picture only when the picture itself is drawn.
type Op struct {
	Kind    OpKind
	X, Y    float64
	X2, Y2  float64
	W, H    float64
	Text    string
	Font    Font
	Align   Align
	Image   *Image
	Caption *Op
}

// Document is a laid-out page.
type Document struct {
	Title    string
	Subject  string
	Created  time.Time
	Ops      []Op
	Warnings []string
}

// Texts returns the text of every text operation in drawing order.
func (d Document) Texts() []string {
	out := make([]string, 0, len(d.Ops))
	for _, op := range d.Ops {
		if op.Kind == OpText {
			out = append(out, op.Text)
		}
	}
	return out
}

// LayoutOptions carries the fixed text and the clock reading for a layout.
type LayoutOptions struct {
	Title            string
	FooterContact    string
	PlaceholderImage string
	GeneratedAt      time.Time
	Measurer         Measurer
}

type builder struct {
	doc Document
	y   float64
}

func (b *builder) text(x float64, s string, font Font, align Align) {
	b.doc.Ops = append(b.doc.Ops, Op{Kind: OpText, X: x, Y: b.y, Text: s, Font: font, Align: align})
}

func (b *builder) rule() {
	b.doc.Ops = append(b.doc.Ops, Op{Kind: OpLine, X: Margin, Y: b.y, X2: right, Y2: b.y})
}

func (b *builder) heading(title string) {
	b.text(Margin, title, fontHeading, AlignLeft)
	b.y += headingDelta
}

// Layout positions every section of rec on a single page.
func Layout(rec report.Record, opts LayoutOptions) Document {
	measurer := opts.Measurer
	if measurer == nil {
		measurer = NewPDFMeasurer()
	}
	title := opts.Title
	if title == "" {
		title = "OBSTETRIC ULTRASOUND REPORT"
	}
	placeholder := opts.PlaceholderImage
	if placeholder == "" {
		placeholder = report.PlaceholderImage
	}

	data := rec.Data
	clinic := data.ClinicInfo
	patient := data.Patient
	scan := data.ScanParameters
	ai := data.AIModelOutput

	b := &builder{y: Margin}
	b.doc.Title = title
	b.doc.Subject = strings.TrimSpace(patient.Name)
	b.doc.Created = opts.GeneratedAt

	b.text(center, clinic.Name, fontClinicName, AlignCenter)
	b.y += 8
	b.text(center, clinic.Department, fontHeader, AlignCenter)
	b.y += 6
	b.text(center, clinic.Address, fontHeader, AlignCenter)
	b.y += 6
	b.text(center, fmt.Sprintf("Phone: %s | Email: %s", clinic.Phone, clinic.Email), fontHeader, AlignCenter)
	b.y += 6
	b.text(center, "Website: "+clinic.Website, fontHeader, AlignCenter)

	b.y += sectionGap
	b.rule()
	b.y += sectionGap

	b.text(center, title, fontTitle, AlignCenter)
	b.y += 10

	b.text(Margin, "PATIENT INFORMATION", fontSection, AlignLeft)
	b.y += headingDelta
	pairs := [][2]string{
		{"Name: " + patient.Name, fmt.Sprintf("Age: %d Years", patient.Age)},
		{"Patient ID: " + patient.PatientID, "Sex: " + patient.Sex},
		{"Visit Date: " + patient.VisitDate, "Referred By: " + patient.ReferredBy},
		{"LMP: " + patient.LMP, "Gestational Age: " + patient.GestationalAge},
	}
	top := b.y - tableAscent
	b.columns(pairs)
	b.table(top, b.y-lineDelta+tablePad)
	b.y += sectionGap - lineDelta

	b.heading("CLINICAL INFORMATION")
	b.lines(
		"Indications: "+ai.Indications,
		"Scan Type: "+ai.ScanType,
		"Route: "+ai.Route,
		"Gestation: "+ai.Gestation,
	)
	b.y += sectionGap - lineDelta

	b.heading("SCAN PARAMETERS")
	b.columns([][2]string{
		{"CRL: " + FormatNumber(scan.CRL) + " mm", "BPD: " + FormatNumber(scan.BPD) + " mm"},
		{"HC: " + FormatNumber(scan.HC) + " mm", "AC: " + FormatNumber(scan.AC) + " mm"},
		{"FL: " + FormatNumber(scan.FL) + " mm", "FHR: " + strconv.Itoa(scan.FHR) + " bpm"},
		{"Uterine Artery PI: " + FormatNumber(scan.UterineArteryPI), ""},
	})
	b.y += sectionGap - lineDelta

	b.heading("FETAL SURVEY")
	b.lines(ai.PlacentaLocation, ai.LiquorStatus, ai.FetalActivity, ai.CardiacActivity)
	b.y += sectionGap - lineDelta

	aiTop := b.y
	b.heading("AI DETECTED STRUCTURES")
	for _, structure := range ai.DetectedStructures {
		b.text(Margin, fmt.Sprintf("%s: %s%% confidence", structure.Name, FormatNumber(structure.Confidence)), fontBody, AlignLeft)
		b.y += compactDelta
	}
	b.y += headingDelta

	if src := strings.TrimSpace(rec.Image); src != "" && src != placeholder {
		img, err := DecodeImage(src)
		if err != nil {
			b.doc.Warnings = append(b.doc.Warnings, fmt.Sprintf("scan image skipped: %v", err))
		} else {
			x := right - imageWidth
			y := aiTop - imageRaise
			caption := Op{Kind: OpText, X: x + imageWidth/2, Y: y + imageHeight + captionOffset, Text: "SCAN IMAGE", Font: fontCaption, Align: AlignCenter}
			b.doc.Ops = append(b.doc.Ops, Op{Kind: OpImage, X: x, Y: y, W: imageWidth, H: imageHeight, Image: img, Caption: &caption})
		}
	}

	if strings.TrimSpace(data.ClinicalNotes) != "" {
		b.heading("CLINICAL NOTES")
		notes := Wrap(data.ClinicalNotes, ContentWidth, func(s string) float64 {
			return measurer.Width(s, fontBody)
		})
		for _, line := range notes {
			b.text(Margin, line, fontBody, AlignLeft)
			b.y += compactDelta
		}
		b.y += headingDelta
	}

	b.y += footerGap
	b.rule()
	b.y += footerRuleStep
	generated := opts.GeneratedAt
	b.text(Margin, fmt.Sprintf("Report generated on: %s at %s", generated.Format(report.DateLayout), generated.Format("15:04:05")), fontFooter, AlignLeft)
	b.text(right, "Report ID: "+rec.Key(), fontFooter, AlignRight)
	b.y += compactDelta
	if opts.FooterContact != "" {
		b.text(center, opts.FooterContact, fontFooter, AlignCenter)
	}

	return b.doc
}

func (b *builder) columns(pairs [][2]string) {
	for _, pair := range pairs {
		b.text(column1, pair[0], fontBody, AlignLeft)
		if pair[1] != "" {
			b.text(column2, pair[1], fontBody, AlignLeft)
		}
		b.y += lineDelta
	}
}

// table borders the two-column rows between top and bottom and divides
// the columns.
func (b *builder) table(top, bottom float64) {
	divider := column2 - tablePad
	b.doc.Ops = append(b.doc.Ops,
		Op{Kind: OpRect, X: Margin - tablePad, Y: top, W: ContentWidth + 2*tablePad, H: bottom - top},
		Op{Kind: OpLine, X: divider, Y: top, X2: divider, Y2: bottom},
	)
}

func (b *builder) lines(texts ...string) {
	for _, s := range texts {
		b.text(Margin, s, fontBody, AlignLeft)
		b.y += lineDelta
	}
}

// FormatNumber prints v with the fewest digits that round-trip.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
