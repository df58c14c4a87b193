package pdf

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"notaspese/internal/core"
	"notaspese/internal/report"
)

// Summary export geometry: A4 landscape, eight fixed columns.
const (
	summaryBandH  = 56.0
	summaryTableY = 160.0
	summaryHeadH  = 16.0
	summaryRowH   = 14.0
	summaryFont   = 8.0
)

var (
	summaryWidths  = []float64{58, 78, 64, 150, 92, 150, 70, 90}
	summaryHeaders = []string{"Data", "Mese", "Carta", "Movimento", "Categoria", "Descrizione", "Importo", "Allegato"}
)

// SummaryLinesPerPage is the body line budget of one summary page, derived
// from page height, table start, header row and the footer reserve.
const SummaryLinesPerPage = int(A4Width-summaryTableY-summaryHeadH-footerReserve) / int(summaryRowH)

// SummaryInput is the row view and context for the full summary export.
type SummaryInput struct {
	CardLast4   string
	HolderName  string
	MonthFilter string // month key or report.FilterAll
	Opening     decimal.Decimal
	Rows        []report.Row
	Logo        []byte // optional brand logo, skipped when undecodable
	GeneratedAt time.Time
}

// SummaryFileName is the deterministic output name for a card's summary.
func SummaryFileName(last4 string) string {
	return "riepilogo-" + last4 + ".pdf"
}

// BuildSummary renders the full statement view: title band and context block,
// the paginated eight-column movement table, and one attachment page per two
// rows carrying a receipt. Once layout has begun no failure escapes; a valid,
// closed document is always returned.
func BuildSummary(in SummaryInput) (out []byte) {
	doc := New()
	defer func() {
		// A mid-layout panic still yields a best-effort closed document
		// instead of a truncated stream.
		if r := recover(); r != nil {
			finishFooters(doc, in.GeneratedAt)
			out = doc.Bytes()
		}
	}()

	logo := decodeLogo(in.Logo)
	totals := report.ComputeTotals(in.Rows)
	closing := report.ClosingBalance(in.Opening, totals)

	subtitles := []string{
		fmt.Sprintf("Carta: ****%s - %s", in.CardLast4, in.HolderName),
		"Filtro mese: " + monthFilterLabel(in.MonthFilter),
		"Saldo iniziale: " + core.FormatAmount(in.Opening),
		"Totale movimenti: " + core.FormatAmount(totals.TotalAll),
		"Saldo finale: " + core.FormatAmount(closing),
	}

	newPage := func(first bool) *Page {
		p := doc.AddPage(A4Height, A4Width) // landscape
		drawBand(doc, p, logo, "NS-ITALSEM · Riepilogo Totale Nota Spese", summaryBandH)
		if first {
			drawSubtitles(p, subtitles)
		}
		p.FillRect(marginX, summaryTableY, tableWidth(summaryWidths), summaryHeadH,
			bandOrange[0], bandOrange[1], bandOrange[2])
		grid(p, marginX, summaryWidths, summaryTableY+11, summaryFont, textWhite, summaryHeaders)
		return p
	}

	page := newPage(true)
	line := 0
	for _, row := range in.Rows {
		if line == SummaryLinesPerPage {
			page = newPage(false)
			line = 0
		}
		y := summaryTableY + summaryHeadH + float64(line)*summaryRowH + 10
		grid(page, marginX, summaryWidths, y, summaryFont, textDark, summaryCells(row))
		line++
	}

	appendAttachmentPages(doc, in.Rows)
	finishFooters(doc, in.GeneratedAt)
	return doc.Bytes()
}

func summaryCells(row report.Row) []string {
	return []string{
		core.FormatDate(row.Date),
		orDash(row.MonthLabel),
		orDash(row.CardLabel),
		orDash(row.Movement),
		orDash(row.Category),
		orDash(row.DetailDescription),
		core.FormatAmount(row.Amount),
		attachmentName(row),
	}
}

// Attachment page geometry: A4 portrait, two slots per page.
const (
	attachBandH   = 44.0
	attachSlotX   = 30.0
	attachSlotH   = 340.0
	attachPadX    = 12.0
	attachImgTopY = 46.0
	attachImgPadB = 12.0
)

var attachSlotsY = []float64{70, 430}

// appendAttachmentPages lays the receipt previews out two per portrait page:
// caption, file name, then the image scaled to fit the slot, rotated 90
// degrees only when that fits clearly better. A row whose attachment cannot
// be decoded keeps its caption and gets a placeholder line instead.
func appendAttachmentPages(doc *Document, rows []report.Row) {
	var withAttachment []report.Row
	for _, row := range rows {
		if row.Attachment != nil && len(row.Attachment.Bytes) > 0 {
			withAttachment = append(withAttachment, row)
		}
	}

	slotW := A4Width - 2*attachSlotX
	for i := 0; i < len(withAttachment); i += 2 {
		p := doc.AddPage(A4Width, A4Height)
		p.FillRect(0, 0, p.Width, attachBandH, bandOrange[0], bandOrange[1], bandOrange[2])
		p.Text(marginX, 28, 12, textWhite[0], textWhite[1], textWhite[2], "NS-ITALSEM · Allegati nota spese")

		for slot := 0; slot < 2 && i+slot < len(withAttachment); slot++ {
			row := withAttachment[i+slot]
			slotY := attachSlotsY[slot]

			p.StrokeRect(attachSlotX, slotY, slotW, attachSlotH,
				dividerGray[0], dividerGray[1], dividerGray[2], 1)
			category := row.Category
			if category == "" {
				category = "SENZA CATEGORIA"
			}
			caption := fmt.Sprintf("%s · %s · %s",
				core.FormatDate(row.Date), category, core.FormatAmount(row.Amount))
			p.Text(attachSlotX+attachPadX, slotY+18, 10, textDark[0], textDark[1], textDark[2], caption)
			p.Text(attachSlotX+attachPadX, slotY+34, 10, textDark[0], textDark[1], textDark[2],
				"File: "+row.Attachment.Name)

			drawAttachmentPreview(doc, p, row, attachSlotX, slotY, slotW)
		}
	}
}

func drawAttachmentPreview(doc *Document, p *Page, row report.Row, slotX, slotY, slotW float64) {
	availW := slotW - 2*attachPadX
	availH := attachSlotH - attachImgTopY - attachImgPadB

	if !row.HasImageAttachment() {
		p.Text(slotX+attachPadX, slotY+62, 11, textDark[0], textDark[1], textDark[2],
			placeholderFor(row.Attachment))
		return
	}

	img, err := DecodeImage(row.Attachment.Bytes)
	if err != nil {
		p.Text(slotX+attachPadX, slotY+62, 11, textDark[0], textDark[1], textDark[2],
			"Anteprima non disponibile: file allegato registrato nel report")
		return
	}

	normal, rotated := fitScales(float64(img.Width), float64(img.Height), availW, availH)
	rotate := shouldRotate(normal, rotated)
	scale := normal
	drawW := float64(img.Width) * scale
	drawH := float64(img.Height) * scale
	if rotate {
		scale = rotated
		drawW = float64(img.Height) * scale
		drawH = float64(img.Width) * scale
	}

	// Center the footprint inside the slot's image area.
	x := slotX + attachPadX + (availW-drawW)/2
	y := slotY + attachImgTopY + (availH-drawH)/2
	p.DrawImage(doc, img, x, y, drawW, drawH, rotate)
}

func placeholderFor(a *core.Attachment) string {
	if a != nil && a.MimeType == "application/pdf" {
		return "Anteprima PDF non disponibile: file allegato registrato nel report"
	}
	return "Formato allegato non supportato in anteprima"
}

func decodeLogo(data []byte) *Image {
	if len(data) == 0 {
		return nil
	}
	img, err := DecodeImage(data)
	if err != nil {
		return nil
	}
	return img
}

func monthFilterLabel(filter string) string {
	if filter == report.FilterAll || filter == "" {
		return "tutti"
	}
	if label := core.MonthLabelFromKey(filter); label != "" {
		return label
	}
	return filter
}

func tableWidth(widths []float64) float64 {
	total := 0.0
	for _, w := range widths {
		total += w
	}
	return total
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func attachmentName(row report.Row) string {
	if row.Attachment == nil || row.Attachment.Name == "" {
		return "-"
	}
	return row.Attachment.Name
}
