package pdf

import (
	"fmt"
	"time"
)

// Shared layout metrics, in points. The geometry mirrors the statement
// exports the operators already know: orange brand band, 24pt side margins,
// footer strip reserved at the bottom of every page.
const (
	marginX       = 24.0
	footerReserve = 40.0
	footerLineY   = 30.0
	footerTextY   = 16.0
	footerSize    = 8.0
)

// Brand palette.
var (
	bandOrange    = [3]int{255, 122, 26}
	textDark      = [3]int{40, 40, 40}
	textWhite     = [3]int{255, 255, 255}
	footerGray    = [3]int{120, 120, 120}
	dividerGray   = [3]int{210, 210, 210}
	highlightPale = [3]int{255, 243, 232}
)

// drawBand paints the brand band with the document title and, when a logo
// was decoded, the logo on the left.
func drawBand(d *Document, p *Page, logo *Image, title string, bandH float64) {
	p.FillRect(0, 0, p.Width, bandH, bandOrange[0], bandOrange[1], bandOrange[2])
	if logo != nil {
		p.DrawImage(d, logo, marginX, 10, 140, 36, false)
	}
	p.Text(190, 34, 14, textWhite[0], textWhite[1], textWhite[2], title)
}

// drawSubtitles places the context block under the band, one line each.
func drawSubtitles(p *Page, lines []string) {
	y := 78.0
	for _, line := range lines {
		p.Text(marginX, y, 10, textDark[0], textDark[1], textDark[2], line)
		y += 14
	}
}

// finishFooters back-fills the footer onto every buffered page: thin divider,
// generation stamp on the left, "Pagina i/N" anchored bottom-right. It runs
// once, after layout, when the total page count is finally known.
func finishFooters(d *Document, generatedAt time.Time) {
	total := d.PageCount()
	for i, p := range d.Pages() {
		p.Line(marginX, p.Height-footerLineY, p.Width-marginX, p.Height-footerLineY,
			dividerGray[0], dividerGray[1], dividerGray[2], 0.5)
		stamp := "Generato da NS-ITALSEM · " + generatedAt.UTC().Format("02/01/2006 15:04")
		p.Text(marginX, p.Height-footerTextY, footerSize,
			footerGray[0], footerGray[1], footerGray[2], stamp)
		pageNum := fmt.Sprintf("Pagina %d/%d", i+1, total)
		p.Text(p.Width-marginX-approxTextWidth(pageNum, footerSize), p.Height-footerTextY,
			footerSize, footerGray[0], footerGray[1], footerGray[2], pageNum)
	}
}

// approxTextWidth estimates rendered width for right alignment and cell
// truncation. Helvetica averages about half the font size per glyph, which
// is plenty for a fixed-grid layout.
func approxTextWidth(s string, size float64) float64 {
	return float64(len([]rune(s))) * size * 0.5
}

// truncateToWidth clips cell text to its column, appending an ellipsis dot
// when something was cut.
func truncateToWidth(s string, width, size float64) string {
	maxChars := int(width / (size * 0.5))
	if maxChars < 1 {
		maxChars = 1
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	if maxChars <= 1 {
		return string(runes[:maxChars])
	}
	return string(runes[:maxChars-1]) + "…"
}

// grid draws one table line (header or body) across fixed column widths.
func grid(p *Page, x float64, widths []float64, baselineY, size float64, color [3]int, cells []string) {
	cx := x
	for i, w := range widths {
		if i < len(cells) && cells[i] != "" {
			p.Text(cx+4, baselineY, size, color[0], color[1], color[2],
				truncateToWidth(cells[i], w-8, size))
		}
		cx += w
	}
}
