// Package pdf renders expense report views into paginated PDF documents.
//
// The writer is deliberately self-contained: it emits a minimal PDF 1.4
// object graph (catalog, page tree, one shared Type1 font, one page and one
// content stream per page, plus image XObjects) followed by a cross-reference
// table and trailer. Pages are buffered in memory so late-bound content such
// as the "Pagina i/N" footer can be written after the total page count is
// known, before any byte is emitted.
package pdf

import (
	"bytes"
	"fmt"
)

// Standard A4 dimensions in points.
const (
	A4Width  = 595.0
	A4Height = 842.0
)

// Document accumulates pages and shared resources before serialization.
type Document struct {
	pages  []*Page
	images []*Image
}

// Page buffers content stream operations for one page. Drawing coordinates
// are top-left based and converted to PDF's bottom-left space on emit.
type Page struct {
	Width  float64
	Height float64

	content bytes.Buffer
	used    map[string]*Image // XObjects referenced by this page
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

// AddPage appends a page of the given size and returns it for drawing.
func (d *Document) AddPage(width, height float64) *Page {
	p := &Page{Width: width, Height: height, used: make(map[string]*Image)}
	d.pages = append(d.pages, p)
	return p
}

// PageCount returns the number of pages laid out so far.
func (d *Document) PageCount() int {
	return len(d.pages)
}

// Pages exposes the buffered pages for late-bound passes (footers).
func (d *Document) Pages() []*Page {
	return d.pages
}

// registerImage assigns a document-wide XObject name on first use so the
// same image is never duplicated across pages.
func (d *Document) registerImage(img *Image) {
	if img.name != "" {
		return
	}
	img.name = fmt.Sprintf("Im%d", len(d.images)+1)
	d.images = append(d.images, img)
}

// escapeText guards the three reserved characters of PDF string literals.
func escapeText(b []byte) []byte {
	var out bytes.Buffer
	for _, c := range b {
		switch c {
		case '\\', '(', ')':
			out.WriteByte('\\')
		}
		out.WriteByte(c)
	}
	return out.Bytes()
}

// encodeWinAnsi maps a UTF-8 string onto the font's WinAnsi byte encoding.
// The euro sign sits at 0x80 there; anything unmappable degrades to '?'.
func encodeWinAnsi(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r == '€':
			out = append(out, 0x80)
		case r == '…':
			out = append(out, 0x85)
		case r < 256:
			out = append(out, byte(r))
		default:
			out = append(out, '?')
		}
	}
	return out
}

func (p *Page) y(topY float64) float64 {
	return p.Height - topY
}

// FillRect fills an axis-aligned rectangle with an RGB color.
func (p *Page) FillRect(x, y, w, h float64, r, g, b int) {
	fmt.Fprintf(&p.content, "q %s rg %.2f %.2f %.2f %.2f re f Q\n",
		rgb(r, g, b), x, p.y(y)-h, w, h)
}

// StrokeRect outlines a rectangle.
func (p *Page) StrokeRect(x, y, w, h float64, r, g, b int, lineWidth float64) {
	fmt.Fprintf(&p.content, "q %s RG %.2f w %.2f %.2f %.2f %.2f re S Q\n",
		rgb(r, g, b), lineWidth, x, p.y(y)-h, w, h)
}

// Line draws a straight segment.
func (p *Page) Line(x1, y1, x2, y2 float64, r, g, b int, width float64) {
	fmt.Fprintf(&p.content, "q %s RG %.2f w %.2f %.2f m %.2f %.2f l S Q\n",
		rgb(r, g, b), width, x1, p.y(y1), x2, p.y(y2))
}

// Text places a single line at the given top-left anchor (the y coordinate is
// the text baseline, matching the layout tables in this package).
func (p *Page) Text(x, y, size float64, r, g, b int, s string) {
	fmt.Fprintf(&p.content, "BT %s rg /F1 %.1f Tf %.2f %.2f Td (%s) Tj ET\n",
		rgb(r, g, b), size, x, p.y(y), escapeText(encodeWinAnsi(s)))
}

// DrawImage places an image into the given box. With rotated set, the image
// is turned 90 degrees and its width axis runs along the box height; w and h
// always describe the on-page footprint.
func (p *Page) DrawImage(d *Document, img *Image, x, y, w, h float64, rotated bool) {
	d.registerImage(img)
	p.used[img.name] = img
	lly := p.y(y) - h
	if rotated {
		fmt.Fprintf(&p.content, "q 0 %.2f %.2f 0 %.2f %.2f cm /%s Do Q\n",
			h, -w, x+w, lly, img.name)
		return
	}
	fmt.Fprintf(&p.content, "q %.2f 0 0 %.2f %.2f %.2f cm /%s Do Q\n",
		w, h, x, lly, img.name)
}

func rgb(r, g, b int) string {
	return fmt.Sprintf("%.3f %.3f %.3f", float64(r)/255, float64(g)/255, float64(b)/255)
}

// Bytes lays the buffered object graph out into the final byte stream:
// header, numbered objects, cross-reference table with byte offsets, and the
// trailer naming the catalog and total object count.
func (d *Document) Bytes() []byte {
	// Object ids: 1 catalog, 2 page tree, 3 font, then a content stream and
	// a page object per page, then image XObjects.
	n := len(d.pages)
	objects := make([][]byte, 0, 3+2*n+len(d.images))

	kids := &bytes.Buffer{}
	for i := range d.pages {
		fmt.Fprintf(kids, "%d 0 R ", 5+2*i)
	}
	objects = append(objects,
		[]byte("<< /Type /Catalog /Pages 2 0 R >>"),
		[]byte(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", bytes.TrimSpace(kids.Bytes()), n)),
		[]byte("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"),
	)

	imageID := make(map[string]int, len(d.images))
	for i, img := range d.images {
		imageID[img.name] = 4 + 2*n + i
	}

	for i, p := range d.pages {
		contentID := 4 + 2*i
		stream := p.content.Bytes()
		content := &bytes.Buffer{}
		fmt.Fprintf(content, "<< /Length %d >>\nstream\n", len(stream))
		content.Write(stream)
		content.WriteString("\nendstream")
		objects = append(objects, content.Bytes())

		page := &bytes.Buffer{}
		fmt.Fprintf(page, "<< /Type /Page\n/Parent 2 0 R\n/MediaBox [0 0 %.2f %.2f]\n/Contents %d 0 R\n/Resources << /Font << /F1 3 0 R >>", p.Width, p.Height, contentID)
		if len(p.used) > 0 {
			page.WriteString(" /XObject <<")
			for _, img := range d.images {
				if _, ok := p.used[img.name]; ok {
					fmt.Fprintf(page, " /%s %d 0 R", img.name, imageID[img.name])
				}
			}
			page.WriteString(" >>")
		}
		page.WriteString(" >>\n>>")
		objects = append(objects, page.Bytes())
	}

	for _, img := range d.images {
		obj := &bytes.Buffer{}
		fmt.Fprintf(obj, "<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode /Length %d >>\nstream\n",
			img.Width, img.Height, len(img.jpeg))
		obj.Write(img.jpeg)
		obj.WriteString("\nendstream")
		objects = append(objects, obj.Bytes())
	}

	out := &bytes.Buffer{}
	out.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(out, "%d 0 obj\n", i+1)
		out.Write(body)
		out.WriteString("\nendobj\n")
	}

	xrefStart := out.Len()
	fmt.Fprintf(out, "xref\n0 %d\n", len(objects)+1)
	out.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefStart)
	return out.Bytes()
}
