// Package pdftest builds small, valid PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Page describes one page of a generated document.
type Page struct {
	// Content is the raw content stream. Ignored when NoContents is set.
	Content string
	// NoContents omits the /Contents entry entirely.
	NoContents bool
}

// TextPage returns a page that shows each run with the Helvetica font,
// moving down a line between runs.
func TextPage(runs ...string) Page {
	var sb strings.Builder
	sb.WriteString("BT\n/F1 12 Tf\n72 712 Td\n")
	for i, run := range runs {
		if i > 0 {
			sb.WriteString("0 -14 Td\n")
		}
		fmt.Fprintf(&sb, "(%s) Tj\n", escape(run))
	}
	sb.WriteString("ET\n")
	return Page{Content: sb.String()}
}

// ImagePage returns a page whose content stream paints no text.
func ImagePage() Page {
	return Page{Content: "q\n612 0 0 792 0 0 cm\nQ\n"}
}

// Build assembles a PDF with one shared font and the given pages.
func Build(pages ...Page) []byte {
	return build("", pages)
}

// Encrypted is Build with an AES-256 (V5/R6) security handler declared in
// the trailer.
func Encrypted(pages ...Page) []byte {
	return build(" /Encrypt << /Filter /Standard /V 5 /R 6 /Length 256 /P -4 >> /ID [<00112233445566778899aabbccddeeff> <00112233445566778899aabbccddeeff>]", pages)
}

func build(trailerExtra string, pages []Page) []byte {
	// 1 catalog, 2 page tree, 3 font, then a page object and an optional
	// content stream per page.
	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")
	objects = append(objects, "") // page tree, filled in below
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var kids []string
	for _, p := range pages {
		pageNum := len(objects) + 1
		kids = append(kids, fmt.Sprintf("%d 0 R", pageNum))
		if p.NoContents {
			objects = append(objects, pageObject(""))
			continue
		}
		contentNum := pageNum + 1
		objects = append(objects, pageObject(fmt.Sprintf(" /Contents %d 0 R", contentNum)))
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(p.Content), p.Content))
	}
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, trailerExtra, xref)
	return buf.Bytes()
}

func pageObject(contents string) string {
	return "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >>" + contents + " >>"
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
