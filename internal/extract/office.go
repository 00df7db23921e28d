package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	contentTypesPath    = "[Content_Types].xml"
	docxDefaultPath     = "word/document.xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	odfContentPath      = "content.xml"
)

var (
	docxParagraph = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*)?>(.*?)</w:p>`)
	docxText      = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	pptxParagraph = regexp.MustCompile(`(?s)<a:p(?:\s[^>]*)?>(.*?)</a:p>`)
	pptxText      = regexp.MustCompile(`<a:t(?:\s[^>]*)?>([^<]*)</a:t>`)
	odfParagraph  = regexp.MustCompile(`(?s)<text:(p|h)(?:\s[^>]*)?>(.*?)</text:(?:p|h)>`)
	anyTag        = regexp.MustCompile(`<[^>]+>`)
	slideNumber   = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

	// PartName and ContentType may appear in either order on an Override element.
	docxPartName  = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	docxPartName2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

func openZip(content []byte, format string) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: not a zip: %w", format, err)
	}
	return zr, nil
}

// readPart returns the named entry, or nil when the archive has none.
func readPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, nil
}

// paragraphs returns one line per paragraph match, the paragraph's text runs joined together.
func paragraphs(xml []byte, paragraph, run *regexp.Regexp) []string {
	var lines []string
	for _, p := range paragraph.FindAllSubmatch(xml, -1) {
		var b strings.Builder
		for _, r := range run.FindAllSubmatch(p[1], -1) {
			b.Write(r[1])
		}
		if line := strings.TrimSpace(html.UnescapeString(b.String())); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// extractDOCX reads the main document part named in [Content_Types].xml, falling back to
// word/document.xml.
func extractDOCX(content []byte) (string, error) {
	zr, err := openZip(content, "DOCX")
	if err != nil {
		return "", err
	}
	docPath := docxDefaultPath
	types, err := readPart(zr, contentTypesPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	for _, re := range []*regexp.Regexp{docxPartName, docxPartName2} {
		if m := re.FindSubmatch(types); m != nil {
			docPath = strings.TrimPrefix(string(m[1]), "/")
			break
		}
	}
	doc, err := readPart(zr, docPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	if doc == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", docPath)
	}
	return strings.Join(paragraphs(doc, docxParagraph, docxText), "\n"), nil
}

// extractPPTX reads every slide in slide-number order.
func extractPPTX(content []byte) (string, error) {
	zr, err := openZip(content, "PPTX")
	if err != nil {
		return "", err
	}
	type slide struct {
		n    int
		name string
	}
	var slides []slide
	for _, f := range zr.File {
		if m := slideNumber.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slides = append(slides, slide{n: n, name: f.Name})
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	var lines []string
	for _, s := range slides {
		data, err := readPart(zr, s.name)
		if err != nil {
			return "", fmt.Errorf("extract PPTX: %w", err)
		}
		lines = append(lines, paragraphs(data, pptxParagraph, pptxText)...)
	}
	return strings.Join(lines, "\n"), nil
}

// extractODF reads content.xml of OpenDocument presentations and spreadsheets. Headings and
// paragraphs keep document order; nested spans are flattened into their paragraph.
func extractODF(content []byte) (string, error) {
	zr, err := openZip(content, "ODF")
	if err != nil {
		return "", err
	}
	data, err := readPart(zr, odfContentPath)
	if err != nil {
		return "", fmt.Errorf("extract ODF: %w", err)
	}
	if data == nil {
		return "", fmt.Errorf("extract ODF: %s not found", odfContentPath)
	}
	var lines []string
	for _, m := range odfParagraph.FindAllSubmatch(data, -1) {
		text := anyTag.ReplaceAll(m[2], nil)
		if line := strings.TrimSpace(html.UnescapeString(string(text))); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
