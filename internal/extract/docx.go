package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

const (
	docxDefaultBody  = "word/document.xml"
	docxContentTypes = "[Content_Types].xml"
	docxMainType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	docxParagraph = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)
	docxText      = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	docxOverride  = regexp.MustCompile(`<Override[^>]*>`)
	docxPartName  = regexp.MustCompile(`PartName="([^"]+)"`)
)

// extractDOCX returns one line per non-empty paragraph of the main document part.
// Paragraphs are matched with attributes allowed, which lu4p/cat does not handle for .docx.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	body := docxDefaultBody
	if types, err := readZipEntry(zr, docxContentTypes); err == nil {
		if p := docxBodyPart(string(types)); p != "" {
			body = p
		}
	}
	xml, err := readZipEntry(zr, body)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}

	var lines []string
	for _, para := range docxParagraph.FindAllString(string(xml), -1) {
		var b strings.Builder
		for _, m := range docxText.FindAllStringSubmatch(para, -1) {
			b.WriteString(m[1])
		}
		if line := strings.TrimSpace(html.UnescapeString(b.String())); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// docxBodyPart finds the main document part declared in [Content_Types].xml.
func docxBodyPart(types string) string {
	for _, override := range docxOverride.FindAllString(types, -1) {
		if !strings.Contains(override, `ContentType="`+docxMainType+`"`) {
			continue
		}
		if m := docxPartName.FindStringSubmatch(override); m != nil {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return ""
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found", name)
}
