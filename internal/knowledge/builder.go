package knowledge

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"marvel-rag/internal/model"
	"marvel-rag/internal/pkg/pdfextract"
)

var (
	ErrNoSections = errors.New("no sections found in source")

	headingPattern = regexp.MustCompile(`^#{2,3}\s+(.*)$`)
)

// SplitMarkdown turns every "## " or "### " heading into a section-N document
// holding the lines up to the next heading. Text before the first heading is
// ignored.
func SplitMarkdown(r io.Reader) ([]model.Document, error) {
	var (
		sections []model.Document
		title    string
		open     bool
		body     []string
	)
	flush := func() {
		if !open {
			return
		}
		sections = append(sections, model.Document{
			ID:    sectionID(len(sections) + 1),
			Title: title,
			Text:  strings.TrimSpace(strings.Join(body, "\n")),
		})
		body = body[:0]
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			flush()
			title = strings.TrimSpace(m[1])
			open = true
			continue
		}
		if open {
			body = append(body, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read markdown failed: %w", err)
	}
	flush()

	if len(sections) == 0 {
		return nil, ErrNoSections
	}
	return sections, nil
}

// SplitPDF makes one section per page with text. titlePrefix names the pages.
func SplitPDF(r io.Reader, titlePrefix string) ([]model.Document, error) {
	pages, err := pdfextract.ExtractPages(r)
	if err != nil {
		return nil, err
	}
	var sections []model.Document
	for i, text := range pages {
		if text == "" {
			continue
		}
		sections = append(sections, model.Document{
			ID:    sectionID(len(sections) + 1),
			Title: fmt.Sprintf("%s (p. %d)", titlePrefix, i+1),
			Text:  text,
		})
	}
	if len(sections) == 0 {
		return nil, ErrNoSections
	}
	return sections, nil
}

// BuildFromFile picks the splitter from the file extension.
func BuildFromFile(path string) ([]model.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source %s failed: %w", path, err)
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return SplitPDF(f, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	case ".md", ".markdown", ".txt":
		return SplitMarkdown(f)
	default:
		return nil, fmt.Errorf("unsupported knowledge source %q", ext)
	}
}

func sectionID(n int) string {
	return fmt.Sprintf("section-%d", n)
}
