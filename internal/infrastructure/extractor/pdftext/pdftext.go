// Package pdftext turns PDF pages into newline separated text lines.
package pdftext

import (
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
)

// minGapRatio is the horizontal gap, relative to font size, that separates two words.
const minGapRatio = 0.2

// Pages returns one text block per page in page order. Pages without a content
// stream come back as empty strings so page numbers stay aligned.
func Pages(path string) (pages []string, err error) {
	defer func() {
		// The reader panics on some malformed object tables.
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, pageText(page))
	}
	return pages, nil
}

func pageText(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err == nil {
		if text := JoinRows(rows); strings.TrimSpace(text) != "" {
			return text
		}
	}
	plain, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return plain
}

// JoinRows renders positioned glyph runs as lines, inserting a space only where the
// horizontal gap between runs is wide enough to be a word break.
func JoinRows(rows pdf.Rows) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		var b strings.Builder
		var prev *pdf.Text
		for i := range row.Content {
			cur := &row.Content[i]
			if cur.S == "" {
				continue
			}
			if prev != nil && wordBreak(*prev, *cur) {
				b.WriteByte(' ')
			}
			b.WriteString(cur.S)
			prev = cur
		}
		line := strings.TrimSpace(b.String())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func wordBreak(prev, cur pdf.Text) bool {
	if strings.HasSuffix(prev.S, " ") || strings.HasPrefix(cur.S, " ") {
		return false
	}
	gap := cur.X - (prev.X + prev.W)
	threshold := math.Max(prev.FontSize*minGapRatio, 1)
	return gap > threshold
}
