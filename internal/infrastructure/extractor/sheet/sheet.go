// Package sheet loads the first worksheet of CSV, XLSX and legacy XLS files as a grid of strings.
package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
)

// Grid is a rectangular-ish view of a worksheet: rows may have different lengths.
type Grid [][]string

// Cell returns the trimmed cell text, or "" when the coordinate is out of range.
func (g Grid) Cell(row, col int) string {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return ""
	}
	return strings.TrimSpace(g[row][col])
}

// RowText joins the non-empty cells of a row with single spaces.
func (g Grid) RowText(row int) string {
	return g.RowTextSep(row, " ")
}

func (g Grid) RowTextSep(row int, sep string) string {
	if row < 0 || row >= len(g) {
		return ""
	}
	parts := make([]string, 0, len(g[row]))
	for _, cell := range g[row] {
		cell = strings.TrimSpace(cell)
		if cell != "" {
			parts = append(parts, cell)
		}
	}
	return strings.Join(parts, sep)
}

// Supported reports whether Open understands the file extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx", ".xlsm", ".xls":
		return true
	default:
		return false
	}
}

// Open reads the first worksheet of path.
func Open(path string) (Grid, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open xlsx: %w", err)
		}
		defer f.Close()
		return readWorkbook(f)
	case ".xls":
		return readXLS(path)
	default:
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "open sheet", fmt.Errorf("extension %q", filepath.Ext(path)))
	}
}

// ReadCSV reads ragged CSV rows; a UTF-8 byte order mark is dropped.
func ReadCSV(r io.Reader) (Grid, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var grid Grid
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(grid)+1, err)
		}
		grid = append(grid, record)
	}
	return grid, nil
}

// ReadXLSX reads the first worksheet of an XLSX stream.
func ReadXLSX(r io.Reader) (Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	return readWorkbook(f)
}

func readWorkbook(f *excelize.File) (Grid, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "read xlsx", errors.New("workbook has no sheets"))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return Grid(rows), nil
}

func readXLS(path string) (Grid, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "read xls", errors.New("workbook has no sheets"))
	}

	grid := make(Grid, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := ws.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for c := 0; c <= row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		grid = append(grid, cells)
	}
	return grid, nil
}
