package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/fieldverify/internal/lead"
)

// XLSXSheetName is the worksheet written by ExportXLSX.
const XLSXSheetName = "Leads"

const xlsxColumnWidth = 18

// ErrInvalidWorkbook is returned when an upload is not a readable workbook.
var ErrInvalidWorkbook = errors.New("open workbook")

// ExportXLSX renders leads as an Excel workbook with the same columns and
// NA rules as ExportCSV. Numbers and booleans are written as typed cells;
// dates stay as ISO-8601 text so they survive a round trip unchanged.
func ExportXLSX(leads []lead.Lead) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), XLSXSheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	headers := Headers()
	headerRow := make([]any, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(XLSXSheetName, "A1", &headerRow); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(XLSXSheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(XLSXSheetName, "A", lastCol, xlsxColumnWidth); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	for i := range leads {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := xlsxRow(&leads[i])
		if err := f.SetSheetRow(XLSXSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func xlsxRow(l *lead.Lead) []any {
	row := make([]any, len(columns))
	for i, c := range columns {
		s, _ := renderCell(c.field(l, false))
		row[i] = s
		if s == NA {
			continue
		}
		switch c.Type {
		case FieldInt:
			if n, err := strconv.Atoi(s); err == nil {
				row[i] = n
			}
		case FieldNumeric:
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				row[i] = v
			}
		case FieldBool:
			row[i] = s == "true"
		}
	}
	return row
}

// ParseXLSX reads leads from the first worksheet of an Excel workbook using
// the same header resolution and coercion as ParseCSV. Only an unreadable
// workbook is an error.
func ParseXLSX(r io.Reader) ([]lead.Lead, error) {
	p, err := parseXLSX(r)
	if err != nil {
		return nil, err
	}
	return p.Leads, nil
}

func parseXLSX(r io.Reader) (parsed, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return parsed{}, fmt.Errorf("%w: %w", ErrInvalidWorkbook, err)
	}
	defer f.Close()

	empty := parsed{Leads: []lead.Lead{}}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return empty, nil
	}

	// Raw values keep numbers exactly as stored rather than as displayed.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return parsed{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return empty, nil
	}
	return buildLeads(rows[0], rows[1:], nil), nil
}

// IsXLSX reports whether data starts with the ZIP signature used by
// Office Open XML workbooks.
func IsXLSX(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}
