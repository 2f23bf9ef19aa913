package core

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/fieldverify/internal/lead"
)

// ParseCSV reconstructs leads from CSV text.
//
// Column order is irrelevant: each header is resolved through ResolveHeader.
// Parsing is best-effort and never fails. Short rows leave trailing fields at
// their defaults, extra cells without a header are ignored, and a cell that
// cannot be coerced leaves its field empty. Text with fewer than two records
// yields an empty slice.
func ParseCSV(text string) []lead.Lead {
	return parseCSV(text).Leads
}

// ParseRows builds leads from a header row and data rows whose cells are
// already unescaped, as read from a spreadsheet.
func ParseRows(header []string, rows [][]string) []lead.Lead {
	return buildLeads(header, rows, nil).Leads
}

// HeaderMatch reports how one input header was resolved.
type HeaderMatch struct {
	Header  string `json:"header"`
	Path    string `json:"path"`
	Matched bool   `json:"matched"`
}

// parsed is the detailed outcome of reading a lead file.
type parsed struct {
	Leads        []lead.Lead
	Rows         []int // 1-based line or sheet row each lead starts on
	Headers      []HeaderMatch
	GeneratedIDs int
}

// Unmatched returns the headers that fell through to Lead.Extra.
func (p parsed) Unmatched() []string {
	var out []string
	for _, h := range p.Headers {
		if !h.Matched && h.Path != "" {
			out = append(out, h.Path)
		}
	}
	return out
}

func parseCSV(text string) parsed {
	records := tokenize(text)
	if len(records) < 2 {
		return parsed{Leads: []lead.Lead{}}
	}

	header := make([]string, len(records[0].Fields))
	for i, f := range records[0].Fields {
		header[i] = f.Text
	}

	rows := make([][]string, 0, len(records)-1)
	lines := make([]int, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]string, len(rec.Fields))
		for i, f := range rec.Fields {
			row[i] = cellValue(f)
		}
		rows = append(rows, row)
		lines = append(lines, rec.Line)
	}

	return buildLeads(header, rows, lines)
}

// cellValue returns the value of a tokenized cell. Quoted text is taken
// verbatim; unquoted text gets the spreadsheet artifact cleanup. Excel's
// ="..." form is recognised from the raw cell because the tokenizer has
// already consumed its quotes.
func cellValue(f field) string {
	if f.Quoted {
		return f.Text
	}
	if strings.HasPrefix(strings.TrimSpace(f.Raw), `="`) {
		return CleanCell(f.Raw)
	}
	return CleanCell(f.Text)
}

// headerSlot is a resolved input column.
type headerSlot struct {
	key   string // Field path, or the raw header text when unmatched
	known bool
	col   Column
}

// resolveHeaders resolves every input column. A partial match gives way to
// any exact match for the same path and is kept under its own header.
func resolveHeaders(header []string) []headerSlot {
	kinds := make([]matchKind, len(header))
	exact := make(map[string]bool)
	slots := make([]headerSlot, len(header))
	for i, h := range header {
		path, kind := resolveHeader(h)
		slots[i] = headerSlot{key: path}
		kinds[i] = kind
		if kind == matchExact {
			exact[path] = true
		}
	}

	for i := range slots {
		s := &slots[i]
		switch {
		case kinds[i] == matchPartial && exact[s.key]:
			s.key = CleanHeader(header[i])
		case kinds[i] != matchNone:
			s.col, s.known = ColumnByPath(s.key)
		}
	}
	return slots
}

// buildLeads turns rows into leads. lines holds the source line of each row;
// when nil, rows are numbered as consecutive sheet rows after the header.
func buildLeads(header []string, rows [][]string, lines []int) parsed {
	slots := resolveHeaders(header)
	out := parsed{
		Leads:   make([]lead.Lead, 0, len(rows)),
		Rows:    make([]int, 0, len(rows)),
		Headers: make([]HeaderMatch, len(slots)),
	}
	for i, s := range slots {
		out.Headers[i] = HeaderMatch{Header: CleanHeader(header[i]), Path: s.key, Matched: s.known}
	}

	for i, row := range rows {
		if blankRow(row) {
			continue
		}
		l, generated := buildLead(slots, row)
		if generated {
			out.GeneratedIDs++
		}
		out.Leads = append(out.Leads, l)
		line := i + 2
		if lines != nil {
			line = lines[i]
		}
		out.Rows = append(out.Rows, line)
	}
	return out
}

func buildLead(slots []headerSlot, row []string) (l lead.Lead, generatedID bool) {
	l = lead.New("", "", "")
	set := make(map[string]bool, len(slots))

	for i, s := range slots {
		if s.key == "" || i >= len(row) || IsNA(row[i]) {
			continue
		}
		// A column listed twice keeps its first usable value.
		if set[s.key] {
			continue
		}
		set[s.key] = true

		if !s.known {
			if l.Extra == nil {
				l.Extra = make(map[string]string)
			}
			l.Extra[s.key] = row[i]
			continue
		}
		assign(&l, s.col, row[i])
	}

	if l.ID == "" {
		l.ID = uuid.NewString()
		generatedID = true
	}
	if l.AdditionalDetails.CoApplicant.IsZero() {
		l.AdditionalDetails.CoApplicant = nil
	}
	return l, generatedID
}

// assign coerces raw into the attribute behind c. Values that do not coerce
// leave the attribute untouched.
func assign(l *lead.Lead, c Column, raw string) {
	switch p := c.field(l, true).(type) {
	case *string:
		*p = raw
	case *lead.Status:
		*p = lead.ParseStatus(raw)
	case *lead.VisitType:
		*p = lead.ParseVisitType(raw)
	case *lead.AddressType:
		*p = lead.ParseAddressType(raw)
	case *int:
		if n, ok := ParseInt(raw); ok {
			*p = n
		}
	case **int:
		if n, ok := ParseInt(raw); ok {
			*p = &n
		}
	case **float64:
		if f, ok := ParseNumeric(raw); ok {
			*p = &f
		}
	case *bool:
		*p = ParseBool(raw)
	case *time.Time:
		if t, ok := ParseDate(raw); ok {
			*p = t
		}
	case **time.Time:
		if t, ok := ParseDate(raw); ok {
			*p = &t
		}
	}
}

func blankRow(row []string) bool {
	for _, v := range row {
		if !IsNA(v) {
			return false
		}
	}
	return true
}
