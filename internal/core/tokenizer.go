package core

// tokenizer.go splits lead CSV text into records and fields.
//
// The rules are RFC-4180 with lenient edges:
//   - A '"' toggles quoting, except that '""' inside a quoted field is a
//     literal quote character.
//   - ',' separates fields only outside quotes.
//   - A newline (LF or CRLF) ends a record only outside quotes, so quoted
//     values may span lines. Only a quote at the start of a field can carry
//     a value across lines.
//   - Nothing is rejected: an unterminated quote runs to the end of its
//     line.

import "strings"

// field is a single tokenized cell.
type field struct {
	Text   string // Unescaped value
	Raw    string // Cell exactly as it appeared in the record
	Quoted bool   // Cell opened with a double quote
}

// SplitLine splits one CSV record into its field values.
//
// For example `val1,"val,with,commas","a ""quoted"" word"` yields
// ["val1", "val,with,commas", `a "quoted" word`].
func SplitLine(line string) []string {
	fields := splitFields(line)
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Text
	}
	return out
}

func splitFields(line string) []field {
	var (
		fields   []field
		cur      strings.Builder
		inQuotes bool
		start    int
	)

	emit := func(end int) {
		raw := line[start:end]
		fields = append(fields, field{
			Text:   cur.String(),
			Raw:    raw,
			Quoted: strings.HasPrefix(strings.TrimSpace(raw), `"`),
		})
		cur.Reset()
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"' && inQuotes && i+1 < len(line) && line[i+1] == '"':
			cur.WriteByte('"')
			i++
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			emit(i)
			start = i + 1
		default:
			cur.WriteByte(c)
		}
	}

	emit(len(line))
	return fields
}

// rawRecord is one record of the input and the physical line it starts on.
type rawRecord struct {
	Text string
	Line int // 1-based
}

// record is a tokenized rawRecord.
type record struct {
	Fields []field
	Line   int
}

// splitRecords splits text into raw records, honouring quotes that span
// newlines. Blank records are dropped; a trailing '\r' is removed.
//
// A quote opens a quoted value only at the start of a field, so a stray
// quote inside unquoted text stays on its own line. A quote that is never
// closed claims only the line it opened on.
func splitRecords(text string) []rawRecord {
	var records []rawRecord
	line := 1
	for start := 0; start < len(text); {
		end, closed := recordEnd(text, start)
		if !closed {
			if i := strings.IndexByte(text[start:], '\n'); i >= 0 {
				end = start + i
			}
		}

		rec := strings.TrimSuffix(text[start:end], "\r")
		if strings.TrimSpace(rec) != "" {
			records = append(records, rawRecord{Text: rec, Line: line})
		}
		line += strings.Count(text[start:end], "\n") + 1
		start = end + 1
	}
	return records
}

// recordEnd returns the index of the newline that ends the record beginning
// at start, or len(text). closed is false when input ran out inside quotes.
func recordEnd(text string, start int) (end int, closed bool) {
	inQuotes, fieldStart := false, true
	for i := start; i < len(text); i++ {
		c := text[i]
		if inQuotes {
			if c == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					i++
					continue
				}
				inQuotes = false
			}
			continue
		}

		switch c {
		case '\n':
			return i, true
		case ',':
			fieldStart = true
		case ' ', '\t', '\r':
		case '"':
			inQuotes = fieldStart
			fieldStart = false
		default:
			fieldStart = false
		}
	}
	return len(text), !inQuotes
}

// tokenize splits text into records of fields.
func tokenize(text string) []record {
	raw := splitRecords(text)
	out := make([]record, len(raw))
	for i, rec := range raw {
		out[i] = record{Fields: splitFields(rec.Text), Line: rec.Line}
	}
	return out
}
