// Package core provides the lead interchange format and the business logic
// around it. It has no UI dependencies and can be used by any frontend.
package core

import (
	"strings"
	"time"

	"github.com/JonMunkholm/fieldverify/internal/lead"
)

// FieldType represents the data type of a CSV column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldDate
	FieldInt
	FieldNumeric
	FieldBool
)

func (t FieldType) String() string {
	switch t {
	case FieldEnum:
		return "enum"
	case FieldDate:
		return "date"
	case FieldInt:
		return "integer"
	case FieldNumeric:
		return "number"
	case FieldBool:
		return "boolean"
	default:
		return "text"
	}
}

// Column describes one column of the lead CSV format.
type Column struct {
	Header     string    // Human-readable header, exported verbatim
	Path       string    // Dotted field path, e.g. "address.street"
	Type       FieldType // Cell type used for formatting and coercion
	EnumValues []string  // Valid values for FieldEnum

	// field returns a pointer to the lead attribute backing this column.
	// When create is false and the attribute lives in a sub-record that is
	// not allocated, it returns nil.
	field func(l *lead.Lead, create bool) any
}

// Nested reports whether the column belongs to a sub-record.
func (c Column) Nested() bool {
	return strings.Contains(c.Path, ".")
}

// ImportResult summarises an import run.
type ImportResult struct {
	ImportID     string        `json:"importId"`
	FileName     string        `json:"fileName"`
	Rows         int           `json:"rows"`
	Inserted     int           `json:"inserted"`
	Updated      int           `json:"updated"`
	GeneratedIDs int           `json:"generatedIds"`
	Warnings     int           `json:"warnings"` // Leads stored despite failing validation
	Unmatched    []string      `json:"unmatchedHeaders,omitempty"`
	ImportedAt   time.Time     `json:"importedAt"`
	Duration     time.Duration `json:"duration"`
}

// Stats holds lead counts for the dashboard.
type Stats struct {
	Total      int                 `json:"total"`
	ByStatus   map[lead.Status]int `json:"byStatus"`
	ByBank     map[string]int      `json:"byBank"`
	Unassigned int                 `json:"unassigned"`
}
