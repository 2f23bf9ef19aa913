package core

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/JonMunkholm/fieldverify/internal/lead"
	"github.com/JonMunkholm/fieldverify/internal/repository"
)

// PreviewSummary contains the summary counts for an import preview.
type PreviewSummary struct {
	TotalRows       int `json:"totalRows"`
	NewRows         int `json:"newRows"`
	UpdateRows      int `json:"updateRows"`
	ErrorRows       int `json:"errorRows"`
	DuplicateInFile int `json:"duplicateInFile"`
	GeneratedIDs    int `json:"generatedIds"`
}

// RowPreview represents a single row for preview display.
type RowPreview struct {
	LineNumber int               `json:"lineNumber"`
	LeadID     string            `json:"leadId"`
	Values     map[string]string `json:"values"`
}

// UpdateDiff is a before/after view of a lead the import would overwrite.
type UpdateDiff struct {
	LineNumber int               `json:"lineNumber"`
	LeadID     string            `json:"leadId"`
	Current    map[string]string `json:"current"`
	Incoming   map[string]string `json:"incoming"`
	Changed    []string          `json:"changed"`
}

// ErrorPreview is a row that would be stored despite failing validation.
type ErrorPreview struct {
	LineNumber int               `json:"lineNumber"`
	LeadID     string            `json:"leadId,omitempty"`
	Errors     []lead.FieldError `json:"errors"`
}

// DuplicatePreview is a lead ID that appears on several rows. The last row
// wins when the file is imported.
type DuplicatePreview struct {
	LeadID      string `json:"leadId"`
	LineNumbers []int  `json:"lineNumbers"`
}

// PreviewResponse is the complete result of an import preview.
type PreviewResponse struct {
	Summary          PreviewSummary     `json:"summary"`
	Headers          []HeaderMatch      `json:"headers"`
	NewRowSamples    []RowPreview       `json:"newRowSamples"`
	UpdateDiffs      []UpdateDiff       `json:"updateDiffs"`
	ErrorSamples     []ErrorPreview     `json:"errorSamples"`
	DuplicateSamples []DuplicatePreview `json:"duplicateSamples"`
	ProcessingTimeMs int64              `json:"processingTimeMs"`
}

// Sample limits
const (
	maxNewRowSamples    = 10
	maxUpdateDiffs      = 10
	maxErrorSamples     = 20
	maxDuplicateSamples = 10
)

// PreviewImport parses a lead file and reports what importing it would do
// without writing anything.
func (s *Service) PreviewImport(ctx context.Context, fileName string, r io.Reader) (*PreviewResponse, error) {
	start := time.Now()

	data, err := ReadUpload(r, s.cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrNoFile
	}
	p, err := parseFile(fileName, data)
	if err != nil {
		return nil, err
	}
	if len(p.Leads) == 0 {
		return nil, ErrNoLeads
	}

	resp := &PreviewResponse{
		Summary: PreviewSummary{
			TotalRows:    len(p.Leads),
			GeneratedIDs: p.GeneratedIDs,
		},
		Headers:          p.Headers,
		NewRowSamples:    []RowPreview{},
		UpdateDiffs:      []UpdateDiff{},
		ErrorSamples:     []ErrorPreview{},
		DuplicateSamples: []DuplicatePreview{},
	}

	// Track duplicates within file
	seen := make(map[string][]int)
	order := make([]string, 0, len(p.Leads))

	for i, l := range p.Leads {
		line := p.Rows[i]
		if _, ok := seen[l.ID]; !ok {
			order = append(order, l.ID)
		}
		seen[l.ID] = append(seen[l.ID], line)

		if err := s.validator.Validate(l); err != nil {
			resp.Summary.ErrorRows++
			if len(resp.ErrorSamples) < maxErrorSamples {
				resp.ErrorSamples = append(resp.ErrorSamples, ErrorPreview{
					LineNumber: line,
					LeadID:     l.ID,
					Errors:     fieldErrors(err),
				})
			}
		}
	}

	// Classify each distinct ID once, against the last row that carries it.
	last := make(map[string]int, len(order))
	for i, l := range p.Leads {
		last[l.ID] = i
	}

	for _, id := range order {
		lines := seen[id]
		if len(lines) > 1 {
			resp.Summary.DuplicateInFile++
			if len(resp.DuplicateSamples) < maxDuplicateSamples {
				resp.DuplicateSamples = append(resp.DuplicateSamples, DuplicatePreview{LeadID: id, LineNumbers: lines})
			}
		}

		incoming := p.Leads[last[id]]
		line := p.Rows[last[id]]

		current, err := s.repo.Get(ctx, id)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			resp.Summary.NewRows++
			if len(resp.NewRowSamples) < maxNewRowSamples {
				resp.NewRowSamples = append(resp.NewRowSamples, RowPreview{
					LineNumber: line,
					LeadID:     id,
					Values:     leadValues(&incoming),
				})
			}
		case err != nil:
			return nil, err
		default:
			resp.Summary.UpdateRows++
			if len(resp.UpdateDiffs) < maxUpdateDiffs {
				resp.UpdateDiffs = append(resp.UpdateDiffs, diffLeads(line, &current, &incoming))
			}
		}
	}

	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	return resp, nil
}

// leadValues renders the non-NA cells of l keyed by header.
func leadValues(l *lead.Lead) map[string]string {
	values := make(map[string]string)
	for _, c := range columns {
		if v, _ := renderCell(c.field(l, false)); v != NA {
			values[c.Header] = v
		}
	}
	return values
}

func diffLeads(line int, current, incoming *lead.Lead) UpdateDiff {
	d := UpdateDiff{
		LineNumber: line,
		LeadID:     incoming.ID,
		Current:    make(map[string]string),
		Incoming:   make(map[string]string),
		Changed:    []string{},
	}
	for _, c := range columns {
		// Creation time is stamped at import, so an absent cell is not a change.
		if c.Path == "createdAt" && incoming.CreatedAt.IsZero() {
			continue
		}
		before, _ := renderCell(c.field(current, false))
		after, _ := renderCell(c.field(incoming, false))
		if before == after {
			continue
		}
		d.Current[c.Header] = before
		d.Incoming[c.Header] = after
		d.Changed = append(d.Changed, c.Header)
	}
	return d
}

func fieldErrors(err error) []lead.FieldError {
	var fe lead.FieldErrors
	if errors.As(err, &fe) {
		return fe
	}
	return []lead.FieldError{{Message: err.Error()}}
}
