// Package templates renders the HTML views of the lead console.
//
// Components are plain templ.Component values so that handlers can render
// full pages and HTMX fragments the same way.
package templates

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/fieldverify/internal/core"
	"github.com/JonMunkholm/fieldverify/internal/lead"
)

// DashboardParams holds everything shown on the landing page.
type DashboardParams struct {
	Stats   *core.Stats
	Leads   []lead.Lead
	Total   int
	Imports []core.ImportResult
}

// Dashboard renders the landing page: counts, the import form and the lead
// list.
func Dashboard(p DashboardParams) templ.Component {
	return layout("Leads", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := statsPanel(p.Stats).Render(ctx, w); err != nil {
			return err
		}
		if err := importForm().Render(ctx, w); err != nil {
			return err
		}
		if err := LeadTable(p.Leads, p.Total).Render(ctx, w); err != nil {
			return err
		}
		return ImportHistory(p.Imports).Render(ctx, w)
	}))
}

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>%s</title></head><body><main>`,
			templ.EscapeString(title)); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

func statsPanel(st *core.Stats) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if st == nil {
			return nil
		}
		b := &writer{w: w}
		b.printf(`<section id="stats"><h2>Leads</h2><p>Total: %d, unassigned: %d</p><ul>`, st.Total, st.Unassigned)
		for _, s := range lead.StatusValues() {
			b.printf(`<li>%s: %d</li>`, templ.EscapeString(s), st.ByStatus[lead.Status(s)])
		}
		b.write(`</ul></section>`)
		return b.err
	})
}

func importForm() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<section id="import"><h2>Import</h2>`+
			`<form method="post" action="/api/leads/import" enctype="multipart/form-data" hx-post="/api/leads/import" hx-target="#import-result">`+
			`<input type="file" name="file" accept=".csv,.xlsx" required> <button type="submit">Import</button></form>`+
			`<p><a href="/api/leads/sample.csv">Download sample</a> | <a href="/api/leads/export.csv">Export CSV</a> | <a href="/api/leads/export.xlsx">Export XLSX</a></p>`+
			`<div id="import-result"></div></section>`)
		return err
	})
}

// LeadTable renders the lead list.
func LeadTable(leads []lead.Lead, total int) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		b := &writer{w: w}
		b.printf(`<section id="leads"><p>Showing %d of %d</p>`, len(leads), total)
		if len(leads) == 0 {
			b.write(`<p>No leads yet.</p></section>`)
			return b.err
		}

		b.write(`<table><thead><tr><th>Lead ID</th><th>Name</th><th>Bank</th><th>Status</th><th>Assigned To</th><th>City</th></tr></thead><tbody>`)
		for _, l := range leads {
			b.printf(`<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				templ.EscapeString(l.ID),
				templ.EscapeString(l.Name),
				templ.EscapeString(l.Bank),
				templ.EscapeString(string(l.Status)),
				templ.EscapeString(l.AssignedTo),
				templ.EscapeString(l.Address.City),
			)
		}
		b.write(`</tbody></table></section>`)
		return b.err
	})
}

// ImportSummary renders the outcome of one import for the HTMX form.
func ImportSummary(r *core.ImportResult) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		b := &writer{w: w}
		b.printf(`<div class="alert alert-success" role="status"><strong>Imported %s</strong>: %d rows, %d new, %d updated`,
			templ.EscapeString(r.FileName), r.Rows, r.Inserted, r.Updated)
		if r.Warnings > 0 {
			b.printf(`, %d with problems`, r.Warnings)
		}
		if len(r.Unmatched) > 0 {
			cols := append([]string(nil), r.Unmatched...)
			sort.Strings(cols)
			b.write(`<p>Columns kept as extra data:`)
			for _, c := range cols {
				b.printf(` <code>%s</code>`, templ.EscapeString(c))
			}
			b.write(`</p>`)
		}
		b.write(`</div>`)
		return b.err
	})
}

// ImportHistory renders recent imports, newest first.
func ImportHistory(imports []core.ImportResult) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		b := &writer{w: w}
		b.write(`<section id="imports"><h2>Recent imports</h2>`)
		if len(imports) == 0 {
			b.write(`<p>No imports since the server started.</p></section>`)
			return b.err
		}
		b.write(`<ul>`)
		for _, r := range imports {
			b.printf(`<li>%s %s: %s rows (%d new, %d updated)</li>`,
				r.ImportedAt.UTC().Format("2006-01-02 15:04"),
				templ.EscapeString(r.FileName),
				strconv.Itoa(r.Rows), r.Inserted, r.Updated)
		}
		b.write(`</ul></section>`)
		return b.err
	})
}

// ErrorAlert renders a user-facing error as an HTMX fragment.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		b := &writer{w: w}
		b.printf(`<div class="alert alert-error" role="alert"><strong>%s</strong>`, templ.EscapeString(message))
		if action != "" {
			b.printf(` <span>%s</span>`, templ.EscapeString(action))
		}
		b.printf(` <small>Code: %s</small></div>`, templ.EscapeString(code))
		return b.err
	})
}

// writer keeps the first write error so components can write freely.
type writer struct {
	w   io.Writer
	err error
}

func (b *writer) write(s string) {
	if b.err == nil {
		_, b.err = io.WriteString(b.w, s)
	}
}

func (b *writer) printf(format string, args ...any) {
	if b.err == nil {
		_, b.err = fmt.Fprintf(b.w, format, args...)
	}
}
