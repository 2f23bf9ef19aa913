// Package repository persists leads behind a single interface so that the
// service layer does not depend on a concrete store.
//
// Three implementations are provided:
//
//   - Memory: process-local, for tests and demos
//   - Postgres: pgx pool over a leads table with JSONB sub-records
//   - Redis: JSON documents in a hash plus a creation-time index
//
// Every store hands out copies; mutating a returned lead never changes the
// stored one.
package repository

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/JonMunkholm/fieldverify/internal/lead"
)

var (
	// ErrNotFound is returned when no lead has the requested ID.
	ErrNotFound = errors.New("lead not found")

	// ErrExists is returned by Create when the ID is already taken.
	ErrExists = errors.New("lead already exists")
)

// Repository stores leads keyed by ID.
type Repository interface {
	// List returns leads matching f ordered by creation time, then ID.
	List(ctx context.Context, f Filter) ([]lead.Lead, error)
	Get(ctx context.Context, id string) (lead.Lead, error)
	Create(ctx context.Context, l lead.Lead) error
	Update(ctx context.Context, l lead.Lead) error

	// UpsertMany writes leads in one batch, replacing any with the same ID.
	UpsertMany(ctx context.Context, leads []lead.Lead) (inserted, updated int, err error)

	Delete(ctx context.Context, id string) error

	// DeleteMany removes the given IDs and reports how many existed.
	DeleteMany(ctx context.Context, ids []string) (int, error)

	Count(ctx context.Context, f Filter) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// Filter narrows List and Count. Zero fields match everything.
type Filter struct {
	Status     lead.Status
	AssignedTo string
	Bank       string

	// Search matches ID, name, bank and city case-insensitively.
	Search string

	// Unassigned selects leads with no agent; it overrides AssignedTo.
	Unassigned bool

	Limit  int
	Offset int
}

// IsZero reports whether f selects every lead.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Match reports whether l satisfies the predicate part of f. Limit and
// Offset are not considered.
func (f Filter) Match(l lead.Lead) bool {
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.Unassigned {
		if l.AssignedTo != "" {
			return false
		}
	} else if f.AssignedTo != "" && !strings.EqualFold(l.AssignedTo, f.AssignedTo) {
		return false
	}
	if f.Bank != "" && !strings.EqualFold(l.Bank, f.Bank) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		hay := strings.ToLower(l.ID + "\x00" + l.Name + "\x00" + l.Bank + "\x00" + l.Address.City)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}

// Page applies Offset and Limit to an ordered result.
func (f Filter) Page(leads []lead.Lead) []lead.Lead {
	if f.Offset > 0 {
		if f.Offset >= len(leads) {
			return []lead.Lead{}
		}
		leads = leads[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(leads) {
		leads = leads[:f.Limit]
	}
	return leads
}

// sortLeads orders leads by creation time, then ID.
func sortLeads(leads []lead.Lead) {
	slices.SortFunc(leads, func(a, b lead.Lead) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// filterSorted applies f to leads in place and returns the requested page.
func filterSorted(leads []lead.Lead, f Filter) []lead.Lead {
	out := leads[:0]
	for _, l := range leads {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	sortLeads(out)
	return f.Page(out)
}
