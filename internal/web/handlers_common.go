package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/fieldverify/internal/lead"
	"github.com/JonMunkholm/fieldverify/internal/repository"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// Paging limits for list endpoints.
const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// parseIntParam parses a non-negative integer query parameter with a
// default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

// parseFilter builds a repository filter from the query string:
// status, assignedTo, bank, search, unassigned, limit and offset.
// An unknown status is a bad request rather than an empty result.
func parseFilter(r *http.Request, paged bool) (repository.Filter, error) {
	q := r.URL.Query()
	f := repository.Filter{
		AssignedTo: strings.TrimSpace(q.Get("assignedTo")),
		Bank:       strings.TrimSpace(q.Get("bank")),
		Search:     strings.TrimSpace(q.Get("search")),
	}

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		st := lead.Status(raw)
		if !st.Valid() {
			return repository.Filter{}, fmt.Errorf("%w: unknown status %q", errBadRequest, raw)
		}
		f.Status = lead.ParseStatus(raw)
	}

	if raw := q.Get("unassigned"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return repository.Filter{}, fmt.Errorf("%w: unassigned must be true or false", errBadRequest)
		}
		f.Unassigned = b
	}

	if paged {
		f.Limit = min(parseIntParam(r, "limit", defaultPageSize), maxPageSize)
		f.Offset = parseIntParam(r, "offset", 0)
	}
	return f, nil
}

// decodeJSON reads a single JSON value from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
