package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/fieldverify/internal/config"
	"github.com/JonMunkholm/fieldverify/internal/core"
	"github.com/JonMunkholm/fieldverify/internal/lead"
	"github.com/JonMunkholm/fieldverify/internal/repository"
)

var testNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *repository.Memory) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Rate.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	repo := repository.NewMemory()
	s := NewServer(core.NewService(repo, cfg), cfg)
	s.now = func() time.Time { return testNow }
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, repo
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, target, fileName, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func seed(t *testing.T, repo *repository.Memory, leads ...lead.Lead) {
	t.Helper()
	for _, l := range leads {
		if l.CreatedAt.IsZero() {
			l.CreatedAt = testNow
		}
		require.NoError(t, repo.Create(context.Background(), l))
	}
}

const uploadCSV = `Lead ID,Name,Bank,Status
L1,Alice,HDFC,Pending
L2,Bob,SBI,In Progress
`

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", repository.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("get: %w", repository.ErrNotFound), http.StatusNotFound},
		{"exists", repository.ErrExists, http.StatusConflict},
		{"transition", lead.ErrInvalidTransition{From: lead.StatusPending, To: lead.StatusCompleted}, http.StatusConflict},
		{"field errors", lead.FieldErrors{{Field: "Name", Tag: "required"}}, http.StatusUnprocessableEntity},
		{"busy", core.ErrTooManyImports, http.StatusTooManyRequests},
		{"too large", core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"no file", core.ErrNoFile, http.StatusBadRequest},
		{"no leads", core.ErrNoLeads, http.StatusBadRequest},
		{"bad body", errBadRequest, http.StatusBadRequest},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"workbook", fmt.Errorf("%w: zip: not a valid zip file", core.ErrInvalidWorkbook), http.StatusBadRequest},
		{"workbook text only", errors.New("open workbook: zip: not a valid zip file"), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Storage)
	assert.Equal(t, 5, resp.Imports.MaxConcurrent)
}

func TestDashboard(t *testing.T) {
	s, repo := newTestServer(t, nil)
	seed(t, repo, lead.New("L1", "Alice <script>", "HDFC"))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<table>")
	assert.Contains(t, body, "Alice &lt;script&gt;")
	assert.NotContains(t, body, "<script>")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestNotFoundRoute(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "HTTP404", decodeError(t, rec).Code)
}

func TestLeadCRUD(t *testing.T) {
	s, repo := newTestServer(t, nil)

	rec := do(s, jsonRequest(http.MethodPost, "/api/leads", `{"id":"L1","name":"Alice","bank":"HDFC"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created lead.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, lead.StatusPending, created.Status)
	assert.Equal(t, lead.VisitResidence, created.VisitType)

	rec = do(s, jsonRequest(http.MethodPost, "/api/leads", `{"id":"L1","name":"Alice","bank":"HDFC"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "LEAD002", decodeError(t, rec).Code)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/leads/L1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(s, jsonRequest(http.MethodPut, "/api/leads/L1", `{"name":"Alice B","bank":"HDFC","status":"In Progress"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stored, err := repo.Get(context.Background(), "L1")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", stored.Name)
	assert.Equal(t, lead.StatusInProgress, stored.Status)

	rec = do(s, jsonRequest(http.MethodPost, "/api/leads/L1/assign", `{"assignedTo":" agent-7 "}`))
	require.Equal(t, http.StatusOK, rec.Code)
	stored, _ = repo.Get(context.Background(), "L1")
	assert.Equal(t, "agent-7", stored.AssignedTo)

	rec = do(s, jsonRequest(http.MethodPost, "/api/leads/L1/status", `{"status":"completed"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stored, _ = repo.Get(context.Background(), "L1")
	assert.Equal(t, lead.StatusCompleted, stored.Status)
	assert.NotNil(t, stored.VerificationDate)

	rec = do(s, jsonRequest(http.MethodPost, "/api/leads/delete", `{"ids":["L1","L9"]}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":1}`, rec.Body.String())

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/leads/L1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "LEAD001", decodeError(t, rec).Code)
}

func TestLeadErrors(t *testing.T) {
	s, repo := newTestServer(t, nil)
	seed(t, repo, lead.New("L1", "Alice", "HDFC"))

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
		wantCode   string
	}{
		{"missing required fields", jsonRequest(http.MethodPost, "/api/leads", `{"id":"L2"}`), http.StatusUnprocessableEntity, "VAL001"},
		{"malformed body", jsonRequest(http.MethodPost, "/api/leads", `{"id":`), http.StatusBadRequest, "VAL005"},
		{"empty body", jsonRequest(http.MethodPost, "/api/leads", ``), http.StatusBadRequest, "VAL005"},
		{"skipped transition", jsonRequest(http.MethodPost, "/api/leads/L1/status", `{"status":"Completed"}`), http.StatusConflict, "LEAD003"},
		{"unknown status", jsonRequest(http.MethodPost, "/api/leads/L1/status", `{"status":"Done"}`), http.StatusUnprocessableEntity, "VAL002"},
		{"unknown status filter", httptest.NewRequest(http.MethodGet, "/api/leads?status=Done", nil), http.StatusBadRequest, "VAL005"},
		{"empty delete", jsonRequest(http.MethodPost, "/api/leads/delete", `{"ids":[]}`), http.StatusBadRequest, "HTTP400"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, tt.req)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestCreateLead_FieldErrorsInBody(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(s, jsonRequest(http.MethodPost, "/api/leads", `{"name":"Alice"}`))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodeError(t, rec)
	require.NotEmpty(t, resp.Fields)
	assert.Equal(t, "Bank", resp.Fields[0].Field)
}

func TestListLeads(t *testing.T) {
	s, repo := newTestServer(t, nil)
	a := lead.New("L1", "Alice", "HDFC")
	a.CreatedAt = testNow.Add(-2 * time.Hour)
	b := lead.New("L2", "Bob", "SBI")
	b.CreatedAt = testNow.Add(-time.Hour)
	b.AssignedTo = "agent-1"
	c := lead.New("L3", "Cara", "HDFC")
	seed(t, repo, a, b, c)

	tests := []struct {
		name      string
		query     string
		wantIDs   []string
		wantTotal int
	}{
		{"all", "", []string{"L1", "L2", "L3"}, 3},
		{"bank", "?bank=hdfc", []string{"L1", "L3"}, 2},
		{"unassigned", "?unassigned=true", []string{"L1", "L3"}, 2},
		{"agent", "?assignedTo=agent-1", []string{"L2"}, 1},
		{"search", "?search=car", []string{"L3"}, 1},
		{"page", "?limit=1&offset=1", []string{"L2"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, httptest.NewRequest(http.MethodGet, "/api/leads"+tt.query, nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var resp leadListResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			ids := make([]string, len(resp.Leads))
			for i, l := range resp.Leads {
				ids[i] = l.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantTotal, resp.Total)
		})
	}
}

func TestListLeads_HTMXFragment(t *testing.T) {
	s, repo := newTestServer(t, nil)
	seed(t, repo, lead.New("L1", "Alice", "HDFC"))

	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	req.Header.Set("HX-Request", "true")
	rec := do(s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Showing 1 of 1")
}

func TestImport(t *testing.T) {
	s, repo := newTestServer(t, nil)

	rec := do(s, uploadRequest(t, "/api/leads/import", "leads.csv", uploadCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res core.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "leads.csv", res.FileName)
	assert.Equal(t, 2, res.Inserted)

	n, err := repo.Count(context.Background(), repository.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/imports", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var history []core.ImportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, res.ImportID, history[0].ImportID)
}

func TestImport_HTMXSummary(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := uploadRequest(t, "/api/leads/import", "leads.csv", uploadCSV)
	req.Header.Set("HX-Request", "true")
	rec := do(s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Imported leads.csv")
}

func TestImport_Errors(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*config.Config)
		req        func(t *testing.T) *http.Request
		htmx       bool
		wantStatus int
		wantCode   string
	}{
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/leads/import", nil)
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE002",
		},
		{
			name: "header only",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/leads/import", "empty.csv", "Lead ID,Name\n")
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE003",
		},
		{
			name:   "too large",
			mutate: func(c *config.Config) { c.Import.MaxFileSize = 16 },
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/leads/import", "leads.csv", uploadCSV)
			},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "FILE001",
		},
		{
			name: "broken workbook",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/leads/import", "leads.xlsx", "PK\x03\x04 not really a zip")
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE004",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, tt.mutate)
			rec := do(s, tt.req(t))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestImport_HTMXErrorFragment(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := uploadRequest(t, "/api/leads/import", "empty.csv", "Lead ID,Name\n")
	req.Header.Set("HX-Request", "true")
	rec := do(s, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `role="alert"`)
	assert.Contains(t, rec.Body.String(), "FILE003")
}

func TestPreview(t *testing.T) {
	s, repo := newTestServer(t, nil)
	seed(t, repo, lead.New("L1", "Old Name", "HDFC"))

	rec := do(s, uploadRequest(t, "/api/leads/import/preview", "leads.csv", uploadCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp core.PreviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Summary.TotalRows)
	assert.Equal(t, 1, resp.Summary.NewRows)
	assert.Equal(t, 1, resp.Summary.UpdateRows)

	// Nothing is written.
	_, err := repo.Get(context.Background(), "L2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestExports(t *testing.T) {
	s, repo := newTestServer(t, nil)
	seed(t, repo, lead.New("L1", "Alice", "HDFC"), lead.New("L2", "Bob", "SBI"))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/leads/export.csv?bank=SBI", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeCSV, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="leads_2024-06-01.csv"`, rec.Header().Get("Content-Disposition"))
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "Lead ID,"), body)
	assert.Contains(t, body, "Bob")
	assert.NotContains(t, body, "Alice")

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/leads/export.xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/leads/sample.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), core.SampleFileName)
	assert.Equal(t, core.SampleCSV(), rec.Body.String())
}

func TestStats(t *testing.T) {
	s, repo := newTestServer(t, nil)
	seed(t, repo, lead.New("L1", "Alice", "HDFC"), lead.New("L2", "Bob", "HDFC"))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/leads/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var st core.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 2, st.ByBank["HDFC"])
	assert.Equal(t, 2, st.ByStatus[lead.StatusPending])
}

func TestAPIKeyRequired(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"secret"}
	})

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/leads", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = do(s, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Pages and health checks stay open.
	rec = do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.RequestsPerMinute = 2
	})

	for i := 0; i < 2; i++ {
		rec := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	rec = do(s, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter_WindowReset(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rl := s.newRateLimiter(1, time.Minute)
	clock := testNow
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"))

	clock = clock.Add(time.Minute + time.Second)
	assert.True(t, rl.allow("a"))
}
