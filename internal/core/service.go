package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/fieldverify/internal/config"
	"github.com/JonMunkholm/fieldverify/internal/lead"
	"github.com/JonMunkholm/fieldverify/internal/logging"
	"github.com/JonMunkholm/fieldverify/internal/repository"
)

var (
	// ErrNoFile is returned when an import has no file content.
	ErrNoFile = errors.New("no file provided")

	// ErrNoLeads is returned when a file parses to zero leads.
	ErrNoLeads = errors.New("no leads found in file")
)

// Service provides the lead operations used by the web layer.
type Service struct {
	repo      repository.Repository
	validator *lead.Validator
	limiter   *ImportLimiter
	history   *importHistory
	cfg       config.ImportConfig

	// now is replaceable in tests.
	now func() time.Time
}

// NewService creates a Service over repo.
func NewService(repo repository.Repository, cfg *config.Config) *Service {
	return &Service{
		repo:      repo,
		validator: lead.NewValidator(cfg.Locale.PhoneRegion),
		limiter:   NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		history:   newImportHistory(defaultHistorySize),
		cfg:       cfg.Import,
		now:       time.Now,
	}
}

// Ping checks that the repository is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// ImportFile reads a CSV or XLSX lead file and upserts every lead in it.
//
// Rows are never rejected: cells that fail coercion fall back to empty
// values and leads that fail validation are stored anyway and counted in
// ImportResult.Warnings. Leads without a creation time are stamped with the
// import time.
func (s *Service) ImportFile(ctx context.Context, fileName string, r io.Reader) (*ImportResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := s.now()
	importID := uuid.NewString()
	logger := logging.WithFields(ctx, "import_id", importID, "file", fileName)
	logger.Info("import started")

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

	warnings := 0
	for i := range p.Leads {
		if p.Leads[i].CreatedAt.IsZero() {
			p.Leads[i].CreatedAt = start
		}
		if err := s.validator.Validate(p.Leads[i]); err != nil {
			warnings++
			logger.Debug("lead imported with problems", "row", p.Rows[i], "lead_id", p.Leads[i].ID, "error", err)
		}
	}

	inserted, updated, err := s.repo.UpsertMany(ctx, p.Leads)
	if err != nil {
		logger.Error("import failed", "error", err)
		return nil, fmt.Errorf("store imported leads: %w", err)
	}

	result := &ImportResult{
		ImportID:     importID,
		FileName:     fileName,
		Rows:         len(p.Leads),
		Inserted:     inserted,
		Updated:      updated,
		GeneratedIDs: p.GeneratedIDs,
		Warnings:     warnings,
		Unmatched:    p.Unmatched(),
		ImportedAt:   start,
		Duration:     s.now().Sub(start),
	}
	s.history.add(*result)

	logger.Info("import completed",
		"rows", result.Rows,
		"inserted", inserted,
		"updated", updated,
		"warnings", warnings,
		"unmatched_headers", len(result.Unmatched),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// parseFile picks the reader by content, falling back to the extension.
func parseFile(fileName string, data []byte) (parsed, error) {
	if IsXLSX(data) || strings.EqualFold(filepath.Ext(fileName), ".xlsx") {
		return parseXLSX(strings.NewReader(string(data)))
	}

	text, err := DecodeText(data)
	if err != nil {
		return parsed{}, err
	}
	return parseCSV(text), nil
}

// ExportCSV renders the leads selected by f. Paging fields are ignored.
func (s *Service) ExportCSV(ctx context.Context, f repository.Filter) (string, error) {
	leads, err := s.exportLeads(ctx, f)
	if err != nil {
		return "", err
	}
	return ExportCSV(leads), nil
}

// ExportXLSX renders the leads selected by f as a workbook.
func (s *Service) ExportXLSX(ctx context.Context, f repository.Filter) ([]byte, error) {
	leads, err := s.exportLeads(ctx, f)
	if err != nil {
		return nil, err
	}
	return ExportXLSX(leads)
}

func (s *Service) exportLeads(ctx context.Context, f repository.Filter) ([]lead.Lead, error) {
	f.Limit, f.Offset = 0, 0
	leads, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("load leads for export: %w", err)
	}
	logging.FromContext(ctx).Info("leads exported", "count", len(leads))
	return leads, nil
}

// ExportFileName returns a dated download name such as
// "leads_2024-03-01.csv".
func ExportFileName(ext string, at time.Time) string {
	return "leads_" + at.Format("2006-01-02") + "." + ext
}

// LeadPage is one page of a lead listing.
type LeadPage struct {
	Leads []lead.Lead `json:"leads"`
	Total int         `json:"total"`
}

// ListLeads returns the leads matching f and the total match count.
func (s *Service) ListLeads(ctx context.Context, f repository.Filter) (*LeadPage, error) {
	leads, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}

	total := len(leads)
	if f.Limit > 0 || f.Offset > 0 {
		if total, err = s.repo.Count(ctx, f); err != nil {
			return nil, fmt.Errorf("count leads: %w", err)
		}
	}
	return &LeadPage{Leads: leads, Total: total}, nil
}

// GetLead returns one lead.
func (s *Service) GetLead(ctx context.Context, id string) (lead.Lead, error) {
	return s.repo.Get(ctx, id)
}

// CreateLead validates and stores a new lead. A blank ID is generated, blank
// enums take their defaults and the co-applicant phone is stored in E.164.
func (s *Service) CreateLead(ctx context.Context, l lead.Lead) (lead.Lead, error) {
	l.ID = strings.TrimSpace(l.ID)
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now()
	}
	if err := s.prepare(&l); err != nil {
		return lead.Lead{}, err
	}

	if err := s.repo.Create(ctx, l); err != nil {
		return lead.Lead{}, err
	}
	logging.FromContext(ctx).Info("lead created", "lead_id", l.ID, "bank", l.Bank)
	return l, nil
}

// UpdateLead replaces a stored lead. A status change must be a permitted
// workflow transition; the creation time is kept when l has none.
func (s *Service) UpdateLead(ctx context.Context, l lead.Lead) (lead.Lead, error) {
	current, err := s.repo.Get(ctx, l.ID)
	if err != nil {
		return lead.Lead{}, err
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = current.CreatedAt
	}
	if err := s.prepare(&l); err != nil {
		return lead.Lead{}, err
	}
	if err := lead.CheckTransition(current.Status, l.Status); err != nil {
		return lead.Lead{}, err
	}

	if err := s.repo.Update(ctx, l); err != nil {
		return lead.Lead{}, err
	}
	logging.FromContext(ctx).Info("lead updated", "lead_id", l.ID)
	return l, nil
}

// UpdateStatus moves a lead through the verification workflow. Completing a
// lead stamps its verification date when none is set.
func (s *Service) UpdateStatus(ctx context.Context, id string, status lead.Status) (lead.Lead, error) {
	if !status.Valid() {
		return lead.Lead{}, lead.FieldErrors{{
			Field:   "Status",
			Tag:     "lead_status",
			Message: fmt.Sprintf("invalid enum value %q", status),
		}}
	}
	status = lead.ParseStatus(string(status))

	l, err := s.repo.Get(ctx, id)
	if err != nil {
		return lead.Lead{}, err
	}
	if err := lead.CheckTransition(l.Status, status); err != nil {
		return lead.Lead{}, err
	}

	from := l.Status
	l.Status = status
	if status == lead.StatusCompleted && l.VerificationDate == nil {
		now := s.now()
		l.VerificationDate = &now
	}

	if err := s.repo.Update(ctx, l); err != nil {
		return lead.Lead{}, err
	}
	logging.FromContext(ctx).Info("lead status changed", "lead_id", id, "from", from, "to", status)
	return l, nil
}

// Assign sets the agent responsible for a lead. An empty agent unassigns it.
func (s *Service) Assign(ctx context.Context, id, agent string) (lead.Lead, error) {
	l, err := s.repo.Get(ctx, id)
	if err != nil {
		return lead.Lead{}, err
	}

	l.AssignedTo = strings.TrimSpace(agent)
	if err := s.repo.Update(ctx, l); err != nil {
		return lead.Lead{}, err
	}
	logging.FromContext(ctx).Info("lead assigned", "lead_id", id, "agent", l.AssignedTo)
	return l, nil
}

// DeleteLeads removes leads in bulk and reports how many existed.
func (s *Service) DeleteLeads(ctx context.Context, ids []string) (int, error) {
	n, err := s.repo.DeleteMany(ctx, ids)
	if err != nil {
		return 0, err
	}
	logging.FromContext(ctx).Info("leads deleted", "requested", len(ids), "deleted", n)
	return n, nil
}

// Stats counts leads per status and per bank.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	leads, err := s.repo.List(ctx, repository.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load leads for stats: %w", err)
	}

	st := &Stats{
		Total:    len(leads),
		ByStatus: make(map[lead.Status]int, len(lead.StatusValues())),
		ByBank:   make(map[string]int),
	}
	for _, v := range lead.StatusValues() {
		st.ByStatus[lead.Status(v)] = 0
	}
	for _, l := range leads {
		st.ByStatus[l.Status]++
		if l.Bank != "" {
			st.ByBank[l.Bank]++
		}
		if l.AssignedTo == "" {
			st.Unassigned++
		}
	}
	return st, nil
}

// ImportHistory returns recent imports, newest first.
func (s *Service) ImportHistory() []ImportResult {
	return s.history.list()
}

// ImportLimiterStatus reports the import slots in use.
func (s *Service) ImportLimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// prepare normalises enum spellings and the co-applicant phone, then
// validates l.
func (s *Service) prepare(l *lead.Lead) error {
	l.Status = normalizeEnum(l.Status, lead.DefaultStatus, lead.ParseStatus)
	l.VisitType = normalizeEnum(l.VisitType, lead.DefaultVisitType, lead.ParseVisitType)
	l.Address.Type = normalizeEnum(l.Address.Type, lead.DefaultAddressType, lead.ParseAddressType)
	for i := range l.AdditionalAddresses {
		a := &l.AdditionalAddresses[i]
		a.Type = normalizeEnum(a.Type, lead.DefaultAddressType, lead.ParseAddressType)
	}

	if l.AdditionalDetails.CoApplicant.IsZero() {
		l.AdditionalDetails.CoApplicant = nil
	}
	if err := s.validator.Validate(*l); err != nil {
		return err
	}

	if co := l.AdditionalDetails.CoApplicant; co != nil && co.Phone != "" {
		phone, err := lead.NormalizePhone(co.Phone, s.validator.Region())
		if err != nil {
			return err
		}
		co.Phone = phone
	}
	return nil
}

// normalizeEnum fills a blank value with def and canonicalises known
// spellings. Unknown values are left for the validator to report.
func normalizeEnum[T interface {
	~string
	Valid() bool
}](v, def T, parse func(string) T) T {
	switch {
	case strings.TrimSpace(string(v)) == "":
		return def
	case v.Valid():
		return parse(string(v))
	}
	return v
}
