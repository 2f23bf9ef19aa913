package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/fieldverify/internal/lead"
)

// pgUniqueViolation is the SQLSTATE for a duplicate key.
const pgUniqueViolation = "23505"

const leadsSchema = `
CREATE TABLE IF NOT EXISTS leads (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL DEFAULT '',
	age                  INTEGER NOT NULL DEFAULT 0,
	job                  TEXT NOT NULL DEFAULT '',
	status               TEXT NOT NULL DEFAULT 'Pending',
	bank                 TEXT NOT NULL DEFAULT '',
	visit_type           TEXT NOT NULL DEFAULT '',
	assigned_to          TEXT NOT NULL DEFAULT '',
	verification_date    TIMESTAMPTZ,
	instructions         TEXT NOT NULL DEFAULT '',
	has_co_applicant     BOOLEAN NOT NULL DEFAULT FALSE,
	co_applicant_name    TEXT NOT NULL DEFAULT '',
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	address              JSONB NOT NULL DEFAULT '{}',
	additional_addresses JSONB NOT NULL DEFAULT '[]',
	additional_details   JSONB NOT NULL DEFAULT '{}',
	extra                JSONB NOT NULL DEFAULT '{}',
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS leads_status_idx ON leads (status);
CREATE INDEX IF NOT EXISTS leads_assigned_to_idx ON leads (lower(assigned_to));
CREATE INDEX IF NOT EXISTS leads_created_idx ON leads (created_at, id);
`

const leadColumns = `id, name, age, job, status, bank, visit_type, assigned_to,
	verification_date, instructions, has_co_applicant, co_applicant_name,
	created_at, address, additional_addresses, additional_details, extra`

const insertLead = `INSERT INTO leads (` + leadColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

const upsertLead = insertLead + `
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		age = EXCLUDED.age,
		job = EXCLUDED.job,
		status = EXCLUDED.status,
		bank = EXCLUDED.bank,
		visit_type = EXCLUDED.visit_type,
		assigned_to = EXCLUDED.assigned_to,
		verification_date = EXCLUDED.verification_date,
		instructions = EXCLUDED.instructions,
		has_co_applicant = EXCLUDED.has_co_applicant,
		co_applicant_name = EXCLUDED.co_applicant_name,
		created_at = EXCLUDED.created_at,
		address = EXCLUDED.address,
		additional_addresses = EXCLUDED.additional_addresses,
		additional_details = EXCLUDED.additional_details,
		extra = EXCLUDED.extra,
		updated_at = now()
	RETURNING (xmax = 0) AS inserted`

const updateLead = `UPDATE leads SET
		name = $2, age = $3, job = $4, status = $5, bank = $6, visit_type = $7,
		assigned_to = $8, verification_date = $9, instructions = $10,
		has_co_applicant = $11, co_applicant_name = $12, created_at = $13,
		address = $14, additional_addresses = $15, additional_details = $16,
		extra = $17, updated_at = now()
	WHERE id = $1`

// PostgresOptions configures the connection pool.
type PostgresOptions struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Postgres is a Repository backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Repository = (*Postgres)(nil)

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// OpenPostgres connects, verifies the connection and creates the leads table
// if it does not exist.
func OpenPostgres(ctx context.Context, opts PostgresOptions) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := NewPostgres(pool)
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// EnsureSchema creates the leads table and its indexes.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, leadsSchema); err != nil {
		return fmt.Errorf("create leads schema: %w", err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context, f Filter) ([]lead.Lead, error) {
	where, args := buildWhere(f)
	query := "SELECT " + leadColumns + " FROM leads" + where + " ORDER BY created_at, id"

	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	out := []lead.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return out, nil
}

func (p *Postgres) Get(ctx context.Context, id string) (lead.Lead, error) {
	row := p.pool.QueryRow(ctx, "SELECT "+leadColumns+" FROM leads WHERE id = $1", id)
	l, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return lead.Lead{}, ErrNotFound
	}
	return l, err
}

func (p *Postgres) Create(ctx context.Context, l lead.Lead) error {
	_, err := p.pool.Exec(ctx, insertLead, leadArgs(l)...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrExists
	}
	if err != nil {
		return fmt.Errorf("create lead %s: %w", l.ID, err)
	}
	return nil
}

func (p *Postgres) Update(ctx context.Context, l lead.Lead) error {
	tag, err := p.pool.Exec(ctx, updateLead, leadArgs(l)...)
	if err != nil {
		return fmt.Errorf("update lead %s: %w", l.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertMany sends every row in one batch inside a transaction, so an
// import is stored completely or not at all.
func (p *Postgres) UpsertMany(ctx context.Context, leads []lead.Lead) (inserted, updated int, err error) {
	if len(leads) == 0 {
		return 0, 0, nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	batch := &pgx.Batch{}
	for _, l := range leads {
		batch.Queue(upsertLead, leadArgs(l)...)
	}

	br := tx.SendBatch(ctx, batch)
	for _, l := range leads {
		var isInsert bool
		if err := br.QueryRow().Scan(&isInsert); err != nil {
			br.Close()
			return 0, 0, fmt.Errorf("upsert lead %s: %w", l.ID, err)
		}
		if isInsert {
			inserted++
		} else {
			updated++
		}
	}
	if err := br.Close(); err != nil {
		return 0, 0, fmt.Errorf("upsert batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit upsert: %w", err)
	}
	return inserted, updated, nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM leads WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete lead %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := p.pool.Exec(ctx, "DELETE FROM leads WHERE id = ANY($1)", ids)
	if err != nil {
		return 0, fmt.Errorf("delete leads: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *Postgres) Count(ctx context.Context, f Filter) (int, error) {
	where, args := buildWhere(f)

	var n int
	if err := p.pool.QueryRow(ctx, "SELECT count(*) FROM leads"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return n, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// buildWhere renders the predicate part of f as a WHERE clause with
// numbered placeholders.
func buildWhere(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(format string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Unassigned {
		conds = append(conds, "assigned_to = ''")
	} else if f.AssignedTo != "" {
		add("lower(assigned_to) = lower($%d)", f.AssignedTo)
	}
	if f.Bank != "" {
		add("lower(bank) = lower($%d)", f.Bank)
	}
	if f.Search != "" {
		add("(id ILIKE $%[1]d OR name ILIKE $%[1]d OR bank ILIKE $%[1]d OR address->>'city' ILIKE $%[1]d)",
			"%"+escapeLike(f.Search)+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// escapeLike escapes LIKE wildcards so search text matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func leadArgs(l lead.Lead) []any {
	addresses := l.AdditionalAddresses
	if addresses == nil {
		addresses = []lead.Address{}
	}
	extra := l.Extra
	if extra == nil {
		extra = map[string]string{}
	}

	return []any{
		l.ID, l.Name, l.Age, l.Job, string(l.Status), l.Bank, string(l.VisitType), l.AssignedTo,
		l.VerificationDate, l.Instructions, l.HasCoApplicant, l.CoApplicantName,
		l.CreatedAt, l.Address, addresses, l.AdditionalDetails, extra,
	}
}

func scanLead(row pgx.Row) (lead.Lead, error) {
	var (
		l                 lead.Lead
		status, visitType string
	)
	err := row.Scan(
		&l.ID, &l.Name, &l.Age, &l.Job, &status, &l.Bank, &visitType, &l.AssignedTo,
		&l.VerificationDate, &l.Instructions, &l.HasCoApplicant, &l.CoApplicantName,
		&l.CreatedAt, &l.Address, &l.AdditionalAddresses, &l.AdditionalDetails, &l.Extra,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return lead.Lead{}, err
		}
		return lead.Lead{}, fmt.Errorf("scan lead: %w", err)
	}

	l.Status = lead.Status(status)
	l.VisitType = lead.VisitType(visitType)
	if len(l.AdditionalAddresses) == 0 {
		l.AdditionalAddresses = nil
	}
	if len(l.Extra) == 0 {
		l.Extra = nil
	}
	return l, nil
}
