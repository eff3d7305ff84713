package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrCompanyNotFound = errors.New("company not found")
	ErrJobNotFound     = errors.New("job not found")
	ErrCompanyExists   = errors.New("company already exists")
	ErrJobExists       = errors.New("job already exists")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateCompany inserts a company. The ID is the caller-chosen slug.
func (r *Repository) CreateCompany(ctx context.Context, c *Company) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO companies (id, name, website, description, prompt, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Website, c.Description, c.Prompt, c.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrCompanyExists
	}
	return err
}

// CreateJob inserts a job. Jobs without an ID get the next sequential number
// not already taken by an explicitly chosen ID. j.ID is only set once the
// insert has committed.
func (r *Repository) CreateJob(ctx context.Context, j *Job) error {
	if j.PostedAt.IsZero() {
		j.PostedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM jobs`).Scan(&seq); err != nil {
		return err
	}

	id := j.ID
	if id == "" {
		for {
			id = strconv.FormatInt(seq, 10)
			var taken int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE id = ?`, id).Scan(&taken); err != nil {
				return err
			}
			if taken == 0 {
				break
			}
			seq++
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO jobs (id, seq, company_id, title, location, description, prompt, posted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, seq, j.CompanyID, j.Title, j.Location, j.Description, j.Prompt, j.PostedAt.UTC().Format(time.RFC3339))
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "FOREIGN KEY constraint failed"):
			return ErrCompanyNotFound
		case strings.Contains(err.Error(), "UNIQUE constraint failed"):
			return ErrJobExists
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	j.ID = id
	return nil
}

func (r *Repository) GetCompany(ctx context.Context, id string) (*Company, error) {
	c, err := scanCompany(r.db.QueryRowContext(ctx, `
		SELECT id, name, website, description, prompt, created_at
		FROM companies WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCompanyNotFound
	}
	return c, err
}

func (r *Repository) GetJob(ctx context.Context, id string) (*Job, error) {
	j, err := scanJob(r.db.QueryRowContext(ctx, `
		SELECT id, company_id, title, location, description, prompt, posted_at
		FROM jobs WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	return j, err
}

// ListCompanies returns one page of companies ordered by name, plus the
// total number of matches.
func (r *Repository) ListCompanies(ctx context.Context, f Filter) ([]Company, int, error) {
	f = f.normalize()

	where := ""
	var args []interface{}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = `WHERE name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\' OR prompt LIKE ? ESCAPE '\'`
		pattern := likePattern(q)
		args = append(args, pattern, pattern, pattern)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM companies `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, website, description, prompt, created_at
		FROM companies `+where+`
		ORDER BY name COLLATE NOCASE, id
		LIMIT ? OFFSET ?
	`, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	companies := []Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, 0, err
		}
		companies = append(companies, *c)
	}
	return companies, total, rows.Err()
}

// ListJobs returns one page of jobs, newest first, plus the total number of
// matches.
func (r *Repository) ListJobs(ctx context.Context, f JobFilter) ([]Job, int, error) {
	f.Filter = f.Filter.normalize()

	var clauses []string
	var args []interface{}
	if f.CompanyID != "" {
		clauses = append(clauses, "company_id = ?")
		args = append(args, f.CompanyID)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		clauses = append(clauses, `(title LIKE ? ESCAPE '\' OR location LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\' OR prompt LIKE ? ESCAPE '\')`)
		pattern := likePattern(q)
		args = append(args, pattern, pattern, pattern, pattern)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, company_id, title, location, description, prompt, posted_at
		FROM jobs `+where+`
		ORDER BY posted_at DESC, seq DESC
		LIMIT ? OFFSET ?
	`, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, total, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCompany(s scanner) (*Company, error) {
	var c Company
	var website sql.NullString
	var createdAt string

	if err := s.Scan(&c.ID, &c.Name, &website, &c.Description, &c.Prompt, &createdAt); err != nil {
		return nil, err
	}
	if website.Valid {
		c.Website = &website.String
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &c, nil
}

func scanJob(s scanner) (*Job, error) {
	var j Job
	var postedAt string

	if err := s.Scan(&j.ID, &j.CompanyID, &j.Title, &j.Location, &j.Description, &j.Prompt, &postedAt); err != nil {
		return nil, err
	}
	j.PostedAt, _ = time.Parse(time.RFC3339, postedAt)
	return &j, nil
}

// likePattern wraps q for a substring LIKE match, escaping wildcards.
func likePattern(q string) string {
	q = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q)
	return "%" + q + "%"
}
