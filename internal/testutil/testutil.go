package testutil

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/promptfolio/api/internal/database"
)

// TestDB creates an in-memory SQLite database with migrations applied.
// The database is automatically closed when the test completes.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		t.Fatalf("running migrations: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db.DB
}

// TestCompany represents a test company
type TestCompany struct {
	ID          string
	Name        string
	Description string
	Prompt      string
	CreatedAt   time.Time
}

// CreateTestCompany inserts a company directly, without going through the
// catalog package. The ID is a lowercased ULID unless name is usable as a slug.
func CreateTestCompany(t *testing.T, db *sql.DB, name string) *TestCompany {
	t.Helper()

	id := slug(name)
	if id == "" {
		id = strings.ToLower(ulid.Make().String())
	}
	now := time.Now().UTC()
	c := &TestCompany{
		ID:          id,
		Name:        name,
		Description: name + " builds things.",
		Prompt:      "You are a recruiter for " + name + ".",
		CreatedAt:   now,
	}

	_, err := db.ExecContext(context.Background(), `
		INSERT INTO companies (id, name, website, description, prompt, created_at)
		VALUES (?, ?, NULL, ?, ?, ?)
	`, c.ID, c.Name, c.Description, c.Prompt, now.Format(time.RFC3339))
	if err != nil {
		t.Fatalf("creating test company: %v", err)
	}

	return c
}

// TestJob represents a test job posting
type TestJob struct {
	ID        string
	CompanyID string
	Title     string
	Location  string
	PostedAt  time.Time
}

// CreateTestJob inserts a job with the next sequential ID.
func CreateTestJob(t *testing.T, db *sql.DB, companyID, title string, postedAt time.Time) *TestJob {
	t.Helper()

	ctx := context.Background()
	var seq int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM jobs`).Scan(&seq); err != nil {
		t.Fatalf("reading job sequence: %v", err)
	}
	for {
		var taken int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE id = ?`, strconv.FormatInt(seq, 10)).Scan(&taken); err != nil {
			t.Fatalf("checking job id: %v", err)
		}
		if taken == 0 {
			break
		}
		seq++
	}

	j := &TestJob{
		ID:        strconv.FormatInt(seq, 10),
		CompanyID: companyID,
		Title:     title,
		Location:  "Remote",
		PostedAt:  postedAt.UTC(),
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO jobs (id, seq, company_id, title, location, description, prompt, posted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, seq, companyID, title, j.Location, title+" role.", "Interview me for "+title+".", j.PostedAt.Format(time.RFC3339))
	if err != nil {
		t.Fatalf("creating test job: %v", err)
	}

	return j
}

func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
