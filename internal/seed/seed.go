package seed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/promptfolio/api/internal/catalog"
	"github.com/promptfolio/api/internal/shareid"
)

type seedCompany struct {
	id          string
	name        string
	website     string
	description string
	prompt      string
	jobs        []seedJob
}

type seedJob struct {
	title       string
	location    string
	description string
	prompt      string
	daysAgo     int
}

var companies = []seedCompany{
	{
		id:          "crtp-co",
		name:        "CRTP Co",
		website:     "https://crtp.example.com",
		description: "Tools for writing, testing and sharing AI prompts.",
		prompt:      "You are a hiring manager at CRTP Co. Explain what the company builds and what a great first month looks like.",
		jobs: []seedJob{
			{
				title:       "Backend Engineer",
				location:    "Remote",
				description: "Build the Go services behind prompt sharing and link previews.",
				prompt:      "Interview me for a backend engineering role focused on Go, SQLite and HTTP APIs.",
				daysAgo:     2,
			},
			{
				title:       "Prompt Designer",
				location:    "Berlin",
				description: "Write and curate the prompt library shipped with every account.",
				prompt:      "Give me three prompt-writing exercises and critique my answers.",
				daysAgo:     9,
			},
		},
	},
	{
		id:          "northwind",
		name:        "Northwind Analytics",
		website:     "https://northwind.example.com",
		description: "Forecasting for small retailers.",
		prompt:      "Act as a Northwind analyst and walk me through how you would forecast holiday demand.",
		jobs: []seedJob{
			{
				title:       "Data Scientist",
				location:    "Lisbon",
				description: "Own the demand models and their evaluation.",
				prompt:      "Quiz me on time-series forecasting, one question at a time.",
				daysAgo:     4,
			},
		},
	},
	{
		id:          "harbor-health",
		name:        "Harbor Health",
		description: "Scheduling software for community clinics.",
		prompt:      "You are a clinic manager using Harbor Health. Describe your worst scheduling day.",
		jobs: []seedJob{
			{
				title:       "Frontend Engineer",
				location:    "Remote (EU)",
				description: "Make the booking flow fast and accessible.",
				prompt:      "Review my approach to building an accessible date picker.",
				daysAgo:     1,
			},
			{
				title:       "Support Lead",
				location:    "Dublin",
				description: "Run support for 400 clinics and shape the help center.",
				prompt:      "Role-play an upset clinic administrator so I can practice de-escalation.",
				daysAgo:     15,
			},
		},
	},
}

// Run populates the database with the demo catalog and logs a share link
// for every entry. It is idempotent: if any company exists it logs and
// returns nil.
func Run(ctx context.Context, db *sql.DB, codec *shareid.Codec, publicURL string) error {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM companies`).Scan(&count); err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	slog.Info("seeding database...")

	repo := catalog.NewRepository(db)
	publicURL = strings.TrimRight(publicURL, "/")
	now := time.Now().UTC()

	for _, sc := range companies {
		c := &catalog.Company{
			ID:          sc.id,
			Name:        sc.name,
			Description: sc.description,
			Prompt:      sc.prompt,
			CreatedAt:   now,
		}
		if sc.website != "" {
			website := sc.website
			c.Website = &website
		}
		if err := repo.CreateCompany(ctx, c); err != nil {
			return fmt.Errorf("create company %s: %w", sc.id, err)
		}
		slog.Info("created company", "name", c.Name, "share_url", publicURL+"/companies/"+codec.Encode(c.ID))

		for _, sj := range sc.jobs {
			j := &catalog.Job{
				CompanyID:   c.ID,
				Title:       sj.title,
				Location:    sj.location,
				Description: sj.description,
				Prompt:      sj.prompt,
				PostedAt:    now.AddDate(0, 0, -sj.daysAgo),
			}
			if err := repo.CreateJob(ctx, j); err != nil {
				return fmt.Errorf("create job %q: %w", sj.title, err)
			}
			slog.Info("created job", "title", j.Title, "company", c.Name, "share_url", publicURL+"/jobs/"+codec.Encode(j.ID))
		}
	}

	slog.Info("seeding complete", "companies", len(companies))
	return nil
}
