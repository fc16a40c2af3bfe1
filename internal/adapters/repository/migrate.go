package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/okian/scholarsync/internal/domain/model"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS scholarships (
		id                    UUID PRIMARY KEY,
		title                 TEXT NOT NULL,
		description           TEXT NOT NULL DEFAULT '',
		provider              TEXT NOT NULL DEFAULT '',
		deadline              TEXT NOT NULL DEFAULT '',
		country               TEXT NOT NULL DEFAULT '',
		level_of_study        TEXT NOT NULL DEFAULT '',
		field_of_study        TEXT NOT NULL DEFAULT '',
		eligibility           TEXT NOT NULL DEFAULT '',
		academic_requirements TEXT[] NOT NULL DEFAULT '{}',
		cgpa_requirements     TEXT[] NOT NULL DEFAULT '{}',
		benefits              TEXT NOT NULL DEFAULT '',
		application_link      TEXT NOT NULL DEFAULT '',
		contact_email         TEXT NOT NULL DEFAULT '',
		keywords              TEXT[] NOT NULL DEFAULT '{}',
		source_url            TEXT NOT NULL UNIQUE,
		source_website        TEXT NOT NULL DEFAULT '',
		extracted_date        TEXT NOT NULL DEFAULT '',
		created_at            TIMESTAMPTZ NOT NULL,
		updated_at            TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
		user_id              TEXT PRIMARY KEY,
		level_of_study       TEXT NOT NULL DEFAULT '',
		field_of_study       TEXT NOT NULL DEFAULT '',
		institution          TEXT NOT NULL DEFAULT '',
		academic_performance TEXT NOT NULL DEFAULT '',
		country              TEXT NOT NULL DEFAULT '',
		state_of_origin      TEXT NOT NULL DEFAULT '',
		gender               TEXT NOT NULL DEFAULT '',
		religion             TEXT NOT NULL DEFAULT '',
		skills_interests     TEXT NOT NULL DEFAULT '',
		updated_at           TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS match_suggestions (
		user_id        TEXT NOT NULL,
		scholarship_id UUID NOT NULL REFERENCES scholarships (id) ON DELETE CASCADE,
		rank           INT NOT NULL,
		match_score    INT NOT NULL CHECK (match_score BETWEEN 0 AND 100),
		generated_at   TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, scholarship_id)
	)`,
	`CREATE INDEX IF NOT EXISTS match_suggestions_user_rank ON match_suggestions (user_id, rank)`,
}

// Migrate creates the canonical schema. It is safe to run repeatedly.
func (p *Postgres) Migrate(ctx context.Context) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		return nil
	})
}

// MigrateLegacy copies rows of a first-generation table (name, benefits,
// country, loose requirement columns) into the canonical table, once.
// Rows whose source_url already exists are skipped. It returns the number
// of rows inserted.
func (p *Postgres) MigrateLegacy(ctx context.Context, table string) (int, error) {
	query := `SELECT COALESCE(name, ''), COALESCE(description, ''), COALESCE(provider, ''),
		COALESCE(deadline, ''), COALESCE(country, ''), COALESCE(level_of_study, ''),
		COALESCE(field_of_study, ''), COALESCE(eligibility, ''), COALESCE(benefits, ''),
		COALESCE(application_link, ''), COALESCE(contact_email, ''),
		COALESCE(gender_requirements, ''), COALESCE(nationality_requirements, ''),
		COALESCE(institution_requirements, ''), COALESCE(cgpa_requirements, ''),
		source_url, COALESCE(source_website, ''), COALESCE(extracted_date::text, ''),
		created_at, updated_at
		FROM ` + pgx.Identifier{table}.Sanitize()

	inserted := 0
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query)
		if err != nil {
			return fmt.Errorf("read legacy rows: %w", err)
		}
		legacy, err := pgx.CollectRows(rows, scanLegacy)
		if err != nil {
			return fmt.Errorf("scan legacy rows: %w", err)
		}

		for _, l := range legacy {
			rec := l.ToScholarship()
			if validate(rec) != nil {
				continue
			}
			tag, err := tx.Exec(ctx, `
				INSERT INTO scholarships (
					id, title, description, provider, deadline, country,
					level_of_study, field_of_study, eligibility, academic_requirements,
					cgpa_requirements, benefits, application_link, contact_email, keywords,
					source_url, source_website, extracted_date, created_at, updated_at
				) VALUES ($1::text::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
				ON CONFLICT (source_url) DO NOTHING`,
				p.settings.newID(), rec.Title, rec.Description, rec.Provider, rec.Deadline, rec.Country,
				model.CanonicalLevel(rec.LevelOfStudy), rec.FieldOfStudy, rec.Eligibility, nonNil(rec.AcademicRequirements),
				nonNil(rec.CGPARequirements), rec.Benefits, rec.ApplicationLink, rec.ContactEmail, nonNil(rec.Keywords),
				rec.SourceURL, rec.SourceWebsite, rec.ExtractedDate, rec.CreatedAt, rec.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("insert %s: %w", rec.SourceURL, err)
			}
			inserted += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("migrate legacy table %s: %w", table, err)
	}
	return inserted, nil
}

func scanLegacy(row pgx.CollectableRow) (model.LegacyScholarship, error) {
	var (
		l                model.LegacyScholarship
		created, updated *time.Time
	)
	err := row.Scan(&l.Name, &l.Description, &l.Provider, &l.Deadline, &l.Country,
		&l.LevelOfStudy, &l.FieldOfStudy, &l.Eligibility, &l.Benefits,
		&l.ApplicationLink, &l.ContactEmail, &l.GenderRequirements,
		&l.NationalityRequirements, &l.InstitutionRequirements, &l.CGPARequirements,
		&l.SourceURL, &l.SourceWebsite, &l.ExtractedDate, &created, &updated)
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	if created != nil {
		l.CreatedAt = created.UTC()
	}
	if updated != nil {
		l.UpdatedAt = updated.UTC()
	}
	return l, err
}
