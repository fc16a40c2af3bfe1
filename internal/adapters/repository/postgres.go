package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/scholarsync/internal/domain/model"
	"github.com/okian/scholarsync/pkg/metrics"
)

// NewPostgresPool creates and verifies a pgxpool connection pool.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: postgres ping failed: %w", ErrStoreUnavailable, err)
	}

	return pool, nil
}

// Postgres implements Store on a pgx pool.
type Postgres struct {
	pool     *pgxpool.Pool
	settings settings
}

// NewPostgres wraps pool. The caller owns the pool.
func NewPostgres(pool *pgxpool.Pool, opts ...Option) *Postgres {
	return &Postgres{pool: pool, settings: applyOptions(opts)}
}

const scholarshipColumns = `id::text, title, description, provider, deadline, country,
	level_of_study, field_of_study, eligibility, academic_requirements,
	cgpa_requirements, benefits, application_link, contact_email, keywords,
	source_url, source_website, extracted_date, created_at, updated_at`

// Ping implements Store.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Upsert implements Store. ON CONFLICT keeps id and created_at of the
// existing row; xmax = 0 only holds for freshly inserted tuples.
func (p *Postgres) Upsert(ctx context.Context, rec model.Scholarship) (model.UpsertResult, error) {
	if err := validate(rec); err != nil {
		return model.UpsertResult{}, err
	}
	now := p.settings.now()

	var res model.UpsertResult
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO scholarships (
				id, title, description, provider, deadline, country,
				level_of_study, field_of_study, eligibility, academic_requirements,
				cgpa_requirements, benefits, application_link, contact_email, keywords,
				source_url, source_website, extracted_date, created_at, updated_at
			) VALUES ($1::text::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19)
			ON CONFLICT (source_url) DO UPDATE SET
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				provider = EXCLUDED.provider,
				deadline = EXCLUDED.deadline,
				country = EXCLUDED.country,
				level_of_study = EXCLUDED.level_of_study,
				field_of_study = EXCLUDED.field_of_study,
				eligibility = EXCLUDED.eligibility,
				academic_requirements = EXCLUDED.academic_requirements,
				cgpa_requirements = EXCLUDED.cgpa_requirements,
				benefits = EXCLUDED.benefits,
				application_link = EXCLUDED.application_link,
				contact_email = EXCLUDED.contact_email,
				keywords = EXCLUDED.keywords,
				source_website = EXCLUDED.source_website,
				extracted_date = EXCLUDED.extracted_date,
				updated_at = EXCLUDED.updated_at
			RETURNING id::text, (xmax = 0)`,
			p.settings.newID(), rec.Title, rec.Description, rec.Provider, rec.Deadline, rec.Country,
			rec.LevelOfStudy, rec.FieldOfStudy, rec.Eligibility, nonNil(rec.AcademicRequirements),
			nonNil(rec.CGPARequirements), rec.Benefits, rec.ApplicationLink, rec.ContactEmail, nonNil(rec.Keywords),
			rec.SourceURL, rec.SourceWebsite, rec.ExtractedDate, now,
		).Scan(&res.ID, &res.Inserted)
	})
	if err != nil {
		return model.UpsertResult{}, fmt.Errorf("upsert %s: %w", rec.SourceURL, err)
	}
	return res, nil
}

// GetByID implements Store.
func (p *Postgres) GetByID(ctx context.Context, id string) (model.Scholarship, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Scholarship{}, ErrNotFound
	}
	rows, err := p.pool.Query(ctx, `SELECT `+scholarshipColumns+` FROM scholarships WHERE id = $1::text::uuid`, id)
	if err != nil {
		return model.Scholarship{}, fmt.Errorf("get scholarship: %w", err)
	}
	return collectOne(rows)
}

// GetBySourceURL implements Store.
func (p *Postgres) GetBySourceURL(ctx context.Context, sourceURL string) (model.Scholarship, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+scholarshipColumns+` FROM scholarships WHERE source_url = $1`, sourceURL)
	if err != nil {
		return model.Scholarship{}, fmt.Errorf("get scholarship by url: %w", err)
	}
	return collectOne(rows)
}

// List implements Store.
func (p *Postgres) List(ctx context.Context, offset, limit int) ([]model.Scholarship, error) {
	out, _, err := p.Search(ctx, model.Filter{}, offset, limit)
	return out, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search implements Store.
func (p *Postgres) Search(ctx context.Context, f model.Filter, offset, limit int) ([]model.Scholarship, int, error) {
	var (
		conds []string
		args  []any
	)
	like := func(column, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		args = append(args, "%"+likeEscaper.Replace(value)+"%")
		conds = append(conds, fmt.Sprintf("%s ILIKE $%d", column, len(args)))
	}
	like("country", f.Country)
	like("level_of_study", f.Level)
	like("field_of_study", f.Field)
	like("deadline", f.Deadline)

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM scholarships`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("search scholarships count: %w", err)
	}

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT `+scholarshipColumns+` FROM scholarships%s ORDER BY id OFFSET $%d LIMIT $%d`,
		where, len(args)+1, len(args)+2)
	rows, err := p.pool.Query(ctx, query, append(args, offset, limitArg)...)
	if err != nil {
		return nil, 0, fmt.Errorf("search scholarships: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanScholarship)
	if err != nil {
		return nil, 0, fmt.Errorf("search scholarships scan: %w", err)
	}
	return out, total, nil
}

// Count implements Store.
func (p *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM scholarships`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count scholarships: %w", err)
	}
	metrics.UpdateTotalScholarships(n)
	return n, nil
}

// Suggestions implements Store.
func (p *Postgres) Suggestions(ctx context.Context, userID string) ([]model.Suggestion, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT user_id, scholarship_id::text, rank, match_score, generated_at
		FROM match_suggestions WHERE user_id = $1 ORDER BY rank`, userID)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Suggestion, error) {
		var s model.Suggestion
		err := row.Scan(&s.UserID, &s.ScholarshipID, &s.Rank, &s.Score, &s.GeneratedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("list suggestions scan: %w", err)
	}
	return out, nil
}

// ReplaceSuggestions implements Store: delete and insert run in one
// transaction, so a failure rolls back to the previous set.
func (p *Postgres) ReplaceSuggestions(ctx context.Context, userID string, set []model.Suggestion) error {
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM match_suggestions WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("delete previous set: %w", err)
		}
		if len(set) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for _, s := range set {
			batch.Queue(`
				INSERT INTO match_suggestions (user_id, scholarship_id, rank, match_score, generated_at)
				VALUES ($1, $2::text::uuid, $3, $4, $5)`,
				userID, s.ScholarshipID, s.Rank, s.Score, s.GeneratedAt)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert new set: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace suggestions for %s: %w", userID, err)
	}
	return nil
}

// Profile implements Store.
func (p *Postgres) Profile(ctx context.Context, userID string) (model.UserProfile, error) {
	var u model.UserProfile
	err := p.pool.QueryRow(ctx, `
		SELECT user_id, level_of_study, field_of_study, institution, academic_performance,
		       country, state_of_origin, gender, religion, skills_interests
		FROM user_profiles WHERE user_id = $1`, userID,
	).Scan(&u.UserID, &u.LevelOfStudy, &u.FieldOfStudy, &u.Institution, &u.AcademicPerformance,
		&u.Country, &u.StateOfOrigin, &u.Gender, &u.Religion, &u.SkillsInterests)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.UserProfile{}, ErrNotFound
	}
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("get profile: %w", err)
	}
	return u, nil
}

// SaveProfile implements Store.
func (p *Postgres) SaveProfile(ctx context.Context, u model.UserProfile) error {
	if strings.TrimSpace(u.UserID) == "" {
		return ErrInvalidProfile
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO user_profiles (user_id, level_of_study, field_of_study, institution,
			academic_performance, country, state_of_origin, gender, religion, skills_interests, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			level_of_study = EXCLUDED.level_of_study,
			field_of_study = EXCLUDED.field_of_study,
			institution = EXCLUDED.institution,
			academic_performance = EXCLUDED.academic_performance,
			country = EXCLUDED.country,
			state_of_origin = EXCLUDED.state_of_origin,
			gender = EXCLUDED.gender,
			religion = EXCLUDED.religion,
			skills_interests = EXCLUDED.skills_interests,
			updated_at = EXCLUDED.updated_at`,
		u.UserID, u.LevelOfStudy, u.FieldOfStudy, u.Institution, u.AcademicPerformance,
		u.Country, u.StateOfOrigin, u.Gender, u.Religion, u.SkillsInterests, p.settings.now())
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func scanScholarship(row pgx.CollectableRow) (model.Scholarship, error) {
	var s model.Scholarship
	var created, updated time.Time
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.Provider, &s.Deadline, &s.Country,
		&s.LevelOfStudy, &s.FieldOfStudy, &s.Eligibility, &s.AcademicRequirements,
		&s.CGPARequirements, &s.Benefits, &s.ApplicationLink, &s.ContactEmail, &s.Keywords,
		&s.SourceURL, &s.SourceWebsite, &s.ExtractedDate, &created, &updated)
	s.CreatedAt, s.UpdatedAt = created.UTC(), updated.UTC()
	return s, err
}

func collectOne(rows pgx.Rows) (model.Scholarship, error) {
	rec, err := pgx.CollectExactlyOneRow(rows, scanScholarship)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Scholarship{}, ErrNotFound
	}
	if err != nil {
		return model.Scholarship{}, fmt.Errorf("scan scholarship: %w", err)
	}
	return rec, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
