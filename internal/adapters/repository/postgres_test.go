package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/scholarsync/internal/adapters/repository"
	. "github.com/smartystreets/goconvey/convey"
)

// Runs against a disposable database named by SCHOLARSYNC_TEST_DATABASE_URL.
func postgresStore(t *testing.T) (*repository.Postgres, *pgxpool.Pool) {
	t.Helper()
	url := os.Getenv("SCHOLARSYNC_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SCHOLARSYNC_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := repository.NewPostgresPool(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	for _, stmt := range []string{
		`DROP TABLE IF EXISTS match_suggestions`,
		`DROP TABLE IF EXISTS user_profiles`,
		`DROP TABLE IF EXISTS scholarships`,
		`DROP TABLE IF EXISTS legacy_scholarships`,
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("reset: %v", err)
		}
	}
	s := repository.NewPostgres(pool)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s, pool
}

func TestPostgresStore(t *testing.T) {
	s, pool := postgresStore(t)
	ctx := context.Background()

	Convey("Given a Postgres store", t, func() {
		storeContract(ctx, func() repository.Store {
			_, err := pool.Exec(ctx, `TRUNCATE scholarships, user_profiles, match_suggestions`)
			So(err, ShouldBeNil)
			return s
		})
	})

	Convey("Given the schema exists", t, func() {
		Convey("Then migrating again is a no-op", func() {
			So(s.Migrate(ctx), ShouldBeNil)
		})
	})
}

func TestPostgresMigrateLegacy(t *testing.T) {
	s, pool := postgresStore(t)
	ctx := context.Background()

	Convey("Given a first-generation table", t, func() {
		_, err := pool.Exec(ctx, `CREATE TABLE legacy_scholarships (
			id SERIAL PRIMARY KEY, name TEXT NOT NULL, description TEXT, provider TEXT,
			deadline TEXT, country TEXT, level_of_study TEXT, field_of_study TEXT,
			eligibility TEXT, benefits TEXT, application_link TEXT, contact_email TEXT,
			gender_requirements TEXT, nationality_requirements TEXT,
			institution_requirements TEXT, cgpa_requirements TEXT,
			source_url TEXT UNIQUE NOT NULL, source_website TEXT, extracted_date DATE,
			created_at TIMESTAMP, updated_at TIMESTAMP)`)
		So(err, ShouldBeNil)
		_, err = pool.Exec(ctx, `INSERT INTO legacy_scholarships
			(name, benefits, country, gender_requirements, cgpa_requirements, source_url, created_at)
			VALUES ('Chevening', 'Full tuition', 'UK', 'Female', '["3.5 GPA"]', 'https://x/chevening', now()),
			       ('Erasmus', NULL, 'Belgium', NULL, NULL, 'https://x/erasmus', NULL)`)
		So(err, ShouldBeNil)

		n, err := s.MigrateLegacy(ctx, "legacy_scholarships")

		Convey("Then rows land in the canonical table once", func() {
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)

			rec, err := s.GetBySourceURL(ctx, "https://x/chevening")
			So(err, ShouldBeNil)
			So(rec.Title, ShouldEqual, "Chevening")
			So(rec.AcademicRequirements, ShouldResemble, []string{"Gender: Female"})
			So(rec.CGPARequirements, ShouldResemble, []string{"3.5 GPA"})

			again, err := s.MigrateLegacy(ctx, "legacy_scholarships")
			So(err, ShouldBeNil)
			So(again, ShouldEqual, 0)
		})
	})
}
