// Package fixture is a development stand-in for the remote attendee listing.
//
// Attendees live in SQLite (modernc.org/sqlite, in-memory unless a path is
// given) and are served on the same route and JSON shape as the real
// endpoint, so the CLI and tests can run without the production API.
package fixture

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/passin-dev/attendees/pkg/attendee"
	"github.com/passin-dev/attendees/pkg/pagination"
)

const schema = `
CREATE TABLE IF NOT EXISTS attendees (
    id TEXT PRIMARY KEY,
    event_id TEXT NOT NULL,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    created_at TEXT NOT NULL,
    checked_in_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_event_attendees ON attendees(event_id, created_at);
`

// Store holds fixture attendees.
type Store struct {
	db *sql.DB
}

// Open opens the store at path. An empty path opens a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert adds one attendee to eventID. An empty ID gets a new UUID.
func (s *Store) Insert(ctx context.Context, eventID string, a attendee.Attendee) (attendee.Attendee, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	var checkedIn sql.NullString
	if a.CheckedInAt != nil {
		checkedIn = sql.NullString{String: a.CheckedInAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attendees (id, event_id, name, email, created_at, checked_in_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, eventID, a.Name, a.Email, a.CreatedAt.UTC().Format(time.RFC3339Nano), checkedIn,
	)
	if err != nil {
		return attendee.Attendee{}, fmt.Errorf("insert attendee: %w", err)
	}
	return a, nil
}

var (
	firstNames = []string{"Ana", "Bruno", "Carla", "Diego", "Elisa", "Fábio", "Gabriela", "Hugo", "Isabela", "João", "Larissa", "Marcos"}
	lastNames  = []string{"Silva", "Souza", "Oliveira", "Santos", "Lima", "Pereira", "Costa", "Ferreira"}
)

// Seed inserts n generated attendees for eventID. Registrations are spaced
// one hour apart ending at now, and every third attendee is checked in.
func (s *Store) Seed(ctx context.Context, eventID string, n int, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO attendees (id, event_id, name, email, created_at, checked_in_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		first := firstNames[i%len(firstNames)]
		last := lastNames[(i/len(firstNames))%len(lastNames)]
		created := now.Add(-time.Duration(n-i) * time.Hour).UTC()

		var checkedIn sql.NullString
		if i%3 == 0 {
			checkedIn = sql.NullString{String: created.Add(30 * time.Minute).Format(time.RFC3339Nano), Valid: true}
		}

		_, err := stmt.ExecContext(ctx,
			uuid.NewString(),
			eventID,
			first+" "+last,
			fmt.Sprintf("%s.%s.%d@example.com", strings.ToLower(first), strings.ToLower(last), i),
			created.Format(time.RFC3339Nano),
			checkedIn,
		)
		if err != nil {
			return fmt.Errorf("seed attendee %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// List returns page pageIndex (0-based) of eventID's attendees whose name
// contains query, newest registrations first.
func (s *Store) List(ctx context.Context, eventID string, pageIndex int, query string) (attendee.Page, error) {
	where := `event_id = ?`
	args := []any{eventID}
	if query != "" {
		where += ` AND name LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(query)+"%")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendees WHERE `+where, args...).Scan(&total); err != nil {
		return attendee.Page{}, fmt.Errorf("count attendees: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, created_at, checked_in_at FROM attendees WHERE `+where+
			` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		append(args, pagination.PageSize, pageIndex*pagination.PageSize)...,
	)
	if err != nil {
		return attendee.Page{}, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	page := attendee.Page{Attendees: []attendee.Attendee{}, Total: total}
	for rows.Next() {
		var (
			a         attendee.Attendee
			created   string
			checkedIn sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &created, &checkedIn); err != nil {
			return attendee.Page{}, fmt.Errorf("scan attendee: %w", err)
		}
		if a.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return attendee.Page{}, fmt.Errorf("parse created_at: %w", err)
		}
		if checkedIn.Valid {
			t, err := time.Parse(time.RFC3339Nano, checkedIn.String)
			if err != nil {
				return attendee.Page{}, fmt.Errorf("parse checked_in_at: %w", err)
			}
			a.CheckedInAt = &t
		}
		page.Attendees = append(page.Attendees, a)
	}
	return page, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
