package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"reward-advisor/domain"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Fixed-width UTC timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteRecommendationRepository stores recommendations in a local SQLite file.
type SQLiteRecommendationRepository struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path. ":memory:" is accepted.
func OpenSQLite(path string) (*SQLiteRecommendationRepository, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening recommendations db: %w", err)
	}
	if path == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteRecommendationRepository{db: db}, nil
}

func (r *SQLiteRecommendationRepository) Close() error {
	return r.db.Close()
}

// Replace deletes the user's previous batch and inserts recs in one transaction.
func (r *SQLiteRecommendationRepository) Replace(ctx context.Context, userID string, recs []domain.Recommendation) error {
	if err := checkOwner(userID, recs); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recommendations WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clearing recommendations for %s: %w", userID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO recommendations
		(id, user_id, type, title, description, rationale, action_items,
		 expected_benefit, confidence, priority, source, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range recs {
		items, err := json.Marshal(rec.ActionItems)
		if err != nil {
			return fmt.Errorf("encoding action items: %w", err)
		}
		var expires sql.NullString
		if rec.ExpiresAt != nil {
			expires = sql.NullString{String: rec.ExpiresAt.UTC().Format(timeLayout), Valid: true}
		}
		_, err = stmt.ExecContext(ctx,
			rec.ID, rec.UserID, string(rec.Type), rec.Title, rec.Description, rec.Rationale, string(items),
			rec.ExpectedBenefit, rec.Confidence, string(rec.Priority), rec.Source,
			rec.CreatedAt.UTC().Format(timeLayout), expires,
		)
		if err != nil {
			return fmt.Errorf("saving recommendation %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecommendationRepository) ListCurrent(ctx context.Context, userID string, now time.Time) ([]domain.Recommendation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, type, title, description, rationale, action_items,
		expected_benefit, confidence, priority, source, created_at, expires_at
		FROM recommendations
		WHERE user_id = ? AND (expires_at IS NULL OR expires_at > ?)`,
		userID, now.UTC().Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Recommendation
	for rows.Next() {
		var (
			rec                    domain.Recommendation
			typ, priority, items   string
			description, rationale sql.NullString
			source                 sql.NullString
			createdAt              string
			expiresAt              sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &typ, &rec.Title, &description, &rationale, &items,
			&rec.ExpectedBenefit, &rec.Confidence, &priority, &source, &createdAt, &expiresAt); err != nil {
			return nil, err
		}
		rec.Type = domain.RecommendationType(typ)
		rec.Priority = domain.Priority(priority)
		rec.Description = description.String
		rec.Rationale = rationale.String
		rec.Source = source.String
		if items != "" {
			if err := json.Unmarshal([]byte(items), &rec.ActionItems); err != nil {
				return nil, fmt.Errorf("decoding action items for %s: %w", rec.ID, err)
			}
		}
		if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at for %s: %w", rec.ID, err)
		}
		if expiresAt.Valid {
			t, err := time.Parse(timeLayout, expiresAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing expires_at for %s: %w", rec.ID, err)
			}
			rec.ExpiresAt = &t
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortRecommendations(out)
	return out, nil
}
