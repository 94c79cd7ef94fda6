// Package sqlite is a file-backed storer for single-node deployments. It uses
// modernc.org/sqlite (pure Go) in WAL mode and ranks candidates in process.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/w-h-a/upserter/engine/providers/storer"
	"go.nhat.io/otelsql"

	_ "modernc.org/sqlite"
)

const (
	defaultBusyTimeout = 5000
)

var DRIVER string

func init() {
	driver, err := otelsql.Register(
		"sqlite",
		otelsql.TraceQueryWithoutArgs(),
		otelsql.TraceRowsClose(),
		otelsql.TraceRowsAffected(),
	)
	if err != nil {
		detail := "failed to register sqlite storer with otel"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}

	DRIVER = driver
}

type sqliteStorer struct {
	options storer.Options
	conn    *sql.DB
	records string
	tags    string
}

func (s *sqliteStorer) Search(ctx context.Context, q storer.Query) ([]storer.Record, error) {
	limit := storer.Effective(q)
	if limit < 1 || len(q.Tags) == 0 {
		return nil, nil
	}

	want := dedupe(q.Tags)

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(want)), ",")

	query := fmt.Sprintf(`
		SELECT r.id, r.session_id, r.tags, r.content, r.embedding, r.created_at, r.updated_at
		FROM %s r
		JOIN %s t ON t.record_id = r.id
		WHERE t.tag IN (%s)
		GROUP BY r.id
		HAVING COUNT(DISTINCT t.tag) = ?
	`, s.records, s.tags, placeholders)

	args := make([]any, 0, len(want)+1)
	for _, tag := range want {
		args = append(args, tag)
	}
	args = append(args, len(want))

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []storer.Record

	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		rec.Score = float32(storer.CosineSimilarity(q.Vector, rec.Embedding))
		candidates = append(candidates, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score == candidates[j].Score {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return candidates, nil
}

func (s *sqliteStorer) Index(ctx context.Context, id string, rec storer.Record) error {
	tagsJSON, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	vecJSON, err := json.Marshal(rec.Embedding)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	upsert := fmt.Sprintf(`
		INSERT INTO %s (id, session_id, tags, content, embedding, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			session_id = excluded.session_id,
			tags = excluded.tags,
			content = excluded.content,
			embedding = excluded.embedding,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, s.records)

	if _, err := tx.ExecContext(
		ctx,
		upsert,
		id,
		rec.SessionId,
		string(tagsJSON),
		rec.Content,
		string(vecJSON),
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
	); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE record_id = ?`, s.tags), id); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT OR IGNORE INTO %s (record_id, tag) VALUES (?, ?)`, s.tags))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, tag := range rec.Tags {
		if _, err := stmt.ExecContext(ctx, id, tag); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *sqliteStorer) UpdateFields(ctx context.Context, id string, fields storer.Fields) error {
	vecJSON, err := json.Marshal(fields.Embedding)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	query := fmt.Sprintf(`UPDATE %s SET content = ?, embedding = ?, updated_at = ? WHERE id = ?`, s.records)

	res, err := s.conn.ExecContext(ctx, query, fields.Content, string(vecJSON), formatTime(fields.UpdatedAt), id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return storer.ErrNotFound
	}

	return nil
}

func (s *sqliteStorer) Get(ctx context.Context, id string) (storer.Record, error) {
	query := fmt.Sprintf(`
		SELECT id, session_id, tags, content, embedding, created_at, updated_at
		FROM %s
		WHERE id = ?
	`, s.records)

	rec, err := scan(s.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return storer.Record{}, storer.ErrNotFound
	}

	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (storer.Record, error) {
	var rec storer.Record
	var tagsJSON, vecJSON, created, updated string

	if err := row.Scan(&rec.Id, &rec.SessionId, &tagsJSON, &rec.Content, &vecJSON, &created, &updated); err != nil {
		return storer.Record{}, err
	}

	if err := json.Unmarshal([]byte(tagsJSON), &rec.Tags); err != nil {
		return storer.Record{}, fmt.Errorf("unmarshal tags: %w", err)
	}

	if err := json.Unmarshal([]byte(vecJSON), &rec.Embedding); err != nil {
		return storer.Record{}, fmt.Errorf("unmarshal embedding: %w", err)
	}

	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)

	return rec, nil
}

func (s *sqliteStorer) migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				session_id TEXT NOT NULL DEFAULT '',
				tags TEXT NOT NULL,
				content TEXT NOT NULL,
				embedding TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)
		`, s.records),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				record_id TEXT NOT NULL,
				tag TEXT NOT NULL,
				PRIMARY KEY (record_id, tag)
			)
		`, s.tags),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (tag)`, quote(s.options.Collection+"_tag_idx"), s.tags),
	}

	for _, stmt := range stmts {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}

	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open(DRIVER, path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	return db, nil
}

func NewStorer(opts ...storer.Option) storer.Storer {
	options := storer.NewOptions(opts...)

	if len(options.Location) == 0 || len(options.Collection) == 0 {
		panic("missing location or collection for sqlite storer")
	}

	conn, err := open(options.Location)
	if err != nil {
		detail := "failed to open sqlite storer"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}

	s := &sqliteStorer{
		options: options,
		conn:    conn,
		records: quote(options.Collection),
		tags:    quote(options.Collection + "_tags"),
	}

	if err := s.migrate(context.Background()); err != nil {
		_ = conn.Close()
		detail := "failed to migrate sqlite storer"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}

	return s
}
