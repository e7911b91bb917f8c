package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"triage/internal/identity"
	"triage/internal/record"

	_ "modernc.org/sqlite"
)

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// currentSchemaVersion is the target schema version for this build.
const currentSchemaVersion = schemaVersionV1

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and runs migrations.
// Creates the parent directory (e.g. .triage) if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableCount == 0 {
		// Fresh database.
		if _, err := s.db.Exec(schemaV1); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", currentSchemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		v = schemaVersionV1
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", v); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	}
	if v != currentSchemaVersion {
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// Close closes the database connection.
func (s *SqlStore) Close() error {
	return s.db.Close()
}

// InsertRows appends result rows inside one transaction.
func (s *SqlStore) InsertRows(rows []ResultRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(
		`INSERT INTO results(testcase_name, test_status, failure_reason, build_tag, created_at)
		 VALUES(?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var n int64
	for _, r := range rows {
		created := r.CreatedAt
		if created == "" {
			created = nowUTC()
		}
		if _, err := stmt.Exec(r.Name, r.Status, r.Reason, r.Build, created); err != nil {
			return 0, fmt.Errorf("insert result: %w", err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert tx: %w", err)
	}
	return n, nil
}

// RowsByBuild returns every row recorded for the build, in insert order.
func (s *SqlStore) RowsByBuild(build string) ([]ResultRow, error) {
	rows, err := s.db.Query(
		`SELECT id, testcase_name, test_status, failure_reason, build_tag, created_at
		 FROM results WHERE build_tag = ? ORDER BY id`,
		build,
	)
	if err != nil {
		return nil, fmt.Errorf("rows by build: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// Builds returns distinct build tags, newest first.
func (s *SqlStore) Builds() ([]string, error) {
	rows, err := s.db.Query(
		"SELECT build_tag, MAX(id) AS latest FROM results GROUP BY build_tag ORDER BY latest DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()
	var builds []string
	for rows.Next() {
		var b string
		var latest int64
		if err := rows.Scan(&b, &latest); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	return builds, nil
}

// HistoryByTests returns up to perTest most recent rows for each named
// test, newest first, keyed by the queried name. SQL fetches every row
// whose stored name could belong to a queried test; the exact folding
// onto canonical identities happens here, where the per-test cap is
// applied so one query serves the whole batch.
func (s *SqlStore) HistoryByTests(names []string, perTest int) (map[string][]ResultRow, error) {
	history := make(map[string][]ResultRow, len(names))
	if len(names) == 0 || perTest <= 0 {
		return history, nil
	}

	queried := make([]queriedTest, len(names))
	conds := make([]string, len(names))
	args := make([]any, 0, 2*len(names))
	for i, n := range names {
		queried[i] = queriedTest(n)
		class, method := identity.SplitClassMethod(n)
		suffix := n
		if method != "" {
			suffix = class + "." + method
		}
		conds[i] = "(testcase_name = ? OR testcase_name LIKE ?)"
		args = append(args, n, "%"+suffix)
	}
	rows, err := s.db.Query(
		`SELECT id, testcase_name, test_status, failure_reason, build_tag, created_at
		 FROM results WHERE `+strings.Join(conds, " OR ")+` ORDER BY id DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("history by tests: %w", err)
	}
	defer rows.Close()

	all, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		name, ok := resolveQueried(r.Name, queried)
		if !ok {
			continue
		}
		if len(history[name]) < perTest {
			history[name] = append(history[name], r)
		}
	}
	return history, nil
}

// BuildStats returns per-build aggregates for the lastN most recent
// builds, ordered oldest first. Failure counting uses the same status
// token interpretation as reconciliation.
func (s *SqlStore) BuildStats(lastN int) ([]BuildStat, error) {
	rows, err := s.db.Query(
		`SELECT build_tag, test_status, COUNT(*) AS n, MAX(id) AS latest
		 FROM results GROUP BY build_tag, test_status`,
	)
	if err != nil {
		return nil, fmt.Errorf("build stats: %w", err)
	}
	defer rows.Close()

	type agg struct {
		stat   BuildStat
		latest int64
	}
	byBuild := map[string]*agg{}
	for rows.Next() {
		var build, status string
		var n int
		var latest int64
		if err := rows.Scan(&build, &status, &n, &latest); err != nil {
			return nil, fmt.Errorf("scan build stat: %w", err)
		}
		a := byBuild[build]
		if a == nil {
			a = &agg{stat: BuildStat{Build: build}}
			byBuild[build] = a
		}
		a.stat.Total += n
		if st, ok := record.ParseStatus(status); ok && st.IsFailure() {
			a.stat.Failed += n
		}
		if latest > a.latest {
			a.latest = latest
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("build stats: %w", err)
	}

	aggs := make([]*agg, 0, len(byBuild))
	for _, a := range byBuild {
		aggs = append(aggs, a)
	}
	sort.Slice(aggs, func(i, j int) bool { return aggs[i].latest < aggs[j].latest })
	if lastN > 0 && len(aggs) > lastN {
		aggs = aggs[len(aggs)-lastN:]
	}
	stats := make([]BuildStat, len(aggs))
	for i, a := range aggs {
		stats[i] = a.stat
	}
	return stats, nil
}

func scanRows(rows *sql.Rows) ([]ResultRow, error) {
	var list []ResultRow
	for rows.Next() {
		var r ResultRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Status, &r.Reason, &r.Build, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	return list, nil
}
