package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *SqlStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "triage.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedRows(t *testing.T, s Store, rows []ResultRow) {
	t.Helper()
	n, err := s.InsertRows(rows)
	if err != nil {
		t.Fatalf("InsertRows: %v", err)
	}
	if n != int64(len(rows)) {
		t.Fatalf("InsertRows wrote %d rows, want %d", n, len(rows))
	}
}

func TestSqlStore_InsertAndQueryByBuild(t *testing.T) {
	s := openTestStore(t)

	seedRows(t, s, []ResultRow{
		{Name: "Login.verifyLogin", Status: "PASS", Build: "b1"},
		{Name: "Login.verifyLogout", Status: "FAIL", Reason: "TimeoutException", Build: "b1"},
		{Name: "Login.verifyLogin", Status: "FAIL", Build: "b2"},
	})

	rows, err := s.RowsByBuild("b1")
	if err != nil {
		t.Fatalf("RowsByBuild: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows for b1, want 2", len(rows))
	}
	if rows[1].Reason != "TimeoutException" {
		t.Fatalf("failure reason not round-tripped: %+v", rows[1])
	}
	if rows[0].CreatedAt == "" {
		t.Fatal("created_at not populated on insert")
	}
}

func TestSqlStore_BuildsNewestFirst(t *testing.T) {
	s := openTestStore(t)

	seedRows(t, s, []ResultRow{
		{Name: "a", Status: "PASS", Build: "b1"},
		{Name: "a", Status: "PASS", Build: "b2"},
		{Name: "b", Status: "PASS", Build: "b1"},
		{Name: "a", Status: "PASS", Build: "b3"},
	})

	builds, err := s.Builds()
	if err != nil {
		t.Fatalf("Builds: %v", err)
	}
	want := []string{"b3", "b1", "b2"}
	if len(builds) != len(want) {
		t.Fatalf("got builds %v, want %v", builds, want)
	}
	for i := range want {
		if builds[i] != want[i] {
			t.Fatalf("got builds %v, want %v", builds, want)
		}
	}
}

func TestSqlStore_HistoryByTestsCapsPerTest(t *testing.T) {
	s := openTestStore(t)

	var rows []ResultRow
	for i := 0; i < 5; i++ {
		rows = append(rows, ResultRow{Name: "Login.verifyLogin", Status: "FAIL", Build: "b"})
	}
	rows = append(rows, ResultRow{Name: "Login.verifyLogin", Status: "PASS", Build: "b"})
	rows = append(rows, ResultRow{Name: "Other.test", Status: "PASS", Build: "b"})
	seedRows(t, s, rows)

	history, err := s.HistoryByTests([]string{"Login.verifyLogin"}, 3)
	if err != nil {
		t.Fatalf("HistoryByTests: %v", err)
	}
	got := history["Login.verifyLogin"]
	if len(got) != 3 {
		t.Fatalf("got %d rows, want per-test cap of 3", len(got))
	}
	// Newest first: the PASS inserted last must lead.
	if got[0].Status != "PASS" {
		t.Fatalf("history not newest first: %+v", got)
	}
	if _, ok := history["Other.test"]; ok {
		t.Fatal("history includes a test that was not requested")
	}
}

func TestSqlStore_HistoryByTestsFoldsSpellings(t *testing.T) {
	s := openTestStore(t)

	// The same test stored under a doubled class segment, a bare
	// class.method and the canonical qualified name.
	seedRows(t, s, []ResultRow{
		{Name: "banking.Cards.Cards.verifyIssue", Status: "FAIL", Build: "b1"},
		{Name: "Cards.verifyIssue", Status: "FAIL", Build: "b2"},
		{Name: "banking.Cards.verifyIssue", Status: "PASS", Build: "b3"},
		{Name: "other.Cards.verifyIssue", Status: "PASS", Build: "b3"},
	})

	history, err := s.HistoryByTests([]string{"banking.Cards.verifyIssue"}, 10)
	if err != nil {
		t.Fatalf("HistoryByTests: %v", err)
	}
	got := history["banking.Cards.verifyIssue"]
	if len(got) != 3 {
		t.Fatalf("got %d rows, want the 3 spellings folded together: %+v", len(got), got)
	}
	// Newest first across spellings.
	if got[0].Build != "b3" || got[2].Build != "b1" {
		t.Fatalf("history not newest first: %+v", got)
	}
	for _, r := range got {
		if r.Name == "other.Cards.verifyIssue" {
			t.Fatal("a different package's test leaked into the history")
		}
	}
}

func TestSqlStore_BuildStats(t *testing.T) {
	s := openTestStore(t)

	seedRows(t, s, []ResultRow{
		{Name: "a", Status: "PASS", Build: "b1"},
		{Name: "b", Status: "FAILED", Build: "b1"},
		{Name: "a", Status: "PASS", Build: "b2"},
		{Name: "b", Status: "ERROR", Build: "b2"},
		{Name: "c", Status: "PASS", Build: "b2"},
	})

	stats, err := s.BuildStats(10)
	if err != nil {
		t.Fatalf("BuildStats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("got %d stats, want 2", len(stats))
	}
	// Oldest first for trend analysis.
	if stats[0].Build != "b1" || stats[1].Build != "b2" {
		t.Fatalf("stats out of order: %+v", stats)
	}
	if stats[0].Failed != 1 || stats[0].Total != 2 {
		t.Fatalf("b1 aggregate wrong: %+v", stats[0])
	}
	if got := stats[1].PassRate(); got < 0.66 || got > 0.67 {
		t.Fatalf("b2 pass rate = %v, want 2/3", got)
	}
}

func TestSqlStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triage.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	seedRows(t, s, []ResultRow{{Name: "a", Status: "PASS", Build: "b1"}})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen runs migrate against the existing schema_version row.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	rows, err := s2.RowsByBuild("b1")
	if err != nil || len(rows) != 1 {
		t.Fatalf("got %d rows err %v after reopen, want 1", len(rows), err)
	}
}

func TestMemStore_MatchesSqlSemantics(t *testing.T) {
	m := NewMemStore()
	seedRows(t, m, []ResultRow{
		{Name: "a", Status: "FAIL", Build: "b1"},
		{Name: "a", Status: "PASS", Build: "b2"},
	})

	builds, err := m.Builds()
	if err != nil || len(builds) != 2 || builds[0] != "b2" {
		t.Fatalf("Builds = %v err %v, want [b2 b1]", builds, err)
	}
	history, err := m.HistoryByTests([]string{"a"}, 10)
	if err != nil || len(history["a"]) != 2 || history["a"][0].Status != "PASS" {
		t.Fatalf("HistoryByTests = %+v err %v", history, err)
	}
	stats, err := m.BuildStats(10)
	if err != nil || len(stats) != 2 || stats[0].Failed != 1 {
		t.Fatalf("BuildStats = %+v err %v", stats, err)
	}
}

func TestMemStore_HistoryFoldsSpellings(t *testing.T) {
	m := NewMemStore()
	seedRows(t, m, []ResultRow{
		{Name: "banking.Cards.Cards.verifyIssue", Status: "FAIL", Build: "b1"},
		{Name: "banking.Cards.verifyIssue", Status: "PASS", Build: "b2"},
	})

	history, err := m.HistoryByTests([]string{"banking.Cards.verifyIssue"}, 10)
	if err != nil {
		t.Fatalf("HistoryByTests: %v", err)
	}
	if got := history["banking.Cards.verifyIssue"]; len(got) != 2 {
		t.Fatalf("got %d rows, want both spellings: %+v", len(got), got)
	}
}
