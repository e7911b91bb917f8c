package store

import (
	"sync"

	"triage/internal/record"
)

// MemStore is an in-memory Store for tests and ephemeral runs.
type MemStore struct {
	mu     sync.Mutex
	rows   []ResultRow
	nextID int64
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{nextID: 1}
}

func (m *MemStore) InsertRows(rows []ResultRow) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		r.ID = m.nextID
		m.nextID++
		if r.CreatedAt == "" {
			r.CreatedAt = nowUTC()
		}
		m.rows = append(m.rows, r)
	}
	return int64(len(rows)), nil
}

func (m *MemStore) RowsByBuild(build string) ([]ResultRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []ResultRow
	for _, r := range m.rows {
		if r.Build == build {
			list = append(list, r)
		}
	}
	return list, nil
}

func (m *MemStore) Builds() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var builds []string
	// Iterate newest to oldest so the newest build comes first.
	for i := len(m.rows) - 1; i >= 0; i-- {
		b := m.rows[i].Build
		if !seen[b] {
			seen[b] = true
			builds = append(builds, b)
		}
	}
	return builds, nil
}

func (m *MemStore) HistoryByTests(names []string, perTest int) (map[string][]ResultRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if perTest <= 0 {
		return map[string][]ResultRow{}, nil
	}
	queried := make([]queriedTest, len(names))
	for i, n := range names {
		queried[i] = queriedTest(n)
	}
	history := make(map[string][]ResultRow, len(names))
	for i := len(m.rows) - 1; i >= 0; i-- {
		r := m.rows[i]
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

func (m *MemStore) BuildStats(lastN int) ([]BuildStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var order []string
	byBuild := map[string]*BuildStat{}
	for _, r := range m.rows {
		st := byBuild[r.Build]
		if st == nil {
			st = &BuildStat{Build: r.Build}
			byBuild[r.Build] = st
			order = append(order, r.Build)
		}
		st.Total++
		if s, ok := record.ParseStatus(r.Status); ok && s.IsFailure() {
			st.Failed++
		}
	}
	if lastN > 0 && len(order) > lastN {
		order = order[len(order)-lastN:]
	}
	stats := make([]BuildStat, len(order))
	for i, b := range order {
		stats[i] = *byBuild[b]
	}
	return stats, nil
}

func (m *MemStore) Close() error { return nil }
