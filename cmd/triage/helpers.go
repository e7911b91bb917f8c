package main

import (
	"encoding/json"
	"fmt"
	"os"

	"triage/internal/record"
	"triage/internal/store"
)

func openStore() (*store.SqlStore, error) {
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.StorePath, err)
	}
	return st, nil
}

// resolveBuild defaults to the newest ingested build when none is given.
func resolveBuild(st store.Store, build string) (string, error) {
	if build != "" {
		return build, nil
	}
	builds, err := st.Builds()
	if err != nil {
		return "", err
	}
	if len(builds) == 0 {
		return "", fmt.Errorf("store has no builds; run 'triage ingest' first")
	}
	return builds[0], nil
}

func rowsAsRecordRows(rows []store.ResultRow) []record.Row {
	out := make([]record.Row, len(rows))
	for i := range rows {
		out[i] = rows[i]
	}
	return out
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
