package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"triage/internal/logging"
	"triage/internal/store"
)

var ingestFlags struct {
	file  string
	build string
}

// ingestRow is the wire shape of one raw result row, matching the field
// names the CI exporter emits.
type ingestRow struct {
	TestcaseName  string `json:"testcaseName"`
	TestStatus    string `json:"testStatus"`
	FailureReason string `json:"failureReason"`
	BuildTag      string `json:"buildTag"`
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load raw result rows from a JSON export into the store",
	RunE:  runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.StringVarP(&ingestFlags.file, "file", "f", "", "Path to rows JSON export (required)")
	f.StringVar(&ingestFlags.build, "build", "", "Build tag to stamp on rows that carry none")
	_ = ingestCmd.MarkFlagRequired("file")
}

func runIngest(cmd *cobra.Command, _ []string) error {
	var raw []ingestRow
	if err := readJSONFile(ingestFlags.file, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return fmt.Errorf("%s contains no rows", ingestFlags.file)
	}

	rows := make([]store.ResultRow, 0, len(raw))
	for _, r := range raw {
		build := r.BuildTag
		if build == "" {
			build = ingestFlags.build
		}
		rows = append(rows, store.ResultRow{
			Name:   r.TestcaseName,
			Status: r.TestStatus,
			Reason: r.FailureReason,
			Build:  build,
		})
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.InsertRows(rows)
	if err != nil {
		return fmt.Errorf("insert rows: %w", err)
	}
	logging.New("ingest").Info("ingested rows", "count", n, "file", ingestFlags.file)
	fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d rows from %s\n", n, ingestFlags.file)
	return nil
}
