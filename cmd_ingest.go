package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/findings"
	logx "github.com/trendmicro/cloud-risk-assessment-agent/pkg/logger"
)

var ingestKind string

var ingestCmd = &cobra.Command{
	Use:   "ingest --type aws|code|container|kubernetes <report.json>",
	Short: "Load a JSON scan report into the findings database",
	Long: `Parses a scanner JSON report and upserts its findings into the results
table. Use "-" to read the report from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, ok := findings.ParseReportKind(ingestKind)
		if !ok {
			return fmt.Errorf("unknown report type %q (want one of %s)", ingestKind, reportKindList())
		}

		ctx, stop := interruptContext(cmd.Context())
		defer stop()

		n, err := ingestReport(cmd, kind, args[0], func(fs []findings.Finding) error {
			a, err := openStores(ctx, appConfig)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.findings.Upsert(ctx, fs)
		})
		if err != nil {
			return err
		}
		logx.Info().Str("type", string(kind)).Str("report", args[0]).Int("findings", n).Msg("report ingested")
		return nil
	},
}

// ingestReport parses path (or stdin for "-") and hands the findings to store.
func ingestReport(cmd *cobra.Command, kind findings.ReportKind, path string, store func([]findings.Finding) error) (int, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return 0, err
		}
		defer f.Close()
		r = f
	}

	fs, err := findings.ParseReport(kind, r)
	if err != nil {
		return 0, fmt.Errorf("parse %s report %s: %w", kind, path, err)
	}
	if len(fs) == 0 {
		return 0, nil
	}
	if err := store(fs); err != nil {
		return 0, err
	}
	return len(fs), nil
}

func reportKindList() string {
	names := make([]string, len(findings.ReportKinds))
	for i, k := range findings.ReportKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func init() {
	ingestCmd.Flags().StringVar(&ingestKind, "type", "", "report type: aws, code, container or kubernetes")
	_ = ingestCmd.MarkFlagRequired("type")
}
