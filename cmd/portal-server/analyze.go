package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Fransi777/quanta-medix-nexus/internal/domain/scananalysis"
)

// analyzeCmd runs one scan through the analysis pipeline outside the HTTP
// server, for backfills and operator retries.
func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a stored MRI scan and persist the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			scanID, _ := cmd.Flags().GetString("scan")
			force, _ := cmd.Flags().GetBool("force")
			if scanID == "" {
				return fmt.Errorf("--scan is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.PersistenceConfigured() {
				return fmt.Errorf("DATABASE_URL is required to analyze stored scans")
			}
			if !cfg.OracleConfigured() {
				return fmt.Errorf("GEMINI_API_KEY is required to analyze scans")
			}
			logger := newLogger(cfg)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			b, err := openBackends(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer b.close()

			a, err := b.analysis.Analyze(ctx, scanID, scananalysis.Options{Force: force})
			if err != nil {
				return err
			}
			return writeAnalysis(cmd.OutOrStdout(), a)
		},
	}
	cmd.Flags().String("scan", "", "ID of the scan to analyze")
	cmd.Flags().Bool("force", false, "Re-analyze even when a result already exists")
	return cmd
}

func writeAnalysis(w io.Writer, a *scananalysis.Analysis) error {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}
