package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/boddenberg/pj-tributario-go/internal/config"
	"github.com/boddenberg/pj-tributario-go/internal/domain"
	"github.com/boddenberg/pj-tributario-go/internal/infra/observability"
	"github.com/boddenberg/pj-tributario-go/internal/infra/ratetable"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func tablesCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Inspect and validate rate tables",
	}
	cmd.AddCommand(tablesValidateCmd(cfg), tablesShowCmd(cfg))
	return cmd
}

func tablesValidateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a rate table document (default: the configured source)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				repo *ratetable.Repository
				err  error
			)
			if len(args) == 1 {
				repo, err = ratetable.LoadFile(args[0])
			} else {
				logger := observability.NewLogger(cfg.LogLevel)
				defer logger.Sync()
				repo, err = openTables(cmd.Context(), cfg, observability.NewMetrics(), logger)
			}
			if err != nil {
				return err
			}

			status := repo.Status()
			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(borderStyle).
				Headers("versão", "vigência").
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return labelStyle
				})
			for _, v := range status.Versions {
				t.Row(v.Version, v.ValidFrom)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ok: %d version(s) from %s\n", len(status.Versions), status.Source)
			fmt.Fprintln(out, t.String())
			return nil
		},
	}
}

func tablesShowCmd(cfg *config.Config) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the tables in force on a date as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now()
			if asOf != "" {
				var err error
				if day, err = time.Parse(domain.AsOfLayout, asOf); err != nil {
					return &domain.ErrDomain{Field: "as_of", Message: "must be a date in YYYY-MM-DD format"}
				}
			}

			logger := observability.NewLogger(cfg.LogLevel)
			defer logger.Sync()
			repo, err := openTables(cmd.Context(), cfg, observability.NewMetrics(), logger)
			if err != nil {
				return err
			}
			ts, err := repo.Get(day)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(domain.NewTablesUsed(ts, repo.Meta(ts)))
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "reference date YYYY-MM-DD (default today)")
	return cmd
}
