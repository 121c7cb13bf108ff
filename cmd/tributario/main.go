package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/boddenberg/pj-tributario-go/internal/config"
	"github.com/boddenberg/pj-tributario-go/internal/infra/client"
	"github.com/boddenberg/pj-tributario-go/internal/infra/observability"
	"github.com/boddenberg/pj-tributario-go/internal/infra/ratetable"
	"github.com/boddenberg/pj-tributario-go/internal/infra/resilience"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	if err := newRootCmd(config.Load()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "tributario",
		Short: "Simples Nacional x Lucro Presumido comparison engine",
		Long: "Compara a carga tributária de uma empresa de serviços no Simples Nacional " +
			"(com e sem Fator R) e no Lucro Presumido, incluindo INSS e IRRF do pró-labore.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfg.TablesFile, "tables-file", cfg.TablesFile, "YAML or JSON rate table document (env TABLES_FILE)")
	root.PersistentFlags().StringVar(&cfg.TablesURL, "tables-url", cfg.TablesURL, "URL of the rate table document, wins over --tables-file (env TABLES_URL)")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error (env LOG_LEVEL)")

	root.AddCommand(
		serveCmd(cfg),
		compareCmd(cfg),
		tablesCmd(cfg),
		versionCmd(),
	)
	return root
}

// openTables loads the rate tables from the configured source. Failures are
// configuration errors: callers must not serve without tables.
func openTables(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *zap.Logger) (*ratetable.Repository, error) {
	src := ratetable.Sources{File: cfg.TablesFile}
	if cfg.TablesURL != "" {
		src.Remote = client.NewTablesClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.TablesURL,
			resilience.NewCircuitBreaker("rate-tables"),
			resilience.Config{
				MaxRetries:     cfg.MaxRetries,
				InitialBackoff: cfg.InitialBackoff,
				MaxConcurrency: cfg.MaxConcurrency,
			},
		)
	}

	repo, kind, err := ratetable.Open(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("load rate tables: %w", err)
	}
	metrics.IncrTableLoad(kind)

	status := repo.Status()
	logger.Info("rate tables loaded",
		zap.String("source", status.Source),
		zap.Int("versions", len(status.Versions)),
		zap.String("snapshot_id", status.SnapshotID),
	)
	return repo, nil
}
