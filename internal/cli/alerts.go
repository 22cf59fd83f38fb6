package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/overseer/internal/core/config"
	"github.com/vietddude/overseer/internal/infra/storage/postgres"
)

var alertLimit int

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List recent escalations from the alert archive",
	Run:   runAlerts,
}

func init() {
	alertsCmd.Flags().IntVar(&alertLimit, "limit", 20, "maximum number of alerts to show")
	rootCmd.AddCommand(alertsCmd)
}

func runAlerts(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		slog.Error("No database configured, the alert archive is unavailable")
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	alerts, err := postgres.NewAlertRepo(db).Recent(ctx, alertLimit)
	if err != nil {
		slog.Error("Failed to query alerts", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TIME\tKIND\tSEVERITY\tCOUNT\tMESSAGE")

	for _, alert := range alerts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			alert.EscalatedAt.Format(time.RFC3339),
			alert.Record.Kind,
			alert.Record.Severity,
			alert.Count,
			alert.Record.Message,
		)
	}
	_ = w.Flush()
}
