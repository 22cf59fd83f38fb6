package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/overseer/internal/core/config"
	"github.com/vietddude/overseer/internal/supervise/health"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent liveness from a running supervisor",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	url := fmt.Sprintf("http://localhost:%d/health/agents", cfg.Server.Port)
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		slog.Error("Failed to reach supervisor", "url", url, "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var report health.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		slog.Error("Failed to decode health report", "error", err)
		os.Exit(1)
	}

	fmt.Printf("System: %s\n\n", report.SystemStatus)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "AGENT\tSTATUS\tLAST HEARTBEAT\tERRORS")

	for name, agent := range report.Agents {
		last := "never"
		if agent.LastHeartbeat != nil {
			last = agent.LastHeartbeat.Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", name, agent.Status, last, agent.ErrorCount)
	}
	_ = w.Flush()
}
