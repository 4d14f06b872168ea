package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/loopmeter/loopmeter/internal/config"
	"github.com/loopmeter/loopmeter/internal/logger"
)

func newHealthCmd() *cobra.Command {
	var (
		jsonOutput bool
		warmup     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Sample briefly and print a one-shot health check",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(jsonOutput, warmup)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().DurationVar(&warmup, "warmup", 3*time.Second, "how long to sample before scoring")
	return cmd
}

func runHealth(jsonOutput bool, warmup time.Duration) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(logger.LevelError, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mon := newMonitorFromConfig(cfg)
	if err := mon.Start(ctx); err != nil {
		return fmt.Errorf("start monitor: %w", err)
	}
	defer mon.Stop()

	time.Sleep(warmup)

	h := mon.Health()
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(h)
	}

	c := statusColors[h.Status]
	fmt.Printf("status  %s\n", c.Sprint(string(h.Status)))
	fmt.Printf("score   %.1f\n", h.Score)
	fmt.Printf("message %s\n", h.Message)
	for _, insight := range mon.Insights() {
		fmt.Printf("\n[%s] %s\n  %s\n  recommendation: %s\n",
			insight.Severity, insight.Title, insight.Message, insight.Recommendation)
	}
	return nil
}
