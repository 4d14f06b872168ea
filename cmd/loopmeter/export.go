package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/loopmeter/loopmeter/internal/config"
	"github.com/loopmeter/loopmeter/internal/logger"
)

func newExportCmd() *cobra.Command {
	var (
		out      string
		duration time.Duration
		count    int
		compress bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Capture a sample window and export it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(out, duration, count, compress)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "how long to sample before exporting")
	cmd.Flags().IntVar(&count, "count", 0, "export only the N most recent samples (0 = all)")
	cmd.Flags().BoolVar(&compress, "compress", false, "zstd-compress the payload")
	return cmd
}

func runExport(out string, duration time.Duration, count int, compress bool) error {
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

	time.Sleep(duration)
	mon.Stop()

	var payload []byte
	if compress {
		payload, err = mon.ExportCompressed(count)
	} else {
		payload, err = mon.ExportJSON(count)
	}
	if err != nil {
		return err
	}

	if out == "" {
		_, err = os.Stdout.Write(payload)
		return err
	}
	if err := os.WriteFile(out, payload, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "exported %d bytes to %s\n", len(payload), out)
	return nil
}
