package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/loopmeter/loopmeter/internal/config"
	"github.com/loopmeter/loopmeter/internal/health"
	"github.com/loopmeter/loopmeter/internal/logger"
	"github.com/loopmeter/loopmeter/internal/monitor"
)

var (
	statusColors = map[health.Status]*color.Color{
		health.StatusHealthy:  color.New(color.FgGreen, color.Bold),
		health.StatusDegraded: color.New(color.FgYellow, color.Bold),
		health.StatusCritical: color.New(color.FgRed, color.Bold),
		health.StatusUnknown:  color.New(color.FgWhite),
	}
)

func newWatchCmd() *cobra.Command {
	var points int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live terminal view of scheduling lag and health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(points)
		},
	}
	cmd.Flags().IntVar(&points, "points", 60, "number of history points to plot")
	return cmd
}

func runWatch(points int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(logger.LevelWarn, cfg.Logging.File)
	defer logger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mon := newMonitorFromConfig(cfg)
	if err := mon.Start(ctx); err != nil {
		return fmt.Errorf("start monitor: %w", err)
	}
	defer mon.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Monitor.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			return nil
		case <-ticker.C:
			render(mon, points)
		}
	}
}

func render(mon *monitor.Monitor, points int) {
	// Clear screen and home the cursor.
	fmt.Print("\033[2J\033[H")

	h := mon.Health()
	c := statusColors[h.Status]
	fmt.Printf("loopmeter  %s  score %.1f\n", c.Sprint(string(h.Status)), h.Score)
	fmt.Println(h.Message)
	fmt.Println()

	series := mon.TimeSeries("lag", points)
	values := make([]float64, 0, len(series))
	for _, p := range series {
		values = append(values, p.Values["mean"])
	}
	if len(values) > 1 {
		fmt.Println(asciigraph.Plot(values,
			asciigraph.Height(10),
			asciigraph.Caption("scheduling lag, mean ms")))
	} else {
		fmt.Println("collecting samples...")
	}

	if cur := mon.CurrentMetrics(); cur != nil {
		fmt.Println()
		fmt.Printf("util %.0f%%", cur.Util.Utilization*100)
		if cur.Memory != nil {
			fmt.Printf("   heap %s / %s   rss %s", cur.Memory.HeapUsedMB, cur.Memory.HeapTotalMB, cur.Memory.RSSMB)
		}
		if cur.Handles != nil {
			fmt.Printf("   goroutines %d", cur.Handles.Active)
		}
		fmt.Println()
	}

	stats := mon.Stats()
	fmt.Printf("\nsamples %d/%d  dropped %d\n", stats.Count, stats.Capacity, stats.Dropped)
}
