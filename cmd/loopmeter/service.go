package main

import (
	"fmt"
	"runtime"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// program adapts the foreground agent to the service.Program interface.
type program struct {
	stopCh chan struct{}
}

// Start must return quickly; the agent runs in a goroutine.
func (p *program) Start(s service.Service) error {
	p.stopCh = make(chan struct{})
	go func() {
		if err := runForeground(); err != nil {
			fmt.Printf("agent exited: %v\n", err)
		}
		close(p.stopCh)
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	// runForeground exits on SIGTERM delivered by the service manager;
	// nothing else to tear down here.
	return nil
}

func newService(userMode bool) (service.Service, error) {
	cfg := &service.Config{
		Name:        "loopmeter",
		DisplayName: "Loopmeter Scheduling Monitor",
		Description: "Samples scheduling-loop lag and utilization and raises health alerts.",
	}

	if userMode {
		cfg.Option = service.KeyValue{"UserService": true}
	}

	switch runtime.GOOS {
	case "darwin":
		cfg.Option = mergeOptions(cfg.Option, service.KeyValue{
			"KeepAlive": true,
			"RunAtLoad": true,
		})
	case "linux":
		cfg.Option = mergeOptions(cfg.Option, service.KeyValue{
			"Restart": "on-failure",
		})
	case "windows":
		cfg.Option = mergeOptions(cfg.Option, service.KeyValue{
			"OnFailure":              "restart",
			"OnFailureDelayDuration": "5s",
		})
	}

	args := []string{"run"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	if debug {
		args = append(args, "--debug")
	}
	cfg.Arguments = args

	return service.New(&program{}, cfg)
}

func mergeOptions(base, extra service.KeyValue) service.KeyValue {
	if base == nil {
		base = service.KeyValue{}
	}
	for k, v := range extra {
		base[k] = v
	}
	return base
}

func newInstallCmd() *cobra.Command {
	var userMode bool
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install loopmeter as a system service",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(userMode)
			if err != nil {
				return err
			}
			if err := svc.Install(); err != nil {
				return fmt.Errorf("install service: %w", err)
			}
			fmt.Println("service installed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&userMode, "user", false, "install as a user service")
	return cmd
}

func newUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the loopmeter service",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(false)
			if err != nil {
				return err
			}
			if err := svc.Uninstall(); err != nil {
				return fmt.Errorf("uninstall service: %w", err)
			}
			fmt.Println("service uninstalled")
			return nil
		},
	}
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the installed service",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(false)
			if err != nil {
				return err
			}
			if err := svc.Start(); err != nil {
				return fmt.Errorf("start service: %w", err)
			}
			fmt.Println("service started")
			return nil
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running service",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(false)
			if err != nil {
				return err
			}
			if err := svc.Stop(); err != nil {
				return fmt.Errorf("stop service: %w", err)
			}
			fmt.Println("service stopped")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service status",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(false)
			if err != nil {
				return err
			}
			status, err := svc.Status()
			if err != nil {
				return fmt.Errorf("query service status: %w", err)
			}
			switch status {
			case service.StatusRunning:
				fmt.Println("running")
			case service.StatusStopped:
				fmt.Println("stopped")
			default:
				fmt.Println("unknown")
			}
			return nil
		},
	}
}
