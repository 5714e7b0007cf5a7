// Package main provides the CLI entry point for the ping probe.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/infrasonar/ping-probe/internal/check"
	"github.com/infrasonar/ping-probe/internal/config"
	"github.com/infrasonar/ping-probe/internal/health"
	"github.com/infrasonar/ping-probe/internal/hub"
	"github.com/infrasonar/ping-probe/internal/logging"
	"github.com/infrasonar/ping-probe/internal/metrics"
	"github.com/infrasonar/ping-probe/internal/probe"
	"github.com/infrasonar/ping-probe/internal/wizard"
)

var (
	// Version is set at build time
	Version = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ping-probe",
		Short: "ICMP liveness and latency probe",
		Long: `ping-probe sends bounded sequences of ICMP Echo Requests to the
configured assets, classifies every reply by protocol semantics and
produces latency/loss reports for a monitoring pipeline.

Results can be streamed to a hub over WebSocket and are exposed
locally through a health/metrics HTTP server.`,
		Version: Version,
	}

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(statusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a configuration interactively",
		Long:  "Run the interactive setup wizard and write a configuration file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wizard.New().Run()
			return err
		},
	}
}

func runCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the probe",
		Long:  "Start the probe scheduler with the specified configuration.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			logger := logging.NewLogger(cfg.Probe.LogLevel, cfg.Probe.LogFormat)
			m := metrics.Default()

			var forwarder *hub.Forwarder
			if cfg.Hub.Enabled {
				forwarder = hub.NewForwarder(cfg.Hub, logger, m)
				forwarder.Start()
				defer forwarder.Close()
			}

			pinger := check.NewPinger(logger, m, cfg.Probe.Privileged)
			p := probe.New(cfg, logger, m, pinger, forwarder, Version)

			if err := p.Start(); err != nil {
				return fmt.Errorf("failed to start probe: %w", err)
			}

			var healthSrv *health.Server
			if cfg.Health.Enabled {
				healthSrv = health.NewServer(health.ServerConfig{
					Address:      cfg.Health.Address,
					ReadTimeout:  cfg.Health.ReadTimeout,
					WriteTimeout: cfg.Health.WriteTimeout,
				}, p)
				if err := healthSrv.Start(); err != nil {
					return fmt.Errorf("failed to start health server: %w", err)
				}
				logger.Info("health server listening",
					logging.KeyAddress, healthSrv.Address())
			}

			logger.Info("probe started",
				"name", cfg.Probe.Name,
				"version", Version,
				"assets", len(cfg.Assets))

			// Wait for shutdown signal
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			sig := <-sigCh
			logger.Info("shutting down", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if healthSrv != nil {
				if err := healthSrv.Stop(ctx); err != nil {
					logger.Warn("health server shutdown", logging.KeyError, err)
				}
			}
			if err := p.Stop(ctx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}

			logger.Info("probe stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "./config.yaml", "Path to configuration file")

	return cmd
}

func checkCmd() *cobra.Command {
	var (
		count      int
		interval   int
		timeout    int
		privileged bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "check <address>",
		Short: "Run a single ping check",
		Long: `Run one ping check against an address and print the report JSON.
A total loss exits non-zero but still prints the report.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLogger(logLevel, "text")
			pinger := check.NewPinger(logger, nil, privileged)

			asset := check.Asset{ID: 0, Name: args[0]}
			cfg := check.Config{
				Count:    count,
				Interval: interval,
				Timeout:  timeout,
			}

			report, err := pinger.Run(cmd.Context(), asset, cfg)
			if err != nil {
				if totalLoss, ok := err.(*check.TotalLossError); ok {
					printReport(totalLoss.Report)
				}
				return err
			}

			printReport(report)
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", check.DefaultCount, "Number of echo requests (1-9)")
	cmd.Flags().IntVar(&interval, "interval", check.DefaultInterval, "Seconds between packets (1-9)")
	cmd.Flags().IntVar(&timeout, "timeout", check.DefaultTimeout, "Per-packet reply timeout in seconds")
	cmd.Flags().BoolVar(&privileged, "privileged", false, "Use raw ICMP sockets (requires root)")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	return cmd
}

func printReport(report *check.Report) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(data))
}

func statusCmd() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the latest check results",
		Long:  "Query the health server of a running probe and print the latest result per asset.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get("http://" + address + "/reports")
			if err != nil {
				return fmt.Errorf("probe not reachable at %s: %w", address, err)
			}
			defer resp.Body.Close()

			var entries []struct {
				Asset    check.Asset   `json:"asset"`
				Age      string        `json:"age"`
				Duration string        `json:"duration"`
				State    *check.Report `json:"state"`
				Error    string        `json:"error"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
				return fmt.Errorf("decode reports: %w", err)
			}

			if len(entries) == 0 {
				fmt.Println("No checks have completed yet.")
				return nil
			}

			for _, e := range entries {
				status := "ok"
				detail := ""
				if e.Error != "" {
					status = "FAILED"
					detail = " (" + e.Error + ")"
				} else if e.State != nil && len(e.State.ICMP) > 0 {
					item := e.State.ICMP[0]
					if item.MaxTime != nil {
						detail = fmt.Sprintf(" dropped=%d max=%.1fms",
							item.Dropped, *item.MaxTime*1000)
					}
				}
				fmt.Printf("%-30s %-7s last check %s, took %s%s\n",
					e.Asset.Name, status, e.Age, e.Duration, detail)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "localhost:8080", "Health server address")

	return cmd
}
