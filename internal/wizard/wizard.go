// Package wizard provides an interactive setup wizard for the ping probe.
package wizard

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/infrasonar/ping-probe/internal/check"
	"github.com/infrasonar/ping-probe/internal/config"
)

// Result contains the wizard output.
type Result struct {
	Config     *config.Config
	ConfigPath string
}

// Wizard manages the interactive setup process.
type Wizard struct {
	theme *huh.Theme
}

// New creates a new setup wizard.
func New() *Wizard {
	return &Wizard{
		theme: huh.ThemeDracula(),
	}
}

// Run executes the interactive setup wizard and writes the resulting
// configuration file.
func (w *Wizard) Run() (*Result, error) {
	w.printBanner()

	cfg := config.Default()

	configPath, err := w.askBasicSetup(cfg)
	if err != nil {
		return nil, err
	}

	if err := w.askAssets(cfg); err != nil {
		return nil, err
	}

	if err := w.askHub(cfg); err != nil {
		return nil, err
	}

	if err := w.askHealth(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("generated configuration is invalid: %w", err)
	}

	if err := w.writeConfig(cfg, configPath); err != nil {
		return nil, err
	}

	w.printSummary(cfg, configPath)

	return &Result{
		Config:     cfg,
		ConfigPath: configPath,
	}, nil
}

func (w *Wizard) printBanner() {
	banner := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")).
		Render(`
        _                                 _
  _ __ (_)_ __   __ _       _ __  _ __ __| |__   ___
 | '_ \| | '_ \ / _' |_____| '_ \| '__/ _ \ '_ \ / _ \
 | |_) | | | | | (_| |_____| |_) | | | (_) | |_) |  __/
 | .__/|_|_| |_|\__, |     | .__/|_|  \___/|_.__/ \___|
 |_|            |___/      |_|
`)

	subtitle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render("  ICMP Liveness & Latency Probe - Setup Wizard\n")

	fmt.Println(banner)
	fmt.Println(subtitle)
}

func (w *Wizard) askBasicSetup(cfg *config.Config) (string, error) {
	configPath := "./config.yaml"
	interval := "300"

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Basic Setup").
				Description("Configure the probe identity and schedule."),

			huh.NewInput().
				Title("Probe Name").
				Description("Identity reported with every check result").
				Placeholder("ping").
				Value(&cfg.Probe.Name).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("probe name is required")
					}
					return nil
				}),

			huh.NewInput().
				Title("Check Interval (seconds)").
				Description("How often each asset is pinged").
				Placeholder("300").
				Value(&interval).
				Validate(validateSeconds(10)),

			huh.NewConfirm().
				Title("Privileged ICMP?").
				Description("Raw sockets require root; datagram sockets need the ping_group_range sysctl").
				Value(&cfg.Probe.Privileged),

			huh.NewInput().
				Title("Config File Path").
				Description("Where to write the configuration file").
				Placeholder("./config.yaml").
				Value(&configPath).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("config path is required")
					}
					if !strings.HasSuffix(s, ".yaml") && !strings.HasSuffix(s, ".yml") {
						return fmt.Errorf("config file should have .yaml or .yml extension")
					}
					return nil
				}),
		),
	).WithTheme(w.theme)

	if err := form.Run(); err != nil {
		return "", err
	}

	secs, _ := strconv.Atoi(interval)
	cfg.Probe.CheckInterval = time.Duration(secs) * time.Second
	return configPath, nil
}

func (w *Wizard) askAssets(cfg *config.Config) error {
	addresses := ""
	count := strconv.Itoa(check.DefaultCount)
	packetInterval := strconv.Itoa(check.DefaultInterval)
	timeout := strconv.Itoa(check.DefaultTimeout)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Assets").
				Description("The hosts this probe will ping."),

			huh.NewText().
				Title("Addresses").
				Description("One hostname or IP per line").
				Value(&addresses).
				Validate(func(s string) error {
					if len(splitLines(s)) == 0 {
						return fmt.Errorf("at least one address is required")
					}
					return nil
				}),

			huh.NewInput().
				Title("Packets per Check (1-9)").
				Value(&count).
				Validate(validateRange(1, 9)),

			huh.NewInput().
				Title("Inter-packet Interval (1-9 seconds)").
				Value(&packetInterval).
				Validate(validateRange(1, 9)),

			huh.NewInput().
				Title("Reply Timeout (seconds)").
				Value(&timeout).
				Validate(validateSeconds(1)),
		),
	).WithTheme(w.theme)

	if err := form.Run(); err != nil {
		return err
	}

	ping := check.Config{}
	if n, _ := strconv.Atoi(count); n != check.DefaultCount {
		ping.Count = n
	}
	if n, _ := strconv.Atoi(packetInterval); n != check.DefaultInterval {
		ping.Interval = n
	}
	if n, _ := strconv.Atoi(timeout); n != check.DefaultTimeout {
		ping.Timeout = n
	}

	for i, addr := range splitLines(addresses) {
		cfg.Assets = append(cfg.Assets, config.AssetConfig{
			ID:   i + 1,
			Name: addr,
			Ping: ping,
		})
	}
	return nil
}

func (w *Wizard) askHub(cfg *config.Config) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Hub").
				Description("Stream check results to a monitoring hub over WebSocket."),

			huh.NewConfirm().
				Title("Forward results to a hub?").
				Value(&cfg.Hub.Enabled),
		),
	).WithTheme(w.theme)

	if err := form.Run(); err != nil {
		return err
	}
	if !cfg.Hub.Enabled {
		return nil
	}

	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Hub URL").
				Placeholder("wss://hub.example.com/probe").
				Value(&cfg.Hub.URL).
				Validate(func(s string) error {
					u, err := url.Parse(s)
					if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
						return fmt.Errorf("expected a ws:// or wss:// URL")
					}
					return nil
				}),

			huh.NewInput().
				Title("Token").
				Description("Bearer token, leave empty for none").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Hub.Token),
		),
	).WithTheme(w.theme)

	return form.Run()
}

func (w *Wizard) askHealth(cfg *config.Config) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Health & Metrics").
				Description("Expose /healthz, /reports and Prometheus /metrics over HTTP."),

			huh.NewConfirm().
				Title("Enable the health server?").
				Value(&cfg.Health.Enabled),

			huh.NewInput().
				Title("Listen Address").
				Placeholder(":8080").
				Value(&cfg.Health.Address),
		),
	).WithTheme(w.theme)

	return form.Run()
}

// writeConfig marshals the configuration to YAML and writes it.
func (w *Wizard) writeConfig(cfg *config.Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (w *Wizard) printSummary(cfg *config.Config, path string) {
	ok := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	fmt.Println(ok.Render("\nConfiguration written to " + path))
	fmt.Println(dim.Render(fmt.Sprintf("  probe: %s, assets: %d, hub: %v, health: %v",
		cfg.Probe.Name, len(cfg.Assets), cfg.Hub.Enabled, cfg.Health.Enabled)))
	fmt.Println(dim.Render("\nStart the probe with:\n\n  ping-probe run -c " + path + "\n"))
}

// splitLines returns the non-empty trimmed lines of s.
func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// validateRange validates an integer input within [min, max].
func validateRange(min, max int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("enter a number")
		}
		if n < min || n > max {
			return fmt.Errorf("must be %d..%d", min, max)
		}
		return nil
	}
}

// validateSeconds validates an integer number of seconds >= min.
func validateSeconds(min int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("enter a number of seconds")
		}
		if n < min {
			return fmt.Errorf("must be at least %d", min)
		}
		return nil
	}
}
