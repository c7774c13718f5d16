// Command clockboundd is the clock-bound daemon: it maintains the CEB (and,
// where paired, VMClock) shared-memory segments that this module's client
// library reads.
package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aws/clock-bound/internal/chrony"
	"github.com/aws/clock-bound/internal/config"
	"github.com/aws/clock-bound/internal/metrics"
	"github.com/aws/clock-bound/internal/phc"
	"github.com/aws/clock-bound/internal/runner"
	"github.com/aws/clock-bound/internal/server"
	"github.com/aws/clock-bound/internal/shm"
	"github.com/aws/clock-bound/internal/testhooks"
	"github.com/aws/clock-bound/internal/vmclock"
)

var (
	configPath string
	logLevel   string
	version    = "1.0.0"
	buildTime  = "unknown"
	gitCommit  = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clockboundd",
		Short: "clockboundd maintains the clock-error-bound shared-memory segment",
		Run:   runDaemon,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error)")

	rootCmd.PersistentFlags().Uint32("max-drift-rate", 0, "Maximum clock drift rate in parts per million (default 1 ppm)")
	rootCmd.PersistentFlags().Bool("json-output", false, "Emit structured JSON logs instead of text")
	rootCmd.PersistentFlags().Bool("disable-clock-disruption-support", false, "Disable the VMClock disruption-marker axis of the FSM")
	rootCmd.PersistentFlags().String("phc-ref-id", "", "Chrony reference id (4 ASCII characters) the PHC term is gated on")
	rootCmd.PersistentFlags().String("phc-interface", "", "Network interface whose PCI device exposes a PHC error bound")
	rootCmd.PersistentFlags().String("clock-error-bound-source", "", "chrony-udp or chronyc")
	rootCmd.PersistentFlags().String("clockbound-shm-path", "", "Path to the CEB shared-memory segment")
	rootCmd.PersistentFlags().String("vmclock-shm-path", "", "Path to the VMClock shared-memory segment")
	rootCmd.PersistentFlags().String("chrony-addr", "", "chronyd command/monitoring UDP address")
	rootCmd.PersistentFlags().String("http-addr", "", "Status HTTP API bind address (empty disables it)")
	rootCmd.PersistentFlags().String("ssh-addr", "", "Debug console SSH bind address (empty disables it)")
	rootCmd.PersistentFlags().StringSlice("elasticsearch-hosts", nil, "Elasticsearch hosts for the metrics publisher")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("clockboundd %s\n", version)
			fmt.Printf("build time: %s\n", buildTime)
			fmt.Printf("git commit: %s\n", gitCommit)
		},
	}

	configCmd := &cobra.Command{Use: "config", Short: "Configuration management"}
	configCmd.AddCommand(
		&cobra.Command{Use: "validate", Short: "Validate configuration file", Run: validateConfig},
		&cobra.Command{Use: "show", Short: "Show effective configuration", Run: showConfig},
	)
	rootCmd.AddCommand(versionCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(jsonOutput bool) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logger.Fatal("invalid log level: ", logLevel)
	}
	logger.SetLevel(level)
	if jsonOutput {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}
	return logger
}

func loadEffectiveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if v, _ := flags.GetUint32("max-drift-rate"); v != 0 {
		cfg.Runner.MaxDriftRatePPB = v * 1000
	}
	if v, _ := flags.GetBool("json-output"); v {
		cfg.Runner.JSONOutput = true
	}
	if v, _ := flags.GetBool("disable-clock-disruption-support"); v {
		cfg.Runner.DisableClockDisruptionSupport = true
	}
	if v, _ := flags.GetString("phc-ref-id"); v != "" {
		cfg.Runner.PHCRefID = v
	}
	if v, _ := flags.GetString("phc-interface"); v != "" {
		cfg.Runner.PHCInterface = v
	}
	if v, _ := flags.GetString("clock-error-bound-source"); v != "" {
		cfg.Runner.ClockErrorBoundSource = v
	}
	if v, _ := flags.GetString("clockbound-shm-path"); v != "" {
		cfg.Runner.ClockboundShmPath = v
	}
	if v, _ := flags.GetString("vmclock-shm-path"); v != "" {
		cfg.Runner.VMClockShmPath = v
	}
	if v, _ := flags.GetString("chrony-addr"); v != "" {
		cfg.Runner.ChronyAddr = v
	}
	if v, _ := flags.GetString("http-addr"); v != "" {
		cfg.Server.HTTP.Enable = true
		cfg.Server.HTTP.BindAddr = v
	}
	if v, _ := flags.GetString("ssh-addr"); v != "" {
		cfg.Server.SSH.Enable = true
		cfg.Server.SSH.BindAddr = v
	}
	if v, _ := flags.GetStringSlice("elasticsearch-hosts"); len(v) > 0 {
		cfg.Output.Elasticsearch.Hosts = v
	}

	return cfg, nil
}

// parseRefID decodes a chrony reference id, a 4-character ASCII code
// (e.g. "PHC0"), into the big-endian uint32 chrony reports it as.
func parseRefID(s string) uint32 {
	var b [4]byte
	copy(b[:], s)
	return binary.BigEndian.Uint32(b[:])
}

func runDaemon(cmd *cobra.Command, args []string) {
	cfg, err := loadEffectiveConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Runner.JSONOutput)
	logger.WithFields(logrus.Fields{
		"version":    version,
		"build_time": buildTime,
		"git_commit": gitCommit,
	}).Info("starting clockboundd")

	writer, err := shm.Open(cfg.Runner.ClockboundShmPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to open CEB segment")
	}
	defer writer.Close()

	var vmclockReader *vmclock.Reader
	disruptionSupport := !cfg.Runner.DisableClockDisruptionSupport
	if disruptionSupport {
		vmclockReader, err = vmclock.Open(cfg.Runner.VMClockShmPath)
		if err != nil {
			logger.WithError(err).Warn("failed to open VMClock segment, running without clock-disruption support")
			disruptionSupport = false
		}
	}

	var querier chrony.Querier
	switch cfg.Runner.ClockErrorBoundSource {
	case "chronyc":
		querier = chrony.NewScriptClient("chronyc")
	default:
		querier = chrony.NewUDPClient(cfg.Runner.ChronyAddr)
	}

	var phcReader *phc.Reader
	if cfg.Runner.PHCInterface != "" && cfg.Runner.PHCRefID != "" {
		phcReader, err = phc.NewReader(cfg.Runner.PHCInterface, parseRefID(cfg.Runner.PHCRefID))
		if err != nil {
			logger.WithError(err).Warn("failed to set up PHC reader, running without a PHC term")
			phcReader = nil
		}
	}
	poller := &runner.ChronySnapshotPoller{Querier: querier, PHC: phcReader}

	hooks := &testhooks.Hooks{}

	runnerCfg := runner.Config{
		MaxDriftPPB:                   cfg.Runner.MaxDriftRatePPB,
		ClockDisruptionSupportEnabled: disruptionSupport,
	}
	r := runner.New(runnerCfg, logger, writer, vmclockReader, poller, querier, hooks)

	view := server.NewStatusView()
	r.AddObserver(view)

	var httpServer *server.HTTPServer
	if cfg.Server.HTTP.Enable {
		httpServer = server.NewHTTPServer(cfg.Server.HTTP, view, logger)
	}

	var cliServer *server.CLIServer
	if cfg.Server.SSH.Enable {
		cliServer = server.NewCLIServer(cfg.Server.SSH, view, hooks, logger)
	}

	var metricsClient *metrics.Client
	if len(cfg.Output.Elasticsearch.Hosts) > 0 {
		metricsClient, err = metrics.NewClient(cfg.Output.Elasticsearch, logger)
		if err != nil {
			logger.WithError(err).Warn("metrics disabled")
		} else {
			r.AddObserver(metricsClient)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	testhooks.WatchSignals(ctx.Done(), hooks, logger)

	if httpServer != nil {
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.WithError(err).Error("status HTTP server failed")
			}
		}()
	}
	if cliServer != nil {
		go func() {
			if err := cliServer.Start(); err != nil {
				logger.WithError(err).Error("debug console failed")
			}
		}()
	}

	runErr := make(chan error, 1)
	go func() { runErr <- r.Run(ctx) }()

	logger.Info("clockboundd started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.WithField("signal", sig).Info("received shutdown signal")
	case err := <-runErr:
		if err != nil {
			logger.WithError(err).Error("control loop exited with error")
		}
	}

	logger.Info("shutting down clockboundd")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if cliServer != nil {
		cliServer.Stop()
	}
	if httpServer != nil {
		httpServer.Stop(shutdownCtx)
	}

	logger.Info("clockboundd stopped")
}

func validateConfig(cmd *cobra.Command, args []string) {
	if _, err := config.LoadConfig(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "configuration validation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("configuration is valid")
}

func showConfig(cmd *cobra.Command, args []string) {
	cfg, err := loadEffectiveConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("config loaded from: %q\n", configPath)
	fmt.Printf("max drift rate:     %d ppb\n", cfg.Runner.MaxDriftRatePPB)
	fmt.Printf("disruption support: %t\n", !cfg.Runner.DisableClockDisruptionSupport)
	fmt.Printf("error bound source: %s\n", cfg.Runner.ClockErrorBoundSource)
	fmt.Printf("chrony addr:        %s\n", cfg.Runner.ChronyAddr)
	fmt.Printf("clockbound shm:     %s\n", cfg.Runner.ClockboundShmPath)
	fmt.Printf("vmclock shm:        %s\n", cfg.Runner.VMClockShmPath)
	if cfg.Server.HTTP.Enable {
		fmt.Printf("status HTTP:        enabled on %s\n", cfg.Server.HTTP.BindAddr)
	} else {
		fmt.Printf("status HTTP:        disabled\n")
	}
	if cfg.Server.SSH.Enable {
		fmt.Printf("debug console:      enabled on %s\n", cfg.Server.SSH.BindAddr)
	} else {
		fmt.Printf("debug console:      disabled\n")
	}
	fmt.Printf("elasticsearch hosts: %v\n", cfg.Output.Elasticsearch.Hosts)
}
