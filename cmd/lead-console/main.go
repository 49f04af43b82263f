package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/lead-console/internal/config"
	"github.com/MarcoPoloResearchLab/lead-console/internal/leads"
	"github.com/MarcoPoloResearchLab/lead-console/internal/leadsapi"
	"github.com/MarcoPoloResearchLab/lead-console/internal/logging"
	"github.com/MarcoPoloResearchLab/lead-console/internal/metrics"
	"github.com/MarcoPoloResearchLab/lead-console/internal/server"
	"github.com/MarcoPoloResearchLab/lead-console/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const tuiLogFile = "lead-console.log"

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "lead-console",
		Short:        "Admin console for the leads service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	setupFlags(rootCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the console over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "tui",
		Short: "Run the console in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context())
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("leads-base-url", defaults.GetString("leads.base_url"), "Base URL of the leads service")
	cmd.PersistentFlags().Duration("leads-timeout", defaults.GetDuration("leads.timeout"), "Per-request timeout for the leads service")
	cmd.PersistentFlags().Float64("rate-limit-rps", defaults.GetFloat64("leads.rate_limit_rps"), "Outbound requests per second")
	cmd.PersistentFlags().Int("rate-limit-burst", defaults.GetInt("leads.rate_limit_burst"), "Outbound request burst")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().Int("page-size", defaults.GetInt("view.page_size"), "Leads per page")
	cmd.PersistentFlags().String("sort", defaults.GetString("view.sort"), "Initial sort (created_desc, created_asc, name_asc, name_desc)")
	cmd.PersistentFlags().String("locale", defaults.GetString("view.locale"), "Collation locale for name ordering")
	cmd.PersistentFlags().String("time-zone", defaults.GetString("view.time_zone"), "Time zone for creation dates")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log format (json, console)")
	cmd.PersistentFlags().String("log-output", defaults.GetString("log.output"), "Log output (stderr, stdout or a file path)")

	bindFlag(cmd, "leads.base_url", "leads-base-url")
	bindFlag(cmd, "leads.timeout", "leads-timeout")
	bindFlag(cmd, "leads.rate_limit_rps", "rate-limit-rps")
	bindFlag(cmd, "leads.rate_limit_burst", "rate-limit-burst")
	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "view.page_size", "page-size")
	bindFlag(cmd, "view.sort", "sort")
	bindFlag(cmd, "view.locale", "locale")
	bindFlag(cmd, "view.time_zone", "time-zone")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
	bindFlag(cmd, "log.output", "log-output")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("lead-console")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

// consoleRuntime bundles what both front ends need.
type consoleRuntime struct {
	console  *leads.Console
	registry *prometheus.Registry
}

func newConsoleRuntime(appConfig config.AppConfig, logger *zap.Logger) (consoleRuntime, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	consoleMetrics := metrics.New(registry)

	client, err := leadsapi.NewClient(leadsapi.Config{
		BaseURL:   appConfig.LeadsBaseURL,
		Timeout:   appConfig.LeadsTimeout,
		RateLimit: rate.Limit(appConfig.RateLimitRPS),
		Burst:     appConfig.RateLimitBurst,
		Logger:    logger.Named("leadsapi"),
		Recorder:  consoleMetrics,
	})
	if err != nil {
		return consoleRuntime{}, err
	}

	console, err := leads.NewConsole(leads.Config{
		Transport:    client,
		Pipeline:     leads.NewPipeline(appConfig.Locale),
		Projector:    leads.NewProjector(appConfig.Location),
		PageSize:     appConfig.PageSize,
		Sort:         appConfig.Sort,
		ConfirmDelay: appConfig.ConfirmDelay,
		Clock:        time.Now,
		Logger:       logger.Named("console"),
		Recorder:     consoleMetrics,
	})
	if err != nil {
		return consoleRuntime{}, err
	}

	return consoleRuntime{console: console, registry: registry}, nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:      appConfig.LogLevel,
		Format:     appConfig.LogFormat,
		OutputPath: appConfig.LogOutput,
	})
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	runtime, err := newConsoleRuntime(appConfig, logger)
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Console:        runtime.console,
		Realtime:       server.NewRealtimeDispatcher(),
		MetricsHandler: promhttp.HandlerFor(runtime.registry, promhttp.HandlerOpts{}),
		Logger:         logger.Named("http"),
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("leads_base_url", appConfig.LeadsBaseURL))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runTUI(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	// The terminal belongs to the UI; standard streams would corrupt it.
	output := appConfig.LogOutput
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "", "stderr", "stdout":
		output = tuiLogFile
	}
	logger, err := logging.NewLogger(logging.Config{
		Level:      appConfig.LogLevel,
		Format:     appConfig.LogFormat,
		OutputPath: output,
	})
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	runtime, err := newConsoleRuntime(appConfig, logger)
	if err != nil {
		return err
	}

	model, err := tui.NewModel(tui.Config{
		Console: runtime.console,
		Timeout: appConfig.LeadsTimeout,
		Logger:  logger.Named("tui"),
	})
	if err != nil {
		return err
	}

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
