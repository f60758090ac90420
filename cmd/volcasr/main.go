// volcasr submits audio to the Volcengine speech service and waits for
// transcripts or subtitles.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/soypete/volcasr/pkg/client"
	"github.com/soypete/volcasr/pkg/config"
	"github.com/soypete/volcasr/pkg/metrics"
)

var (
	// Global flags
	configFile  string
	envFile     string
	debug       bool
	metricsAddr string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "volcasr",
		Short: "Client for the Volcengine speech recognition service",
		Long: `volcasr submits audio to the Volcengine speech service and waits for the result.

Two job types are supported:
  - record: long-form transcription of audio reachable by URL
  - subtitle: caption generation for a local file or a URL

Credentials come from volcasr.yaml, a .env file, or VOLCENGINE_* environment variables.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (default: volcasr.yaml or ~/.volcasr.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a dotenv file (default: .env if present)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Log every request and response body")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9102)")

	rootCmd.AddCommand(recordCmd())
	rootCmd.AddCommand(subtitleCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// session bundles everything a command needs to talk to the service
type session struct {
	cfg     *config.Config
	client  *client.Client
	metrics *metrics.Metrics
	logger  *log.Logger
}

func newSession() (*session, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.Load(configFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Debug.Enabled = true
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	clientCfg := cfg.ClientConfig()
	clientCfg.Logger = logger
	clientCfg.Metrics = m

	c, err := client.New(clientCfg)
	if err != nil {
		return nil, err
	}

	if cfg.Metrics.Addr != "" {
		serveMetrics(cfg.Metrics.Addr, registry, logger)
	}

	return &session{cfg: cfg, client: c, metrics: m, logger: logger}, nil
}

func (s *session) Close() error {
	return s.client.Close()
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Printf("Serving metrics on %s/metrics", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("[ERROR] metrics server: %v", err)
		}
	}()
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nInterrupted, canceling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// withTimeout bounds the whole command when seconds is positive
func withTimeout(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}
