package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/cfgbind/internal/application"
	"github.com/eugenenazirov/cfgbind/internal/config"
	"github.com/eugenenazirov/cfgbind/internal/logging"
	"github.com/eugenenazirov/cfgbind/internal/reload"
	"github.com/eugenenazirov/cfgbind/internal/snapshot"
)

var signalNotify = signal.Notify

type renderOptions struct {
	source    string
	layered   bool
	envPrefix string
	indent    string
	format    string
}

func main() {
	kingpinApp := kingpin.New("cfgbind", "Config binder - binds hierarchical configuration to typed snapshots")

	renderCmd := kingpinApp.Command("render", "Bind a configuration source and print the resulting snapshot")
	renderSource := renderCmd.Arg("source", "Path to a YAML configuration source").String()
	renderLayered := renderCmd.Flag("layered", "Overlay environment variables on top of the source").Bool()
	renderEnvPrefix := renderCmd.Flag("env-prefix", "Environment variable prefix for layered sources").Default("CFGBIND_").String()
	renderIndent := renderCmd.Flag("indent", "Prefix applied to every rendered line").Default("").String()
	renderFormat := renderCmd.Flag("format", "Output format").Default("text").Enum("text", "json")

	serveCmd := kingpinApp.Command("serve", "Serve the bound snapshot over HTTP")
	configFile := serveCmd.Flag("config", "Path to YAML settings file").String()
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	source := serveCmd.Flag("source", "Path to the YAML configuration source to bind").String()
	layered := serveCmd.Flag("layered", "Overlay environment variables on top of the source").Bool()
	envPrefix := serveCmd.Flag("env-prefix", "Environment variable prefix for layered sources").String()
	watch := serveCmd.Flag("watch", "Reload the snapshot when the source file changes").Bool()
	logLevel := serveCmd.Flag("log-level", "Log level (debug, info, warn, error)").String()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	switch kingpin.MustParse(kingpinApp.Parse(os.Args[1:])) {
	case renderCmd.FullCommand():
		err := runRender(os.Stdout, renderOptions{
			source:    *renderSource,
			layered:   *renderLayered,
			envPrefix: *renderEnvPrefix,
			indent:    *renderIndent,
			format:    *renderFormat,
		})
		kingpinApp.FatalIfError(err, "render")

	case serveCmd.FullCommand():
		overrides := &config.CLIOverrides{
			ConfigFile: *configFile,
			Port:       port,
			Source:     source,
			EnvPrefix:  envPrefix,
			LogLevel:   logLevel,
		}
		if *layered {
			overrides.Layered = layered
		}
		if *watch {
			overrides.Watch = watch
		}
		if *rateLimitRPSFlag >= 0 {
			overrides.RateLimitRPS = rateLimitRPSFlag
		}
		if *rateLimitBurstFlag >= 0 {
			overrides.RateLimitBurst = rateLimitBurstFlag
		}
		serve(overrides)
	}
}

func serve(overrides *config.CLIOverrides) {
	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

func runRender(w io.Writer, opts renderOptions) error {
	loader := reload.Loader{
		Path:      opts.source,
		Layered:   opts.layered,
		EnvPrefix: opts.envPrefix,
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent(opts.indent, "  ")
		return enc.Encode(cfg)
	}
	_, err = io.WriteString(w, snapshot.Render(cfg, opts.indent))
	return err
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
