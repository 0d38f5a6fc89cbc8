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

	"github.com/eugenenazirov/catering-configurator/internal/application"
	"github.com/eugenenazirov/catering-configurator/internal/config"
	"github.com/eugenenazirov/catering-configurator/internal/configurator"
	"github.com/eugenenazirov/catering-configurator/internal/defaults"
	"github.com/eugenenazirov/catering-configurator/internal/domain"
	"github.com/eugenenazirov/catering-configurator/internal/logging"
	"github.com/eugenenazirov/catering-configurator/internal/pricing"
)

var signalNotify = signal.Notify

type quoteOptions struct {
	PackageID   string
	Traditional float64
	PlantBased  float64
	GuestCount  int
	Skip        []string
}

func main() {
	kingpinApp := kingpin.New("catering-configurator", "Catering package configurator - customizes wing packages and prices every change")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	envFile := kingpinApp.Flag("env-file", "Path to a .env file loaded before reading the environment").String()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()
	catalogFile := kingpinApp.Flag("catalog-file", "YAML catalog served instead of the built-in one").String()
	catalogURL := kingpinApp.Flag("catalog-url", "Base URL of a remote catalog service").String()
	sessionDB := kingpinApp.Flag("session-db", "SQLite file for saved configurations (empty keeps them in memory)").String()
	taxRate := kingpinApp.Flag("tax-rate", "Sales tax rate, e.g. 0.08").Default("-1").Float64()
	packSizes := kingpinApp.Flag("pack-sizes", "Bundle sizes as key=value pairs, e.g. dips=5,chips=10").String()
	sauceRatios := kingpinApp.Flag("sauce-ratios", "Units per sauce container as key=value pairs, e.g. creamy=10").String()

	serveCmd := kingpinApp.Command("serve", "Run the HTTP API").Default()
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	quoteCmd := kingpinApp.Command("quote", "Price a package once and print the result as JSON")
	var quote quoteOptions
	quoteCmd.Arg("package", "Package identifier").Required().StringVar(&quote.PackageID)
	quoteCmd.Flag("traditional", "Traditional wing percentage for smart defaults").Default("-1").Float64Var(&quote.Traditional)
	quoteCmd.Flag("plant-based", "Plant-based wing percentage for smart defaults").Default("-1").Float64Var(&quote.PlantBased)
	quoteCmd.Flag("guests", "Guest count used for the per-person cost").IntVar(&quote.GuestCount)
	quoteCmd.Flag("skip", "Pack category to skip (repeatable)").StringsVar(&quote.Skip)

	command := kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile:     *configFile,
		EnvFile:        *envFile,
		LogLevel:       logLevel,
		CatalogFile:    catalogFile,
		CatalogURL:     catalogURL,
		SessionDB:      sessionDB,
		PackSizesStr:   packSizes,
		SauceRatiosStr: sauceRatios,
	}

	if *port != "" {
		overrides.Port = port
	}

	if *taxRate >= 0 {
		overrides.TaxRate = taxRate
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

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
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to release resources", zap.Error(err))
		}
	}()

	switch command {
	case quoteCmd.FullCommand():
		if err := runQuote(context.Background(), app.Sessions(), quote, os.Stdout); err != nil {
			_ = app.Close()
			logger.Fatal("quote failed", zap.Error(err))
		}
	default:
		if err := app.Start(); err != nil {
			logger.Fatal("failed to start server", zap.Error(err))
		}

		shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
	}
}

type quoteOutput struct {
	SessionID     string               `json:"sessionId"`
	PackageID     string               `json:"packageId"`
	Totals        pricing.Totals       `json:"totals"`
	Modifiers     []pricing.Modifier   `json:"modifiers"`
	Modifications map[string]string    `json:"modifications"`
	Warnings      []string             `json:"warnings,omitempty"`
	Config        domain.CurrentConfig `json:"config"`
}

// quoteTargets builds smart-default targets when either percentage is given.
// The missing one is the rest of 100.
func quoteTargets(opts quoteOptions) *defaults.Targets {
	switch {
	case opts.Traditional < 0 && opts.PlantBased < 0:
		return nil
	case opts.Traditional < 0:
		return &defaults.Targets{Traditional: 100 - opts.PlantBased, PlantBased: opts.PlantBased}
	case opts.PlantBased < 0:
		return &defaults.Targets{Traditional: opts.Traditional, PlantBased: 100 - opts.Traditional}
	default:
		return &defaults.Targets{Traditional: opts.Traditional, PlantBased: opts.PlantBased}
	}
}

// runQuote creates a throwaway session, applies the requested changes and
// writes the resulting pricing to w.
func runQuote(ctx context.Context, sessions *configurator.Manager, opts quoteOptions, w io.Writer) error {
	req := configurator.CreateRequest{PackageID: opts.PackageID, GuestCount: opts.GuestCount}
	req.Targets = quoteTargets(opts)

	s, err := sessions.Create(ctx, req)
	if err != nil {
		return err
	}
	defer func() {
		_ = sessions.End(s.ID())
	}()

	for _, name := range opts.Skip {
		category, err := domain.ParseCategory(name)
		if err != nil {
			return err
		}
		if err := s.Skip(category, true); err != nil {
			return err
		}
	}

	result, err := s.Pricing(ctx)
	if err != nil {
		return err
	}
	mods, err := s.Modifications()
	if err != nil {
		return err
	}
	cfg, err := s.Config()
	if err != nil {
		return err
	}

	out := quoteOutput{
		SessionID:     s.ID(),
		PackageID:     opts.PackageID,
		Totals:        result.Totals,
		Modifiers:     result.Modifiers,
		Modifications: make(map[string]string, len(mods)),
		Config:        cfg,
	}
	for category, record := range mods {
		out.Modifications[category.String()] = record.Details
	}
	for _, warning := range result.Warnings() {
		out.Warnings = append(out.Warnings, warning.Label)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
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
