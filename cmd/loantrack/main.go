package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pfallmann/loantrack/internal/config"
	"github.com/pfallmann/loantrack/internal/server"
	"github.com/pfallmann/loantrack/internal/store"
	"github.com/pfallmann/loantrack/pkg/constants"
	"github.com/pfallmann/loantrack/pkg/loans"
	"github.com/pfallmann/loantrack/pkg/output"
)

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zapConfig zap.Config
	switch format {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	case "json":
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	policyFlag := flag.String("policy", "", "restructure policy override: termFixed, paymentFixed")
	truncate := flag.Bool("truncate", false, "stop the schedule at the installment that pays the loan off")
	serve := flag.Bool("serve", false, "run the HTTP API instead of printing schedules")
	flag.Parse()

	// Load the config file to get logging configuration
	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		return
	}

	// Initialize logging based on config and CLI override
	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	if *serve {
		runServer(logger, conf)
		return
	}

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat != constants.OutputFormatPretty && outputFormat != constants.OutputFormatCSV {
		logger.Fatal(fmt.Sprintf("invalid output format: %s", outputFormat),
			zap.String("op", "main"),
		)
	}

	opts := loans.Options{TruncateOnPayoff: *truncate}
	switch *policyFlag {
	case "", string(loans.RestructureTermFixed):
	case string(loans.RestructurePaymentFixed):
		opts.Restructure = loans.RestructurePaymentFixed
	default:
		logger.Fatal(fmt.Sprintf("invalid restructure policy: %s", *policyFlag),
			zap.String("op", "main"),
		)
	}

	// Validate configuration and display any warnings
	warnings := conf.ValidateConfiguration()
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	schedules, err := reconcileConfiguredLoans(logger, conf, opts)
	if err != nil {
		logger.Fatal("failed to reconcile loan schedules",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	// Handle output.
	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(schedules)
	case constants.OutputFormatCSV:
		output.CsvFormat(schedules)
	}
}

// reconcileConfiguredLoans runs the engine over every loan in the config file.
// Override entries do not fund the payment pool but still count the slot they
// occupy, so their positions stay aligned with the configured list.
func reconcileConfiguredLoans(logger *zap.Logger, conf *config.Configuration, opts loans.Options) ([]output.Schedule, error) {
	now := time.Now()
	schedules := make([]output.Schedule, 0, len(conf.Loans))
	for _, configured := range conf.Loans {
		definition, err := configured.Definition()
		if err != nil {
			return nil, err
		}
		payments, err := configured.PaymentList()
		if err != nil {
			return nil, err
		}
		for i := range payments {
			if payments[i].IsOverride() {
				payments[i].Amount = 0
			}
		}

		result := loans.ReconcileAt(definition, payments, now, opts)
		logger.Debug("reconciled loan",
			zap.String("op", "main.reconcileConfiguredLoans"),
			zap.String("loan", configured.Name),
			zap.Int("installments", len(result.Installments)),
			zap.Float64("currentBalance", result.CurrentBalance),
		)
		schedules = append(schedules, output.Schedule{Name: configured.Name, Result: result})
	}
	return schedules, nil
}

func runServer(logger *zap.Logger, conf *config.Configuration) {
	storage, err := store.NewSQLiteStore(conf.Server.DatabasePath)
	if err != nil {
		logger.Fatal("failed to open database",
			zap.String("op", "main.runServer"),
			zap.String("path", conf.Server.DatabasePath),
			zap.Error(err),
		)
	}
	defer func() {
		_ = storage.Close()
	}()

	srv := server.NewServer(logger, storage, server.Options{
		ScheduleCacheTTL:  time.Duration(conf.Server.ScheduleCacheTTL) * time.Second,
		RequestsPerSecond: conf.Server.RequestsPerSecond,
		RequestBurst:      conf.Server.RequestBurst,
	})

	logger.Info("starting HTTP API",
		zap.String("op", "main.runServer"),
		zap.String("address", conf.Server.Address),
	)
	if err := http.ListenAndServe(conf.Server.Address, srv.Handler()); err != nil {
		logger.Fatal("server stopped",
			zap.String("op", "main.runServer"),
			zap.Error(err),
		)
	}
}
