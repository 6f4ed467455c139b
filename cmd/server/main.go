package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/finqa/invoice-qc/internal/ai"
	"github.com/finqa/invoice-qc/internal/api"
	"github.com/finqa/invoice-qc/internal/config"
	"github.com/finqa/invoice-qc/internal/extract"
	"github.com/finqa/invoice-qc/internal/pdf"
	"github.com/finqa/invoice-qc/internal/repository"
	"github.com/finqa/invoice-qc/internal/validate"
	"github.com/finqa/invoice-qc/pkg/database"
	"github.com/finqa/invoice-qc/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting invoice QC service",
		zap.Int("port", cfg.Server.Port),
		zap.Int("extraction_workers", cfg.Extraction.Workers))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open report store", zap.Error(err))
	}
	defer db.Close()

	reportRepo, err := repository.NewReportRepository(db, logger)
	if err != nil {
		logger.Fatal("Failed to initialize report repository", zap.Error(err))
	}

	assemblerOpts := []extract.Option{extract.WithWorkers(cfg.Extraction.Workers)}
	if cfg.Extraction.AIFallback {
		fallback := ai.NewFallbackExtractor(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger)
		assemblerOpts = append(assemblerOpts, extract.WithFallback(fallback))
		logger.Info("AI fallback extraction enabled", zap.String("model", cfg.OpenAI.Model))
	}

	reader := pdf.NewReader(logger)
	assembler := extract.NewAssembler(logger, assemblerOpts...)

	rules := []validate.Rule{
		validate.RequiredFieldsRule{},
		validate.DateFormatRule{},
		validate.CurrencyRule{},
		validate.DueDateRule{},
		validate.TotalsMatchRule{Tolerance: cfg.Validation.Tolerance},
		validate.LineItemsTotalRule{Tolerance: cfg.Validation.Tolerance},
		validate.NegativeAmountsRule{},
		validate.DuplicateInvoiceRule{},
	}
	validator := validate.NewValidator(rules, logger)

	server := api.NewServer(api.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, reader, assembler, validator, reportRepo, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case sig := <-quit:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", zap.Error(err))
		}
	}

	logger.Info("Server stopped")
}
