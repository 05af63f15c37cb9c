package main

import (
	"log"
	"os"

	"github.com/seantiz/hades/internal/api"
	"github.com/seantiz/hades/internal/config"
	"github.com/seantiz/hades/internal/engine"
	"github.com/seantiz/hades/internal/solver"
	"github.com/seantiz/hades/internal/store"
	"github.com/seantiz/hades/internal/workflow"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("hades: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"max_concurrent_runs", cfg.MaxConcurrentRuns,
		"default_timeout", cfg.DefaultTimeout,
	)

	defaultFlow := workflow.Default()
	if cfg.WorkflowPath != "" {
		data, err := os.ReadFile(cfg.WorkflowPath)
		if err != nil {
			log.Fatalf("failed to read workflow: %v", err)
		}
		defaultFlow, err = workflow.Parse(data)
		if err != nil {
			log.Fatalf("failed to parse workflow %s: %v", cfg.WorkflowPath, err)
		}
		logger.Info("hades: default workflow loaded", "path", cfg.WorkflowPath, "workflow", defaultFlow.Name)
	}

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	reg := solver.NewDefaultRegistry(nil)
	eng := engine.NewEngine(db, reg, logger, engine.Options{
		MaxConcurrent:   cfg.MaxConcurrentRuns,
		DefaultTimeout:  cfg.DefaultTimeout,
		DefaultWorkflow: defaultFlow,
	})
	// Fail at startup rather than on the first request.
	if _, err := workflow.Build(defaultFlow, reg); err != nil {
		log.Fatalf("invalid default workflow: %v", err)
	}

	srv := api.NewServer(cfg.ListenAddr, db, eng, logger)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
