// File path: cmd/socrates/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Nireus79/Socrates2-sub000/internal/api"
	"github.com/Nireus79/Socrates2-sub000/internal/common"
	"github.com/Nireus79/Socrates2-sub000/internal/data/orchestrator"
	"github.com/Nireus79/Socrates2-sub000/internal/llm"
)

func main() {
	logger := common.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		logger.Warn("socrates: .env file not loaded", "error", err)
	} else {
		logger.Info("socrates: environment loaded from .env")
	}

	addr := flag.String("addr", ":8082", "listen address")
	dbPath := flag.String("db", "", "path to the SQLite database (overrides SOCRATES_DB_PATH)")
	stageTimeout := flag.String("stage-timeout", "", "timeout for a single pipeline stage (e.g. 30s, 2m)")
	flag.Parse()

	logger.Info("socrates: startup initiated", "addr", *addr)

	cfg, err := orchestrator.LoadConfig()
	if err != nil {
		logger.Error("socrates: config load failed", "error", err)
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	if trimmed := strings.TrimSpace(*dbPath); trimmed != "" {
		cfg.Store.Path = trimmed
	}
	if trimmed := strings.TrimSpace(*stageTimeout); trimmed != "" {
		dur, err := time.ParseDuration(trimmed)
		if err != nil {
			logger.Error("socrates: invalid stage timeout", "value", trimmed, "error", err)
			fmt.Println("stage timeout error:", err)
			os.Exit(1)
		}
		cfg.StageTimeout = dur
	}

	provider := llm.NewProvider()
	logger.Info("socrates: completion provider ready", "provider", provider.Name())

	orch, err := orchestrator.New(ctx, cfg, orchestrator.WithProvider(provider))
	if err != nil {
		logger.Error("socrates: orchestrator initialization failed", "error", err)
		fmt.Println("orchestrator error:", err)
		os.Exit(1)
	}
	defer orch.Close()

	server, err := api.NewServer(orch)
	if err != nil {
		logger.Error("socrates: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	logger.Info("socrates: listening", "addr", *addr, "db", cfg.Store.Path)
	fmt.Println("listening on", *addr)
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("socrates: server exited", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}
}
