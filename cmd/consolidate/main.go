// Command consolidate runs one consolidation pass against an existing
// memory_base_path outside the long-lived engine process — for a cron
// job or manual operator trigger rather than the coordinator's own
// frequency-based scheduling.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"memoria/internal/config"
	"memoria/internal/consolidation"
	"memoria/internal/domain"
	"memoria/internal/fsstore"
	"memoria/internal/llmport"
	"memoria/internal/logging"
	"memoria/internal/tiers"
)

func main() {
	mode := flag.String("mode", "due", "daily, weekly, monthly, or due (run whatever the schedule says is overdue)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.DevLogging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	store := fsstore.New(cfg.MemoryBasePath)
	if err := store.Init(); err != nil {
		logger.Fatal("init memory base path", zap.Error(err))
	}
	if err := store.AcquireLock(); err != nil {
		logger.Fatal("acquire lock", zap.Error(err))
	}
	defer store.ReleaseLock()

	httpClient := &http.Client{Timeout: 60 * time.Second}
	llmClient := llmport.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, httpClient)

	semantic := tiers.NewSemanticManager(store)
	library := tiers.NewLibraryManager(store)
	profiles := tiers.NewProfileManager(store, cfg.ProfileThreshold)
	engine := consolidation.New(store, llmClient, semantic, library, profiles, logger)

	ctx := context.Background()
	now := time.Now()

	runMode, err := resolveMode(store, *mode, now)
	if err != nil {
		logger.Fatal("resolve consolidation mode", zap.Error(err))
	}
	if runMode == "" {
		logger.Info("nothing due, exiting")
		return
	}

	result, err := engine.Run(ctx, runMode, now)
	if err != nil {
		logger.Fatal("consolidation run failed", zap.Error(err))
	}
	logger.Info("consolidation complete",
		zap.String("mode", string(runMode)),
		zap.Int("updated", len(result.Updated)),
		zap.Int("skipped", len(result.Skipped)),
	)

	schedule, err := consolidation.LoadSchedule(store, now)
	if err != nil {
		logger.Fatal("load schedule", zap.Error(err))
	}
	schedule = consolidation.Advance(schedule, runMode, now)
	if err := consolidation.SaveSchedule(store, schedule); err != nil {
		logger.Fatal("save schedule", zap.Error(err))
	}
}

func resolveMode(store *fsstore.Store, flagValue string, now time.Time) (domain.ConsolidationMode, error) {
	switch flagValue {
	case "daily":
		return domain.ModeDaily, nil
	case "weekly":
		return domain.ModeWeekly, nil
	case "monthly":
		return domain.ModeMonthly, nil
	case "due", "":
		schedule, err := consolidation.LoadSchedule(store, now)
		if err != nil {
			return "", err
		}
		return consolidation.Due(schedule, now), nil
	default:
		return "", fmt.Errorf("consolidate: unknown -mode %q", flagValue)
	}
}
