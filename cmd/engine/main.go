// Command engine starts the HTTP tool surface: remember_fact,
// search_memories, search_library, reflect_on, capture_document,
// reconstruct_context, plus /v1/chat and /v1/trace.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"memoria/internal/anchor"
	"memoria/internal/apiauth"
	"memoria/internal/config"
	"memoria/internal/consolidation"
	"memoria/internal/domain"
	"memoria/internal/embedport"
	"memoria/internal/fsstore"
	apihttp "memoria/internal/http"
	"memoria/internal/llmport"
	"memoria/internal/logging"
	"memoria/internal/memory"
	"memoria/internal/reconstruct"
	"memoria/internal/session"
	"memoria/internal/taskqueue"
	"memoria/internal/tiers"
	"memoria/internal/tools"
	"memoria/internal/vectorindex"
)

func main() {
	ctx := context.Background()

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

	httpClient := &http.Client{Timeout: 60 * time.Second}
	llmClient := llmport.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, httpClient)
	embedClient := embedport.NewHTTPClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, httpClient)

	index := newIndex(ctx, cfg, logger)

	episodic := tiers.NewEpisodicManager(store)
	library := tiers.NewLibraryManager(store)
	working := tiers.NewWorkingManager(store, cfg.WorkingMemoryCap)
	semantic := tiers.NewSemanticManager(store)
	profiles := tiers.NewProfileManager(store, cfg.ProfileThreshold)
	anchors := anchor.New(store, logger)

	recon := reconstruct.New(store, index, embedClient, episodic, library, working, profiles)
	mem := memory.New(store, index, embedClient, anchors, semantic, library, working, episodic, profiles, logger)
	cons := consolidation.New(store, llmClient, semantic, library, profiles, logger)

	coord, err := session.New(store, recon, mem, cons, working, profiles, llmClient, cfg.ConsolidationFrequency, logger)
	if err != nil {
		logger.Fatal("start session", zap.Error(err))
	}
	defer coord.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	} else {
		logger.Warn("REDIS_ADDR not configured, background tasks fall back to the filesystem journal")
	}
	queue := taskqueue.New(redisClient, store)
	coord.SetTaskQueue(queue)
	go runTaskWorker(ctx, queue, store, cons, logger)

	surface := tools.New(mem, recon, cons)

	keys, err := apiauth.NewKeyStore(cfg.AuthAPIKey)
	if err != nil {
		logger.Fatal("hash bootstrap api key", zap.Error(err))
	}
	if cfg.AuthAPIKey == "" {
		logger.Warn("AUTH_API_KEY not configured")
	}
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	jwtSvc := apiauth.NewJWTService(cfg.JWTSecret, 15*time.Minute)

	authH := apihttp.NewAuthHandler(logger, keys, jwtSvc)
	toolH := apihttp.NewToolHandler(logger, surface)
	chatH := apihttp.NewChatHandler(logger, coord)
	router := apihttp.NewRouter(logger, jwtSvc, authH, toolH, chatH)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

// runTaskWorker drains the background task queue, currently just the
// weekly/monthly consolidation runs the coordinator defers off the chat
// path. It polls rather than blocks on Redis so the filesystem-journal
// fallback (no Redis configured) is drained the same way.
func runTaskWorker(ctx context.Context, queue *taskqueue.Queue, store *fsstore.Store, cons *consolidation.Engine, logger *zap.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task, ok, err := queue.Dequeue(ctx)
			if err != nil {
				logger.Warn("dequeue task failed", zap.Error(err))
				continue
			}
			if !ok {
				continue
			}
			if task.Kind != "consolidation" {
				logger.Warn("unrecognized task kind", zap.String("kind", task.Kind))
				continue
			}

			var payload struct {
				Mode domain.ConsolidationMode `json:"mode"`
			}
			if err := json.Unmarshal(task.Payload, &payload); err != nil {
				logger.Warn("unmarshal consolidation task failed", zap.Error(err))
				continue
			}

			now := time.Now()
			if _, err := cons.Run(ctx, payload.Mode, now); err != nil {
				logger.Warn("background consolidation failed", zap.Error(err), zap.String("mode", string(payload.Mode)))
				continue
			}
			schedule, err := consolidation.LoadSchedule(store, now)
			if err != nil {
				logger.Warn("load schedule failed", zap.Error(err))
				continue
			}
			schedule = consolidation.Advance(schedule, payload.Mode, now)
			if err := consolidation.SaveSchedule(store, schedule); err != nil {
				logger.Warn("save schedule failed", zap.Error(err))
			}
		}
	}
}

// newIndex connects to Postgres/pgvector when DATABASE_URL is set,
// falling back to the in-memory linear index in degraded mode.
func newIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger) vectorindex.Index {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not configured, running with the in-memory linear index")
		return vectorindex.NewLinearIndex()
	}
	pool, err := vectorindex.NewPool(ctx, cfg)
	if err != nil {
		logger.Warn("pgvector pool init failed, falling back to the linear index", zap.Error(err))
		return vectorindex.NewLinearIndex()
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := vectorindex.Ping(pingCtx, pool); err != nil {
		logger.Warn("pgvector unreachable, falling back to the linear index", zap.Error(err))
		return vectorindex.NewLinearIndex()
	}
	pg := vectorindex.NewPgIndex(pool)
	if err := pg.EnsureSchema(ctx, cfg.EmbeddingDimensions); err != nil {
		logger.Warn("pgvector schema setup failed, falling back to the linear index", zap.Error(err))
		return vectorindex.NewLinearIndex()
	}
	return pg
}
