package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "weightcon: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envErr := godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogger(cfg.Env); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer syncLogger()

	if envErr != nil {
		logger.Warn("no .env file loaded, using process environment", zap.Error(envErr))
	}

	ctx := context.Background()
	pool, err := getDBPool(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	var advice adviceCache
	if cfg.RedisAddr != "" {
		cache, err := newRedisAdviceCache(cfg.RedisAddr, cfg.RedisPassword, cfg.AdviceTTL)
		if err != nil {
			logger.Warn("advice cache disabled", zap.Error(err))
		} else {
			defer cache.Close()
			advice = cache
		}
	}
	if cfg.LLM.APIKey == "" {
		logger.Warn("LLM_API_KEY not set, model-backed endpoints will fail")
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.SetTrustedProxies(nil)

	h := newHandler(pool, newLLMClient(cfg.LLM), advice)
	h.registerRoutes(router)

	logger.Info("starting server",
		zap.String("addr", cfg.Addr),
		zap.String("env", cfg.Env),
		zap.Bool("advice_cache", advice != nil))
	return router.Run(cfg.Addr)
}
