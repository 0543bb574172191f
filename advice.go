package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const adviceSystemPrompt = `You are a fat-loss coach. Based on the user's food and exercise for today, give 1-2 short, positive sentences of advice.
Do not say "you should"; give a specific, actionable suggestion directly. Keep it under 60 words.`

const adviceUserPromptTemplate = `Today: %d kcal eaten, %d g protein, %d kcal burned through exercise, budget %d kcal, remaining balance %d kcal.
Give your advice.`

// adviceCache stores generated advice keyed by the day's numbers, so the same
// totals never hit the model twice within the TTL.
type adviceCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, advice string)
}

// redisAdviceCache is an adviceCache backed by Redis. Failures are logged and
// treated as misses.
type redisAdviceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// newRedisAdviceCache connects to Redis and verifies the connection.
func newRedisAdviceCache(addr, password string, ttl time.Duration) (*redisAdviceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &redisAdviceCache{client: client, ttl: ttl}, nil
}

func (r *redisAdviceCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		logger.Warn("advice cache read failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return val, true
}

func (r *redisAdviceCache) Set(ctx context.Context, key, advice string) {
	if err := r.client.Set(ctx, key, advice, r.ttl).Err(); err != nil {
		logger.Warn("advice cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *redisAdviceCache) Close() error {
	return r.client.Close()
}

// adviceCacheKey identifies advice by date and the totals it was generated from.
func adviceCacheKey(date string, t dayTotals) string {
	return fmt.Sprintf("advice:%s:%d:%d:%d:%d:%d", date, t.CaloriesIn, t.ProteinG, t.CaloriesOut, t.Budget, t.Balance)
}

// dailyAdvice returns advice for the totals, from the cache when possible.
func (h *Handler) dailyAdvice(ctx context.Context, date string, t dayTotals) (string, error) {
	key := adviceCacheKey(date, t)
	if h.advice != nil {
		if cached, ok := h.advice.Get(ctx, key); ok {
			logger.Debug("advice cache hit", zap.String("key", key))
			return cached, nil
		}
	}

	prompt := fmt.Sprintf(adviceUserPromptTemplate, t.CaloriesIn, t.ProteinG, t.CaloriesOut, t.Budget, t.Balance)
	advice, err := h.llm.CompleteText(ctx, adviceSystemPrompt, prompt)
	if err != nil {
		return "", externalError(err, "model")
	}
	advice = strings.TrimSpace(advice)

	if h.advice != nil && advice != "" {
		h.advice.Set(ctx, key, advice)
	}
	return advice, nil
}

// getDailyAdvice returns short model-written advice for a day plus the totals
// it was based on.
// GET /api/advice/daily?date=YYYY-MM-DD (defaults to today).
func (h *Handler) getDailyAdvice(c *gin.Context) {
	ctx := c.Request.Context()
	date := h.requestDate(c)

	day, err := h.loadDay(ctx, date)
	if err != nil {
		respondError(c, err)
		return
	}
	totals := computeDayTotals(day.Meals, day.Workouts, day.Settings)

	advice, err := h.dailyAdvice(ctx, date, totals)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"advice": advice, "stats": totals})
}
