package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Handler holds shared dependencies (db pool, model client, cache) for all route handlers.
type Handler struct {
	db     *pgxpool.Pool
	llm    completer
	advice adviceCache     // nil disables advice caching
	now    func() time.Time // overridable for tests
}

func newHandler(db *pgxpool.Pool, llm completer, advice adviceCache) *Handler {
	return &Handler{db: db, llm: llm, advice: advice, now: time.Now}
}

/* ─── Database helpers ────────────────────────────────────────────────── */

// queryOne runs a query and scans the first row into T using RowToStructByName.
// Logs query and scan errors for debugging (e.g. struct/column mismatches).
func queryOne[T any](pool *pgxpool.Pool, ctx context.Context, sql string, args pgx.NamedArgs) (T, error) {
	rows, err := pool.Query(ctx, sql, args)
	if err != nil {
		logger.Debug("queryOne: query error", zap.Error(err))
		var zero T
		return zero, err
	}
	result, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if err != nil {
		logger.Debug("queryOne: scan error", zap.Error(err))
	}
	return result, err
}

// queryMany runs a query and scans all rows into []T using RowToStructByName.
// Never returns a nil slice on success so JSON encodes [] rather than null.
func queryMany[T any](pool *pgxpool.Pool, ctx context.Context, sql string, args pgx.NamedArgs) ([]T, error) {
	rows, err := pool.Query(ctx, sql, args)
	if err != nil {
		logger.Debug("queryMany: query error", zap.Error(err))
		return nil, err
	}
	results, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		logger.Debug("queryMany: scan error", zap.Error(err))
		return nil, err
	}
	if results == nil {
		results = []T{}
	}
	return results, nil
}

// pathID reads the :id route param. An id that is not a positive integer
// cannot name a row, so it is reported as not found.
func pathID(c *gin.Context, what string) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, notFoundError(what)
	}
	return id, nil
}

// apiError returns a consistent JSON error response: {"error": "message"}.
func apiError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

/* ─── Server setup ────────────────────────────────────────────────────── */

// getDBPool creates a connection pool. We use a pool (not a single conn) because
// serverless Postgres closes idle connections after a few minutes.
func getDBPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse DB URL: %w", err)
	}
	// Use simple query protocol to avoid "cached plan must not change result type"
	// errors from server-side prepared statement caches after schema changes.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// registerRoutes registers all API routes on the router.
func (h *Handler) registerRoutes(router *gin.Engine) {
	// Public routes
	router.POST("/api/login", h.login)

	// Authenticated routes
	api := router.Group("/api", h.authMiddleware())
	h.registerAPIRoutes(api)
}

// registerAPIRoutes attaches the authenticated routes to group. Split out so
// tests can mount them behind a stub auth middleware.
func (h *Handler) registerAPIRoutes(api *gin.RouterGroup) {
	api.GET("/settings", h.getSettings)
	api.PATCH("/settings", h.patchSettings)

	api.GET("/meals", h.listMeals)
	api.POST("/meals/analyze", h.analyzeMeal)
	api.PATCH("/meals/:id/revise", h.reviseMeal)
	api.PATCH("/meals/:id", h.patchMeal)
	api.DELETE("/meals/:id", h.deleteMeal)

	api.GET("/workouts", h.listWorkouts)
	api.POST("/workouts", h.createWorkout)
	api.PATCH("/workouts/:id", h.patchWorkout)
	api.DELETE("/workouts/:id", h.deleteWorkout)

	api.GET("/weight", h.getWeightLog)
	api.POST("/weight", h.upsertWeightEntry)
	api.PUT("/weight/:id", h.updateWeightEntry)
	api.DELETE("/weight/:id", h.deleteWeightEntry)

	api.GET("/summary/daily", h.getDailySummary)
	api.GET("/summary/progress", h.getProgress)
	api.GET("/advice/daily", h.getDailyAdvice)
	api.POST("/plan/weekly-adjust", h.weeklyAdjust)
}
