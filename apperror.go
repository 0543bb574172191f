package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// errorKind classifies failures so the request boundary can pick a status code
// and a log level without inspecting messages.
type errorKind string

const (
	kindValidation     errorKind = "validation"
	kindUpstreamFormat errorKind = "upstream_format"
	kindNotFound       errorKind = "not_found"
	kindConflict       errorKind = "conflict"
	kindExternal       errorKind = "external_api"
	kindDatabase       errorKind = "database"
	kindInternal       errorKind = "internal"
)

// appError carries a user-facing message plus the underlying cause. Raw holds
// the unparsed model output for upstream-format failures so it can be returned
// for diagnosis.
type appError struct {
	Kind     errorKind
	Message  string
	Internal error
	Raw      string
}

func (e *appError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Kind, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *appError) Unwrap() error {
	return e.Internal
}

// status maps an error kind to its HTTP status code.
func (e *appError) status() int {
	switch e.Kind {
	case kindValidation:
		return http.StatusBadRequest
	case kindNotFound:
		return http.StatusNotFound
	case kindConflict:
		return http.StatusConflict
	case kindUpstreamFormat, kindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func validationError(message string) *appError {
	return &appError{Kind: kindValidation, Message: message}
}

func notFoundError(what string) *appError {
	return &appError{Kind: kindNotFound, Message: what + " not found"}
}

func conflictError(message string) *appError {
	return &appError{Kind: kindConflict, Message: message}
}

func upstreamFormatError(raw string, err error) *appError {
	return &appError{
		Kind:     kindUpstreamFormat,
		Message:  "could not parse the model response, please retry",
		Internal: err,
		Raw:      raw,
	}
}

func externalError(err error, api string) *appError {
	return &appError{Kind: kindExternal, Message: api + " request failed", Internal: err}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// databaseError wraps a store failure. pgx.ErrNoRows becomes a not-found error
// for what, since every caller that can hit it is looking up a single row.
func databaseError(err error, what string) *appError {
	if isNoRows(err) {
		return notFoundError(what)
	}
	return &appError{Kind: kindDatabase, Message: "failed to load or save " + what, Internal: err}
}

// respondError logs err and writes the matching JSON error response. Errors
// that are not *appError are treated as internal.
func respondError(c *gin.Context, err error) {
	var appErr *appError
	if !errors.As(err, &appErr) {
		appErr = &appError{Kind: kindInternal, Message: "internal server error", Internal: err}
	}

	fields := []zap.Field{
		zap.String("error_kind", string(appErr.Kind)),
		zap.String("path", c.FullPath()),
		zap.Error(appErr.Internal),
	}
	switch appErr.Kind {
	case kindValidation, kindNotFound, kindConflict:
		logger.Warn(appErr.Message, fields...)
	default:
		logger.Error(appErr.Message, fields...)
	}

	if appErr.Kind == kindUpstreamFormat {
		c.JSON(appErr.status(), gin.H{"error": appErr.Message, "raw": appErr.Raw})
		return
	}
	apiError(c, appErr.status(), appErr.Message)
}
