package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

func TestAppErrorStatus(t *testing.T) {
	cases := []struct {
		err  *appError
		want int
	}{
		{validationError("bad"), http.StatusBadRequest},
		{notFoundError("meal"), http.StatusNotFound},
		{conflictError("retry"), http.StatusConflict},
		{upstreamFormatError("raw", errors.New("parse")), http.StatusBadGateway},
		{externalError(errors.New("timeout"), "model"), http.StatusBadGateway},
		{databaseError(errors.New("conn reset"), "meal"), http.StatusInternalServerError},
		{&appError{Kind: kindInternal}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.err.Kind), func(t *testing.T) {
			if got := tc.err.status(); got != tc.want {
				t.Errorf("status = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestDatabaseError_NoRowsIsNotFound(t *testing.T) {
	err := databaseError(fmt.Errorf("scan: %w", pgx.ErrNoRows), "weight entry")
	if err.Kind != kindNotFound {
		t.Fatalf("expected not_found, got %s", err.Kind)
	}
	if err.Message != "weight entry not found" {
		t.Errorf("unexpected message %q", err.Message)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("handler: %w", externalError(cause, "model"))
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
	var appErr *appError
	if !errors.As(err, &appErr) || appErr.Kind != kindExternal {
		t.Errorf("expected errors.As to find the appError, got %v", err)
	}
}

func respondWith(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", func(c *gin.Context) { respondError(c, err) })
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	return w
}

func TestRespondError(t *testing.T) {
	t.Run("upstream format includes raw", func(t *testing.T) {
		w := respondWith(upstreamFormatError("not json", errors.New("invalid character")))
		if w.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", w.Code)
		}
		var resp map[string]string
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp["raw"] != "not json" {
			t.Errorf("expected raw in body, got %v", resp)
		}
	})

	t.Run("validation has no raw", func(t *testing.T) {
		w := respondWith(validationError("weightKg or weightJin is required"))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		var resp map[string]string
		json.Unmarshal(w.Body.Bytes(), &resp)
		if _, ok := resp["raw"]; ok {
			t.Error("unexpected raw field")
		}
		if resp["error"] != "weightKg or weightJin is required" {
			t.Errorf("unexpected error %q", resp["error"])
		}
	})

	t.Run("plain errors are internal and hide details", func(t *testing.T) {
		w := respondWith(errors.New("secret connection string"))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
		var resp map[string]string
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp["error"] != "internal server error" {
			t.Errorf("unexpected error %q", resp["error"])
		}
	})
}
