package main

import (
	"go.uber.org/zap"
)

// logger is the process-wide structured logger. It stays a no-op until
// initLogger runs, so tests can exercise handlers without any setup.
var logger = zap.NewNop()

// initLogger swaps in a production (JSON) logger when env is "production" and a
// human-readable development logger otherwise.
func initLogger(env string) error {
	var (
		l   *zap.Logger
		err error
	)
	if env == "production" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// syncLogger flushes buffered entries; call it before exit.
func syncLogger() {
	_ = logger.Sync()
}
