package main

import (
	stdlog "log"

	"github.com/shaitools891-svg/ME-Dictionary/internal/logger"
)

// newStdLogger routes net/http's internal errors into the structured logger
func newStdLogger(l logger.Logger) *stdlog.Logger {
	return stdlog.New(logger.NewWriter(l, logger.LevelWarn), "", 0)
}
