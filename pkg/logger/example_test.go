package logger_test

import (
	"errors"

	"github.com/wonny/signalscreen/backend/pkg/config"
	"github.com/wonny/signalscreen/backend/pkg/logger"
)

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	log := logger.New(&config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	})

	log.WithComponent("screener").
		WithFields(map[string]interface{}{
			"universe": "sp500",
			"tickers":  503,
		}).
		Info("Scan started")

	log.WithError(errors.New("rate limited")).
		WithField("ticker", "MSFT").
		Warn("Headline fetch failed")
}
