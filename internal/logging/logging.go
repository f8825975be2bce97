package logging

import (
	"go.uber.org/zap"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/config"
)

// New builds the process logger and routes the standard library logger
// through it, so every log.Printf line in the service is emitted by zap.
// The returned func restores the standard logger and flushes buffered entries.
func New(cfg config.Config) (*zap.Logger, func(), error) {
	var logger *zap.Logger
	var err error
	if cfg.LogFormat == "console" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, err
	}
	logger = logger.With(zap.String("service", cfg.ServiceName))

	restore := zap.RedirectStdLog(logger)
	return logger, func() {
		restore()
		_ = logger.Sync()
	}, nil
}
