package logger

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	gethlog "github.com/ethereum/go-ethereum/log"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger: JSON to stdout, plus file when given.
func New(level, file string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout"}
	if file != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, file)
	}
	return cfg.Build()
}

// Install routes log/slog and go-ethereum's logger into zapLogger.
func Install(zapLogger *zap.Logger) {
	handler := zapslog.NewHandler(zapLogger.Core(), zapslog.WithName("geth"))
	gethlog.SetDefault(gethlog.NewLogger(handler))

	stdHandler := zapslog.NewHandler(zapLogger.Core())
	slog.SetDefault(slog.New(stdHandler))
}

// Fallback is used before configuration is loaded.
func Fallback() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize zap logger: %v\n", err)
		return zap.NewNop()
	}
	return l
}
