package cmds

import (
	"context"
	"coopcount/internal/backends"
	"coopcount/internal/counter"
	"coopcount/internal/detect"
	"coopcount/internal/history"
	"coopcount/internal/ports"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	HistoryKeyEnvKey = "HISTORY_KEY"
	LogLevelKey      = "LOG_LEVEL"
	LogFormatKey     = "LOG_FORMAT"
)

// App holds the wired dependencies shared by every command.
type App struct {
	KV      ports.KVStore
	History *history.Store
	Counter *counter.Counter
}

// NewApp wires the history backend, the detector and the optional event publisher from the environment.
func NewApp(ctx context.Context) (*App, error) {
	kv, err := backends.KVBackendFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("init history backend: %w", err)
	}
	cfg, err := detect.ConfigFromEnv()
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	publisher, err := backends.PublisherFromEnv(ctx)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("init publisher: %w", err)
	}

	h := history.NewStore(kv, os.Getenv(HistoryKeyEnvKey))
	var opts []counter.Option
	if publisher != nil {
		opts = append(opts, counter.WithPublisher(publisher))
	}
	return &App{
		KV:      kv,
		History: h,
		Counter: counter.New(h, detect.FromEnv(cfg), cfg, opts...),
	}, nil
}

func (a *App) Close() error {
	return a.KV.Close()
}

// SetupLogging applies LOG_LEVEL and LOG_FORMAT to the global logger.
func SetupLogging() {
	if strings.EqualFold(os.Getenv(LogFormatKey), "json") {
		log.SetFormatter(&log.JSONFormatter{})
	}
	level, err := log.ParseLevel(os.Getenv(LogLevelKey))
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
