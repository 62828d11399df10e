package backend

import (
	"context"
	"fmt"

	"spendsense/internal/amqp"
	"spendsense/internal/config"
	"spendsense/internal/insight"
	"spendsense/internal/insight/gemini"
	"spendsense/internal/insight/openai"
	"spendsense/internal/log"
	"spendsense/internal/sheets/memory"
	"spendsense/internal/storage"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.WithComponent(log.ComponentApp)
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend builds the report index and, when AMQP is configured, the
// event publisher. A broker that cannot be reached is logged and skipped.
func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var res *BackendResult
	switch cfg.Index {
	case SQLiteIndex:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		res = &BackendResult{Index: repo, Ready: repo.Ping, Cleanup: repo.Close}
		f.logger.Info("Initialized SQLite report index", "db_path", cfg.SQLiteDBPath)
	case MemoryIndex:
		res = &BackendResult{Index: memory.New(), Ready: func(context.Context) error { return nil }}
		f.logger.Info("Initialized memory report index")
	default:
		return nil, fmt.Errorf("unsupported report index: %s", cfg.Index)
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without report events", log.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
			res.Publisher = client
			res.Cleanup = chain(res.Cleanup, client.Close)
		}
	}

	return res, nil
}

// CreateInsight builds the text-generation backend named in cfg.
func (f *DefaultFactory) CreateInsight(ctx context.Context, cfg Config) (*InsightResult, error) {
	switch cfg.Insight {
	case config.InsightOpenAI:
		c, err := openai.New(openai.Config{
			APIKey:  cfg.InsightAPIKey,
			BaseURL: cfg.InsightBaseURL,
			Model:   cfg.InsightModel,
		})
		if err != nil {
			return nil, err
		}
		f.logger.Info("Initialized insight backend", log.FieldBackend, cfg.Insight, log.FieldModel, c.Model())
		return &InsightResult{Generator: c, Name: cfg.Insight}, nil

	case config.InsightGemini:
		c, err := gemini.New(ctx, gemini.Config{APIKey: cfg.InsightAPIKey, Model: cfg.InsightModel})
		if err != nil {
			return nil, err
		}
		f.logger.Info("Initialized insight backend", log.FieldBackend, cfg.Insight, log.FieldModel, c.Model())
		return &InsightResult{Generator: c, Name: cfg.Insight, Cleanup: c.Close}, nil

	case config.InsightNone, "":
		f.logger.Info("Insight backend disabled")
		return &InsightResult{Generator: insight.Disabled{}, Name: config.InsightNone}, nil

	default:
		return nil, fmt.Errorf("unsupported insight backend: %s", cfg.Insight)
	}
}

func chain(fns ...CleanupFunc) CleanupFunc {
	return func() error {
		var first error
		for i := len(fns) - 1; i >= 0; i-- {
			if fns[i] == nil {
				continue
			}
			if err := fns[i](); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
}
