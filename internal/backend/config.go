package backend

import (
	"fmt"

	"spendsense/internal/config"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	index := IndexType(appConfig.ReportIndex)
	if !index.IsValid() {
		return Config{}, fmt.Errorf("invalid report index in config: %s", appConfig.ReportIndex)
	}

	return Config{
		Index: index,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		Insight:        appConfig.InsightBackend,
		InsightAPIKey:  appConfig.InsightAPIKey,
		InsightBaseURL: appConfig.InsightBaseURL,
		InsightModel:   appConfig.InsightModel,
	}, nil
}

func (c Config) Validate() error {
	if !c.Index.IsValid() {
		return fmt.Errorf("invalid report index: %s", c.Index)
	}
	if c.Index == SQLiteIndex && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite report index")
	}
	// AMQP is optional.

	switch c.Insight {
	case config.InsightNone, "":
	case config.InsightOpenAI, config.InsightGemini:
		if c.InsightAPIKey == "" {
			return fmt.Errorf("API key is required for the %s insight backend", c.Insight)
		}
	default:
		return fmt.Errorf("invalid insight backend: %s", c.Insight)
	}
	return nil
}

// GetIndexTypeStrings returns all valid report index names.
func GetIndexTypeStrings() []string {
	return []string{SQLiteIndex.String(), MemoryIndex.String()}
}
