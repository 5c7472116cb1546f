package chatreply

import (
	"time"

	"loan-assistant/internal/common/config"
)

type Config struct {
	Timeout          time.Duration
	MaxMessageLength int
}

func LoadConfig(cfg *config.Config) *Config {
	wcfg := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		Timeout:          config.GetDuration(wcfg.Timeout),
		MaxMessageLength: cfg.Server.MaxMessageLength,
	}
}
