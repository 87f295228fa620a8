package telegram

import (
	"fmt"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"

	"invoice-bot/src/pkg/config"
)

// Update delivery modes.
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

type Config struct {
	Mode                 string `json:"mode,omitempty"`
	UpdateTimeoutSeconds int    `json:"update_timeout_seconds,omitempty"` // long polling timeout
	WebhookURL           string `json:"webhook_url,omitempty"`            // public URL registered with Telegram
	WebhookPath          string `json:"webhook_path,omitempty"`
	MaxConcurrent        int    `json:"max_concurrent,omitempty"` // requests handled at the same time
}

func DefaultValueConfig() Config {
	return Config{
		Mode:                 ModePolling,
		UpdateTimeoutSeconds: 60,
		WebhookPath:          "/telegram/webhook",
		MaxConcurrent:        32,
	}
}

/*
If local Config is provided - use it. Replace all missing values with default ones.

If not provided - just use defaultConfig.
*/
func InitializeConfig(localConfig *Config) (cfg Config) {
	defaultConfig := DefaultValueConfig()
	if localConfig == nil {
		tl.Log(tl.Info, palette.Purple, "%s config is %s, keeping %s", "telegram", "not provided", "default telegram config")
		return defaultConfig
	}

	cfg = *localConfig
	tl.ApplyDefaults(&cfg, defaultConfig, func(field string, defVal any) {
		tl.Log(
			tl.Info, palette.Purple,
			"%s field is %s in %s configuration. Using default value: %v",
			field, "missing", config.GetPackageName(), tl.PrettyForStderr(defVal),
		)
	})

	tl.Log(tl.Info, palette.Green, "%s config was %s, using %s", "telegram", "provided", "local telegram config")
	tl.LogJSON(tl.Verbose, palette.CyanDim, fmt.Sprintf("%s configuration", config.GetPackageName()), cfg)
	return cfg
}
