package invoice

import (
	"fmt"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"

	"invoice-bot/src/pkg/money"
)

// ItemDefaults are the strings used when an item has no name or details.
type ItemDefaults struct {
	Name    string `json:"name,omitempty"`
	Details string `json:"details,omitempty"`
}

/*
Config controls the rendering of invoices.

Text and document item defaults are separate: the chat summary and the PDF
use different fallbacks for the same missing fields.
*/
type Config struct {
	ResourceRoot         string       `json:"resource_root,omitempty"`
	TemplateFile         string       `json:"template_file,omitempty"`
	LogoFile             string       `json:"logo_file,omitempty"`
	CurrencySuffix       string       `json:"currency_suffix,omitempty"`
	NotRegistered        string       `json:"not_registered,omitempty"`
	Unknown              string       `json:"unknown,omitempty"`
	LogoFallbackHeading  string       `json:"logo_fallback_heading,omitempty"`
	TextItemDefaults     ItemDefaults `json:"text_item_defaults,omitempty"`
	DocumentItemDefaults ItemDefaults `json:"document_item_defaults,omitempty"`
}

func DefaultValueConfig() Config {
	return Config{
		ResourceRoot:         "./resources",
		TemplateFile:         "template.html",
		LogoFile:             "logo.png",
		CurrencySuffix:       money.DefaultCurrencySuffix,
		NotRegistered:        "غير مسجل",
		Unknown:              "N/A",
		LogoFallbackHeading:  "<h2>شعار الشركة</h2>",
		TextItemDefaults:     ItemDefaults{Name: "صنف", Details: "..."},
		DocumentItemDefaults: ItemDefaults{Name: "N/A", Details: "N/A"},
	}
}

/*
InitializeConfig merges a locally provided Config with the defaults.

If localConfig is nil the defaults are returned as is. The merged value is
returned instead of stored globally so every pipeline gets its own copy.
*/
func InitializeConfig(localConfig *Config) (cfg Config) {
	defaultConfig := DefaultValueConfig()
	if localConfig == nil {
		tl.Log(tl.Info, palette.Purple, "%s config is %s, keeping %s", "invoice", "not provided", "default invoice config")
		return defaultConfig
	}

	cfg = *localConfig
	tl.ApplyDefaults(&cfg, defaultConfig, func(field string, defVal any) {
		tl.Log(
			tl.Info, palette.Purple,
			"%s field is %s in %s configuration. Using default value: %v",
			field, "missing", "invoice", tl.PrettyForStderr(defVal),
		)
	})
	// nested defaults are filled per field so a partial override keeps the other string
	cfg.TextItemDefaults = mergeItemDefaults(cfg.TextItemDefaults, defaultConfig.TextItemDefaults)
	cfg.DocumentItemDefaults = mergeItemDefaults(cfg.DocumentItemDefaults, defaultConfig.DocumentItemDefaults)

	tl.Log(tl.Info, palette.Green, "%s config was %s, using %s", "invoice", "provided", "local invoice config")
	tl.LogJSON(tl.Verbose, palette.CyanDim, fmt.Sprintf("%s configuration", "invoice"), cfg)
	return cfg
}

func mergeItemDefaults(local ItemDefaults, fallback ItemDefaults) ItemDefaults {
	return ItemDefaults{
		Name:    orDefault(local.Name, fallback.Name),
		Details: orDefault(local.Details, fallback.Details),
	}
}
