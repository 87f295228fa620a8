// Package store retrieves invoice header and item rows from the backing store.
package store

import (
	"context"
	"fmt"
	"os"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"invoice-bot/src/pkg/config"
	"invoice-bot/src/pkg/invoice"
)

// Backends selectable with the "backend" config field.
const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

/*
Retriever is the retrieval collaborator of the pipeline.

FetchHeader reports found=false when no header row matches the id.
FetchItems returns the item rows in retrieval order, possibly none.
*/
type Retriever interface {
	FetchHeader(ctx context.Context, invoiceID int64) (header invoice.Record, found bool, e *xerr.Error)
	FetchItems(ctx context.Context, invoiceID int64) (items []invoice.Record, e *xerr.Error)
}

type Config struct {
	Backend        string `json:"backend,omitempty"`
	HeaderTable    string `json:"header_table,omitempty"`
	ItemsTable     string `json:"items_table,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
	FixturePath    string `json:"fixture_path,omitempty"` // memory backend only
}

func DefaultValueConfig() Config {
	return Config{
		Backend:        BackendREST,
		HeaderTable:    "invoices",
		ItemsTable:     "invoice_items",
		TimeoutSeconds: 15,
		FixturePath:    "./resources/fixture.json",
	}
}

/*
If local Config is provided - use it. Replace all missing values with default ones.

If not provided - just use defaultConfig.
*/
func InitializeConfig(localConfig *Config) (cfg Config) {
	defaultConfig := DefaultValueConfig()
	if localConfig == nil {
		tl.Log(tl.Info, palette.Purple, "%s config is %s, keeping %s", "store", "not provided", "default store config")
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

	tl.Log(tl.Info, palette.Green, "%s config was %s, using %s", "store", "provided", "local store config")
	tl.LogJSON(tl.Verbose, palette.CyanDim, fmt.Sprintf("%s configuration", config.GetPackageName()), cfg)
	return cfg
}

// RequiredEnvVars lists the secrets a backend needs before it can be built.
func RequiredEnvVars(backend string) []string {
	switch backend {
	case BackendREST:
		return []string{config.EnvSupabaseURL, config.EnvSupabaseKey}
	case BackendPostgres:
		return []string{config.EnvDatabaseURL}
	default:
		return nil
	}
}

/*
New builds the Retriever selected by cfg.Backend, reading its secrets from env.

Env vars are expected to be checked with config.CheckIfEnvVarsPresent first.
*/
func New(ctx context.Context, cfg Config) (retriever Retriever, e *xerr.Error) {
	tl.Log(tl.Info, palette.Blue, "Building %s store with backend '%s'", "invoice", cfg.Backend)

	switch cfg.Backend {
	case BackendREST:
		retriever = NewRESTClient(os.Getenv(config.EnvSupabaseURL), os.Getenv(config.EnvSupabaseKey), cfg)
	case BackendPostgres:
		retriever, e = OpenPostgres(ctx, os.Getenv(config.EnvDatabaseURL), cfg)
	case BackendMemory:
		retriever, e = LoadFixture(cfg.FixturePath)
	default:
		e = xerr.NewError(fmt.Errorf("backend is '%s'", cfg.Backend), "unknown store backend", []string{BackendREST, BackendPostgres, BackendMemory})
	}
	if e != nil {
		return nil, e
	}

	tl.Log(tl.Info1, palette.Green, "Built %s store with backend '%s'", "invoice", cfg.Backend)
	return retriever, nil
}
