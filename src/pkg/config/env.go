package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
)

// Secrets every entrypoint may need. They are never read from the config file.
const (
	EnvBotToken      = "BOT_TOKEN"
	EnvSupabaseURL   = "SUPABASE_URL"
	EnvSupabaseKey   = "SUPABASE_KEY"
	EnvDatabaseURL   = "DATABASE_URL"
	EnvWebhookSecret = "WEBHOOK_SECRET"
)

/*
LoadDotEnv loads variables from the given .env files (./.env when none are given).
Variables already present in the environment are kept.
*/
func LoadDotEnv(paths ...string) {
	loadErr := godotenv.Load(paths...)
	if loadErr != nil {
		tl.Log(tl.Verbose, palette.PurpleDim, ".env file is %s: '%s'", "not loaded", loadErr)
		return
	}
	tl.Log(tl.Verbose, palette.CyanDim, ".env file is %s", "loaded")
}

// MissingEnvVars returns the names from the list that are unset or blank.
func MissingEnvVars(names ...string) (missing []string) {
	for _, name := range names {
		if strings.TrimSpace(os.Getenv(name)) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

/*
CheckIfEnvVarsPresent loads .env and exits(1) if any of the given variables is missing.

Every missing variable is logged before exiting, so one run shows all of them.
*/
func CheckIfEnvVarsPresent(names ...string) {
	LoadDotEnv()

	missing := MissingEnvVars(names...)
	for _, name := range missing {
		tl.Log(tl.Error, palette.RedBold, "%s env var is %s", name, "missing")
	}
	if len(missing) > 0 {
		os.Exit(1)
	}
}
