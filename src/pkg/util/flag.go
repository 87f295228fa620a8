package util

import (
	"os"
	"sort"
	"strings"
	"sync"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
)

var (
	requiredFlagsMu sync.Mutex
	requiredFlags   = map[*string]string{}
)

// RequiredFlag(idPtr, "--id"), "-id" and "id" are accepted too.
func RequiredFlag(flagPointer *string, cliName string) {
	requiredFlagsMu.Lock()
	defer requiredFlagsMu.Unlock()
	requiredFlags[flagPointer] = normalizeFlagName(cliName)
}

func normalizeFlagName(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "--") {
		return s
	}
	if strings.HasPrefix(s, "-") {
		// single dash → double dash
		return "-" + s
	}
	return "--" + s
}

// MissingFlags returns the sorted names of required flags that are still blank.
func MissingFlags() (missing []string) {
	requiredFlagsMu.Lock()
	defer requiredFlagsMu.Unlock()

	for flagPointer, cliName := range requiredFlags {
		if flagPointer == nil || strings.TrimSpace(*flagPointer) == "" {
			missing = append(missing, cliName)
		}
	}
	sort.Strings(missing)
	return missing
}

// EnsureFlags logs every missing required flag and exits(1) if any were missing.
func EnsureFlags() {
	missing := MissingFlags()
	for _, cliName := range missing {
		tl.Log(tl.Warning, palette.YellowBold, "%s parameter is %s", cliName, "required")
	}
	if len(missing) > 0 {
		os.Exit(1)
	}
}
