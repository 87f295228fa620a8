package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

/*
File is the parsed config file. Every top level key is one package section,
kept raw until that package asks for it with Section.

Example:

	{
	  "invoice":  {"resource_root": "./resources"},
	  "store":    {"backend": "rest"},
	  "telegram": {"mode": "polling"}
	}
*/
type File map[string]json.RawMessage

var (
	mu  sync.RWMutex
	Cfg = File{} // sections of the last loaded config file
)

/*
InitializeConfig reads the JSON config file at configPath into Cfg.

A missing file is not an error: every package then keeps its default config.
*/
func InitializeConfig(configPath string) (e *xerr.Error) {
	configBytes, readErr := os.ReadFile(configPath)
	if os.IsNotExist(readErr) {
		tl.Log(tl.Warning, palette.Yellow, "Config file '%s' is %s, every package keeps its %s", configPath, "missing", "default config")
		setSections(File{})
		return nil
	}
	if readErr != nil {
		e = xerr.NewError(readErr, "read config file", configPath)
		return e
	}

	sections := File{}
	unmarshalErr := json.Unmarshal(configBytes, &sections)
	if unmarshalErr != nil {
		e = xerr.NewError(unmarshalErr, "unmarshal config file", configPath)
		return e
	}

	setSections(sections)
	tl.Log(tl.Info, palette.Green, "Loaded config file '%s' with %d sections", configPath, len(sections))
	return nil
}

func setSections(sections File) {
	mu.Lock()
	defer mu.Unlock()
	Cfg = sections
}

/*
Section decodes one section of the loaded config file into a new T.

It returns nil (and no error) when the section is absent, which the package
InitializeConfig functions read as "use the defaults".
*/
func Section[T any](name string) (local *T, e *xerr.Error) {
	mu.RLock()
	raw, exists := Cfg[name]
	mu.RUnlock()

	if !exists || len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	local = new(T)
	unmarshalErr := json.Unmarshal(raw, local)
	if unmarshalErr != nil {
		e = xerr.NewError(unmarshalErr, "unmarshal config section", name)
		return nil, e
	}
	return local, nil
}

/*
GetPackageName returns the directory name of the package that called it.

Example, called from invoice-bot/src/pkg/echo-middleware:

	"echo-middleware"
*/
func GetPackageName() string {
	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return "unknown"
	}
	function := runtime.FuncForPC(pc)
	if function == nil {
		return "unknown"
	}
	return packageFromFunctionName(function.Name())
}

func packageFromFunctionName(functionName string) string {
	lastSlash := strings.LastIndex(functionName, "/")
	rest := functionName[lastSlash+1:]
	firstDot := strings.Index(rest, ".")
	if firstDot < 0 {
		return rest
	}
	return rest[:firstDot]
}

/*
Describe renders the loaded sections for a startup log line.
*/
func Describe() string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(Cfg))
	for name := range Cfg {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("[%s]", strings.Join(names, ", "))
}
