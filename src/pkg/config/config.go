package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

/*
File is the raw shape of ./cfg/config.json.

Every package owns its section and decodes it with Section[T]; this package
never imports the packages it configures.
*/
type File struct {
	Sections map[string]json.RawMessage `json:"-"`
}

var (
	mu     sync.RWMutex
	loaded File
	path   string
)

/*
InitializeConfig loads the JSON configuration file at configPath.

.env files next to the working directory are loaded first so that secrets
referenced by the config (and checked by CheckIfEnvVarsPresent) are visible.
A missing config file is not fatal: every package falls back to its defaults.
*/
func InitializeConfig(configPath string) {
	LoadEnvFiles()

	mu.Lock()
	defer mu.Unlock()

	path = configPath
	loaded = File{Sections: map[string]json.RawMessage{}}

	fileBytes, readErr := os.ReadFile(configPath)
	if readErr != nil {
		tl.Log(tl.Warning, palette.Purple, "Config file '%s' is %s, using %s", configPath, "not readable", "default values")
		return
	}

	e := parseSections(fileBytes, &loaded)
	e.QuitIf(xerr.ErrorTypeError)

	tl.Log(tl.Info1, palette.Green, "Loaded config '%s' with '%v' sections", configPath, len(loaded.Sections))
}

func parseSections(fileBytes []byte, into *File) (e *xerr.Error) {
	sections := map[string]json.RawMessage{}
	err := json.Unmarshal(fileBytes, &sections)
	if err != nil {
		return xerr.NewError(err, "unable to parse config file as JSON object", string(fileBytes))
	}
	into.Sections = sections
	return nil
}

/*
Section decodes the named config section into a new *T.

Returns nil when the section is absent, which every package's
InitializeConfig treats as "keep defaults".
*/
func Section[T any](name string) (section *T, e *xerr.Error) {
	mu.RLock()
	raw, exists := loaded.Sections[name]
	mu.RUnlock()
	if !exists {
		return nil, nil
	}

	section = new(T)
	err := json.Unmarshal(raw, section)
	if err != nil {
		return nil, xerr.NewError(err, fmt.Sprintf("unable to decode config section '%s'", name), path)
	}
	return section, nil
}

// LoadFromBytes replaces the loaded configuration. Used by tests and by
// callers that embed their configuration.
func LoadFromBytes(fileBytes []byte) (e *xerr.Error) {
	mu.Lock()
	defer mu.Unlock()
	path = "<memory>"
	return parseSections(fileBytes, &loaded)
}

/*
LoadEnvFiles loads .env.local and .env if present. Existing environment
variables always win over file values.
*/
func LoadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		if _, statErr := os.Stat(envFile); statErr != nil {
			continue
		}
		err := godotenv.Load(envFile)
		if err != nil {
			tl.Log(tl.Warning, palette.Yellow, "Unable to load env file '%s': %s", envFile, err)
			continue
		}
		tl.Log(tl.Verbose, palette.CyanDim, "Loaded env file '%s'", envFile)
	}
}

/*
CheckIfEnvVarsPresent exits with status 1 if any of the named environment
variables is empty. All missing names are logged before exiting.
*/
func CheckIfEnvVarsPresent(names ...string) {
	LoadEnvFiles()

	missing := MissingEnvVars(names...)
	for _, name := range missing {
		tl.Log(tl.Error, palette.RedBold, "Environment variable '%s' is %s", name, "not set")
	}
	if len(missing) > 0 {
		os.Exit(1)
	}
}

// MissingEnvVars returns the names whose environment value is empty.
func MissingEnvVars(names ...string) (missing []string) {
	for _, name := range names {
		if strings.TrimSpace(os.Getenv(name)) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

/*
GetPackageName returns the short name of the calling function's package,
e.g. "echomw" when called from src/pkg/echo-middleware.
*/
func GetPackageName() string {
	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return "unknown"
	}
	return packageFromFuncName(runtime.FuncForPC(pc).Name())
}

// "receipt-impact/src/pkg/ocr.InitializeConfig.func1" -> "ocr"
func packageFromFuncName(funcName string) string {
	lastSlash := strings.LastIndex(funcName, "/")
	rest := funcName[lastSlash+1:]
	dot := strings.Index(rest, ".")
	if dot < 0 {
		return rest
	}
	return rest[:dot]
}
