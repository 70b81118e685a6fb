package config

import (
	"fmt"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
)

/*
Apply is the shared body of every package's InitializeConfig.

If localConfig is nil the package keeps its defaults. Otherwise target is
replaced with *localConfig and every missing field is filled from
defaultConfig, logging each substitution.
*/
func Apply[T any](packageName string, target *T, localConfig *T, defaultConfig T) {
	if localConfig == nil {
		tl.Log(tl.Info, palette.Purple, "%s config is %s, keeping %s", packageName, "not provided", "default "+packageName+" config")
		return
	}

	*target = *localConfig

	tl.ApplyDefaults(target, defaultConfig, func(field string, defVal any) {
		tl.Log(
			tl.Info, palette.Purple,
			"%s field is %s in %s configuration. Using default value: %v",
			field, "missing", packageName, tl.PrettyForStderr(defVal),
		)
	})

	tl.Log(tl.Info, palette.Green, "%s config was %s, using %s", packageName, "provided", "local "+packageName+" config")
	tl.LogJSON(tl.Verbose, palette.CyanDim, fmt.Sprintf("%s configuration", packageName), *target)
}
