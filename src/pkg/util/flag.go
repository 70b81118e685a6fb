package util

import (
	"os"
	"strings"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
)

type requiredFlag struct {
	value *string
	name  string
}

var requiredFlags []requiredFlag

// RequiredFlag marks a string flag as mandatory; "image", "-image" and "--image" all work.
func RequiredFlag(flagPointer *string, cliName string) {
	requiredFlags = append(requiredFlags, requiredFlag{value: flagPointer, name: normalizeFlagName(cliName)})
}

func normalizeFlagName(s string) string {
	return "--" + strings.TrimLeft(strings.TrimSpace(s), "-")
}

// MissingFlags lists the required flags left empty, in the order they were registered.
func MissingFlags() (missing []string) {
	for _, f := range requiredFlags {
		if f.value == nil || strings.TrimSpace(*f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// EnsureFlags logs every missing required flag and exits(1) if any were missing.
func EnsureFlags() {
	missing := MissingFlags()
	for _, name := range missing {
		tl.Log(tl.Warning, palette.YellowBold, "%s parameter is %s", name, "required")
	}
	if len(missing) > 0 {
		os.Exit(1)
	}
}
