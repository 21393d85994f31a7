package session

import (
	"fmt"
	"regexp"

	"github.com/dalmofelipe/zapzap/internal/config"
)

// DefaultProfile is used when neither the flag nor the config names one.
const DefaultProfile = "main"

var profileRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// Resolve determines the active profile name using precedence:
// flag override, then config.toml default_profile, then "main".
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	cfg, err := config.Load(ConfigPath())
	if err == nil && cfg.DefaultProfile != "" {
		return cfg.DefaultProfile
	}
	return DefaultProfile
}

// ValidateName checks that name conforms to profile naming rules.
func ValidateName(name string) error {
	if !profileRegexp.MatchString(name) {
		return fmt.Errorf("invalid profile name %q: must match ^[a-z0-9_-]{1,64}$", name)
	}
	return nil
}
