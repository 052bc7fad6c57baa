package out

import (
	"os"

	extout "extman/internal/modules/extension/port/out"
)

// OSEnvSource resolves env_keys from the process environment.
type OSEnvSource struct{}

func NewOSEnvSource() extout.EnvSource {
	return OSEnvSource{}
}

func (OSEnvSource) Lookup(name string) (string, bool) {
	return os.LookupEnv(name)
}
