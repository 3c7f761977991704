package paths

import (
	"os"

	"github.com/mitchellh/go-homedir"
)

// wallet home defaults
const HomePathVar = "SYSWEB3_PATH"
const defaultHomeDir = "~/.sysweb3"

// GetRepoPath returns the wallet home from a potential override string,
// the SYSWEB3_PATH environment variable and a default of ~/.sysweb3.
func GetRepoPath(override string) (string, error) {
	// override is first precedence
	if override != "" {
		return homedir.Expand(override)
	}
	// Environment variable is second precedence
	envRepoDir := os.Getenv(HomePathVar)
	if envRepoDir != "" {
		return homedir.Expand(envRepoDir)
	}
	// Default is third precedence
	return homedir.Expand(defaultHomeDir)
}
