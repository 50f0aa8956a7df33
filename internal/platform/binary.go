package platform

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// FindBinary resolves an executable. A value containing a path separator is
// checked as-is; a bare name is searched on PATH.
func FindBinary(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("binary name is empty")
	}
	if strings.ContainsAny(name, `/\`) {
		if isExecutable(name) {
			return name, nil
		}
		return "", fmt.Errorf("binary %s not found or not executable", name)
	}

	// LookPath already verifies executability
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("binary %s not found", name)
}

// isExecutable checks if a file exists and is executable by the current user.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	// Any of owner/group/other
	return info.Mode()&0111 != 0
}
