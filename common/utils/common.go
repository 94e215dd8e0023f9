package utils

import (
	"os"
	"os/user"
	"path"
	"strings"
)

func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		return path.Join(HomeDir(), p[1:])
	}
	return p
}

// FindProjectRoot walks up from startDir until a directory holding go.mod is found.
// startDir is returned when none is.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if _, err := os.Stat(path.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parentDir := path.Dir(dir)
		if parentDir == dir {
			return startDir
		}
		dir = parentDir
	}
}
