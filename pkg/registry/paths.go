package registry

import (
	"os"
	"path/filepath"
)

// dirOf returns p itself when it names a directory, otherwise its parent.
func dirOf(p string) string {
	if p == "" {
		return ""
	}
	if fi, err := os.Stat(p); err == nil && fi.IsDir() {
		return p
	}
	return filepath.Dir(p)
}
