package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Resolves ../ and cleans the path
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}
	parentDir = filepath.Dir(fullPath)
	return fullPath, parentDir, nil
}

// ReadSource reads a whole source file. The returned name is the absolute
// path, for use in diagnostics.
func ReadSource(path string) (name string, src []byte, err error) {
	name, _, err = GetPathInfo(path)
	if err != nil {
		return "", nil, err
	}
	info, err := os.Stat(name)
	if err != nil {
		return "", nil, err
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("%s is a directory", path)
	}
	src, err = os.ReadFile(name)
	if err != nil {
		return "", nil, err
	}
	return name, src, nil
}
