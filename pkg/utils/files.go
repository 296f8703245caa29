package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// TargetExt is the extension given to compiled programs.
const TargetExt = ".bf"

// GetPathInfo resolves relPath to an absolute path and its directory.
func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", errors.Wrapf(err, "resolving %q", relPath)
	}
	return fullPath, filepath.Dir(fullPath), nil
}

// DefaultOutputPath is the input file name with its extension replaced by
// TargetExt, placed in the current directory.
func DefaultOutputPath(inPath string) string {
	base := filepath.Base(inPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + TargetExt
}

// ReadSource loads a source file.
func ReadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading source file %q", path)
	}
	return string(data), nil
}
