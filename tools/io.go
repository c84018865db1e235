// Package tools holds small, dependency-free helpers shared across the
// command layer and the exporters: filesystem plumbing, CLI flag
// definitions, and the top-level LogOutput channel.
package tools

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/golang/glog"
)

// OpenFileOrFail opens filePath or aborts the process, for call sites
// that have no recovery path short of exiting (e.g. a Draco encoder
// input file the caller just wrote itself).
func OpenFileOrFail(filePath string) *os.File {
	file, err := os.Open(filePath)
	if err != nil {
		glog.Fatal(err)
	}

	return file
}

// GetRootFolder resolves the directory this binary lives in (under
// `go test`, the module root one level above this package), used as the base for locating
// bundled assets the CLI flags don't override explicitly.
func GetRootFolder() string {
	assetsFromEnv := os.Getenv("GEOTILE_TRANSFORM_WORKDIR")
	if assetsFromEnv != "" {
		return assetsFromEnv
	} else if strings.HasSuffix(os.Args[0], ".test") || strings.HasSuffix(os.Args[0], ".test.exe") {
		_, b, _, _ := runtime.Caller(0)
		return filepath.Dir(filepath.Dir(b))
	} else {
		ex, err := os.Executable()
		if err != nil {
			glog.Fatal("cannot retrieve executable directory", err)
		}
		return filepath.Dir(ex)
	}
}

// CreateDirectoryIfDoesNotExist makes directory, including any missing
// parents, unless it already exists.
func CreateDirectoryIfDoesNotExist(directory string) error {
	if _, err := os.Stat(directory); os.IsNotExist(err) {
		err := os.MkdirAll(directory, 0777)
		if err != nil {
			return err
		}
	}
	return nil
}
