package tools

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ecopia-map/geotile_transform/internal/tiler"
)

// pointSourceExtension is the only point source format this pipeline
// reads: a headed CSV file (see internal/pointsource).
const pointSourceExtension = ".csv"

// FileFinder resolves a TilerOptions' Input into the concrete list of
// point source files a run must process.
type FileFinder interface {
	GetPointFilesToProcess(opts *tiler.TilerOptions) []string
}

type StandardFileFinder struct{}

func NewStandardFileFinder() FileFinder {
	return &StandardFileFinder{}
}

// GetPointFilesToProcess returns opts.Input itself unless FolderProcessing
// is set, in which case it walks the folder (recursing into subfolders
// only if Recursive is set) collecting every .csv file found.
func (f *StandardFileFinder) GetPointFilesToProcess(opts *tiler.TilerOptions) []string {
	if !opts.FolderProcessing {
		return []string{opts.Input}
	}

	return f.getPointFilesFromInputFolder(opts)
}

func (f *StandardFileFinder) getPointFilesFromInputFolder(opts *tiler.TilerOptions) []string {
	var files = make([]string, 0)

	baseInfo, _ := os.Stat(opts.Input)
	err := filepath.Walk(
		opts.Input,
		func(path string, info os.FileInfo, err error) error {
			if info.IsDir() && !opts.Recursive && !os.SameFile(info, baseInfo) {
				return filepath.SkipDir
			} else {
				if strings.ToLower(filepath.Ext(info.Name())) == pointSourceExtension {
					files = append(files, path)
				}
			}
			return nil
		},
	)

	if err != nil {
		log.Fatal(err)
	}

	return files
}
