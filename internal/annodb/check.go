package annodb

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/annodb/loader"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/dbfile"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
)

// Problem is one failed check of a database file.
type Problem struct {
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
	Err  string `json:"error"`
}

func familyOf(name string) dbfile.Family {
	switch {
	case strings.HasPrefix(name, "background."):
		return dbfile.FamilyBackground
	case name == "pathogenic":
		return dbfile.FamilyPathogenic
	case strings.HasPrefix(name, "tads."):
		return dbfile.FamilyTAD
	case name == "clinvarSv":
		return dbfile.FamilyClinvarSV
	case name == "genes.xlink":
		return dbfile.FamilyXlink
	default:
		return dbfile.FamilyGeneRegion
	}
}

// Check validates every database of paths without indexing it. Manifest
// mismatches are reported first, then each binary file is opened as its
// family and its record checksum recomputed. Text files are only checked for
// presence.
func Check(paths config.ReleasePaths) ([]Problem, error) {
	var problems []Problem
	if paths.Manifest != "" {
		bad, err := dbfile.VerifyManifest(paths.Manifest)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrConfig, err)
		}
		for _, m := range bad {
			problems = append(problems, Problem{Name: "manifest", Path: m.Name, Err: m.String()})
		}
	}

	files := paths.Files()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := checkFile(files[name], familyOf(name)); err != nil {
			problems = append(problems, Problem{Name: name, Path: files[name], Err: err.Error()})
		}
	}
	return problems, nil
}

func checkFile(path string, family dbfile.Family) error {
	if path == "" {
		return fmt.Errorf("no path configured")
	}
	if loader.IsText(path) {
		_, err := os.Stat(path)
		return err
	}
	f, err := dbfile.Open(path, family)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.VerifyChecksum()
}

// WriteManifest records the digests of every database of paths in
// paths.Manifest.
func WriteManifest(paths config.ReleasePaths) error {
	if paths.Manifest == "" {
		return fmt.Errorf("%w: no manifest path configured", apperrors.ErrConfig)
	}
	files := make([]string, 0, len(paths.Files()))
	for _, p := range paths.Files() {
		files = append(files, p)
	}
	sort.Strings(files)
	return dbfile.WriteManifest(paths.Manifest, files)
}
