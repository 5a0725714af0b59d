package dbfile

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/mmap"
)

// ManifestEntry is one "<sha256>  <file>" line of a checksum manifest. Names
// are relative to the manifest's directory.
type ManifestEntry struct {
	Digest string
	Name   string
}

// Mismatch describes a manifest entry whose file does not match.
type Mismatch struct {
	Name string
	Want string
	Got  string
	Err  error
}

func (m Mismatch) String() string {
	if m.Err != nil {
		return fmt.Sprintf("%s: %v", m.Name, m.Err)
	}
	return fmt.Sprintf("%s: sha256 %s, manifest says %s", m.Name, m.Got, m.Want)
}

// Checksum returns the hex sha256 of the file at path.
func Checksum(path string) (string, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return "", fmt.Errorf("mapping %s: %w", path, err)
	}
	defer r.Close()
	h := sha256.New()
	if _, err := io.Copy(h, io.NewSectionReader(r, 0, int64(r.Len()))); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func ReadManifest(path string) ([]ManifestEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	var entries []ManifestEntry
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 || len(fields[0]) != sha256.Size*2 {
			return nil, fmt.Errorf("manifest %s line %d: malformed entry %q", path, line, text)
		}
		entries = append(entries, ManifestEntry{
			Digest: strings.ToLower(fields[0]),
			Name:   strings.TrimPrefix(fields[1], "*"),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return entries, nil
}

// WriteManifest hashes files and writes a manifest at path naming them
// relative to the manifest's directory.
func WriteManifest(path string, files []string) error {
	dir := filepath.Dir(path)
	var b strings.Builder
	for _, file := range files {
		sum, err := Checksum(file)
		if err != nil {
			return err
		}
		name, err := filepath.Rel(dir, file)
		if err != nil {
			name = file
		}
		fmt.Fprintf(&b, "%s  %s\n", sum, filepath.ToSlash(name))
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// VerifyManifest checks every file the manifest lists and returns the ones
// that are missing or differ. The error is non-nil only when the manifest
// itself cannot be read.
func VerifyManifest(path string) ([]Mismatch, error) {
	entries, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	var bad []Mismatch
	for _, e := range entries {
		file := e.Name
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, filepath.FromSlash(file))
		}
		got, err := Checksum(file)
		switch {
		case err != nil:
			bad = append(bad, Mismatch{Name: e.Name, Want: e.Digest, Err: err})
		case got != e.Digest:
			bad = append(bad, Mismatch{Name: e.Name, Want: e.Digest, Got: got})
		}
	}
	return bad, nil
}
