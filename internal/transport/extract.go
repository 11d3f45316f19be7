package transport

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Extract unpacks the zip archive at archivePath into targetDir and returns
// the first path segment shared by every entry. Vendors wrap archive payloads
// in an arbitrarily named top-level folder (often embedding a version, commit
// hash, or branch name), so the caller needs the detected root to locate the
// unpacked tree. An empty archive, or one whose entries share no leading
// segment, yields an empty root name.
func Extract(archivePath, targetDir string) (string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", &ExtractionError{Archive: archivePath, Err: err}
	}
	defer func() { _ = zr.Close() }()

	var common []string
	seeded := false
	for _, f := range zr.File {
		name := path.Clean(f.Name)
		if name == "." || strings.HasPrefix(name, "..") {
			continue
		}
		segs := strings.Split(name, "/")
		if !seeded {
			common = segs
			seeded = true
		} else {
			common = sharedPrefix(common, segs)
		}
		if err := writeEntry(f, targetDir, name); err != nil {
			return "", &ExtractionError{Archive: archivePath, Err: err}
		}
	}

	if len(common) == 0 {
		return "", nil
	}
	return common[0], nil
}

// sharedPrefix shrinks a to the longest leading segment sequence shared with b.
func sharedPrefix(a, b []string) []string {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}

func writeEntry(f *zip.File, targetDir, name string) error {
	dest := filepath.Join(targetDir, filepath.FromSlash(name))
	if rel, err := filepath.Rel(targetDir, dest); err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("entry %q escapes target directory", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	_, err = io.Copy(out, rc)
	return err
}
