package merger

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperr "github.com/ryabkov82/labmerge/internal/errors"
)

// Canonical returns an absolute, cleaned path with symlinks resolved. When
// the file does not exist its directory is resolved instead, so that a
// relative and an absolute spelling of the same location compare equal.
func Canonical(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	dir, base := filepath.Split(abs)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return filepath.Join(resolved, base)
	}
	return abs
}

// ListCandidates returns the table files directly in dir (*.csv, plus *.xlsx
// when withXLSX is set) minus every path in exclude. Paths are compared in
// canonical form.
func ListCandidates(dir string, withXLSX bool, exclude ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperr.FileAccess(dir, err)
	}

	skip := make(map[string]bool, len(exclude))
	for _, p := range exclude {
		skip[Canonical(p)] = true
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !isTableFile(e.Name(), withXLSX) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if skip[Canonical(p)] {
			continue
		}
		files = append(files, p)
	}
	sort.Strings(files)
	return files, nil
}

func isTableFile(name string, withXLSX bool) bool {
	// Office lock files sit next to open workbooks.
	if strings.HasPrefix(name, "~$") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return true
	case ".xlsx":
		return withXLSX
	}
	return false
}

// CandidateSet lists the candidates of several directories, dropping paths
// that resolve to the same file. The first directory's files come first.
func CandidateSet(dirs []string, withXLSX bool, exclude ...string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, dir := range dirs {
		files, err := ListCandidates(dir, withXLSX, exclude...)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			c := Canonical(f)
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// FilterExcluded removes excluded paths from an explicit input list.
func FilterExcluded(files []string, exclude ...string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, p := range exclude {
		skip[Canonical(p)] = true
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		if !skip[Canonical(f)] {
			out = append(out, f)
		}
	}
	return out
}
