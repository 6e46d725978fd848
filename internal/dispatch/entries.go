package dispatch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Entry is one immediate child of the parent directory.
type Entry struct {
	Name  string
	Path  string
	IsDir bool
}

// ListEntries returns the immediate children of parent, files and
// directories alike, in the order the directory listing yields them.
// Enumeration never recurses. Any failure to read parent is a *ParentError.
func ListEntries(parent string) ([]Entry, error) {
	dir, err := os.Open(parent)
	if err != nil {
		return nil, &ParentError{Path: parent, Err: err}
	}
	defer dir.Close()

	info, err := dir.Stat()
	if err != nil {
		return nil, &ParentError{Path: parent, Err: err}
	}
	if !info.IsDir() {
		return nil, &ParentError{Path: parent, Err: ErrNotDirectory}
	}

	// (*os.File).ReadDir keeps listing order, unlike os.ReadDir.
	dirEntries, err := dir.ReadDir(-1)
	if err != nil {
		return nil, &ParentError{Path: parent, Err: fmt.Errorf("list entries: %w", err)}
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		entries = append(entries, Entry{
			Name:  de.Name(),
			Path:  filepath.Join(parent, de.Name()),
			IsDir: de.IsDir(),
		})
	}
	return entries, nil
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
}
