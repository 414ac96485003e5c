package watcher

import (
	"io/fs"
	"path/filepath"
	"sort"
	"time"
)

// stamp is what a rescan compares for one corpus path.
type stamp struct {
	modTime time.Time
	size    int64
	isDir   bool
}

// scanTree stamps every corpus file and book directory under root. Hidden
// directories and files the filter ignores are skipped.
func scanTree(root string, f filter) (map[string]stamp, error) {
	tree := make(map[string]stamp)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}
		if d.IsDir() && f.ignoreDir(rel) {
			return filepath.SkipDir
		}
		if f.ignore(rel, d.IsDir()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		tree[rel] = stamp{modTime: info.ModTime(), size: info.Size(), isDir: d.IsDir()}
		return nil
	})
	return tree, err
}

// diffTrees lists the changes from prev to cur, ordered by path.
func diffTrees(prev, cur map[string]stamp, at time.Time) []FileEvent {
	var events []FileEvent
	for path, s := range cur {
		old, ok := prev[path]
		switch {
		case !ok:
			events = append(events, FileEvent{Path: path, Operation: OpCreate, IsDir: s.isDir, Timestamp: at})
		case !s.isDir && (!old.modTime.Equal(s.modTime) || old.size != s.size):
			events = append(events, FileEvent{Path: path, Operation: OpModify, Timestamp: at})
		}
	}
	for path, s := range prev {
		if _, ok := cur[path]; !ok {
			events = append(events, FileEvent{Path: path, Operation: OpDelete, IsDir: s.isDir, Timestamp: at})
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	return events
}
