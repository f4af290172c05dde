package takematch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WAVLister is the default FileLister: non-hidden .wav files, non-hidden
// subfolders.
type WAVLister struct{}

func NewWAVLister() *WAVLister { return &WAVLister{} }

func (l *WAVLister) ListAudioFiles(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (l *WAVLister) Subfolders(root string) ([]string, error) {
	var folders []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if path != root {
			folders = append(folders, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(folders)
	return folders, nil
}
