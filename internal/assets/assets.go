// Package assets loads named terrain resources from a course archive.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/samber/lo"

	"kartcol/internal/kcl"
	"kartcol/internal/logging"
)

// KCLExt is the extension of terrain files inside an archive.
const KCLExt = ".kcl"

var ErrNotFound = errors.New("assets: resource not found")

var logger = logging.For("assets")

// Archive serves raw blobs by name and caches what it has read. Blobs and
// parsed terrain stay alive until Unload, so terrain handed out keeps a
// valid backing buffer.
type Archive struct {
	fsys    fs.FS
	blobs   map[string][]byte
	courses map[string]*kcl.Data
}

// New wraps any file system, such as an embedded one.
func New(fsys fs.FS) *Archive {
	return &Archive{
		fsys:    fsys,
		blobs:   make(map[string][]byte),
		courses: make(map[string]*kcl.Data),
	}
}

// Open serves the files under dir.
func Open(dir string) (*Archive, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("failed to open archive %q: not a directory", dir)
	}
	return New(os.DirFS(dir)), nil
}

// Resource returns the raw bytes stored under name.
func (a *Archive) Resource(name string) ([]byte, error) {
	if blob, exists := a.blobs[name]; exists {
		return blob, nil
	}

	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("failed to load %q: %w", name, ErrNotFound)
	}
	blob, err := fs.ReadFile(a.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", name, err)
	}

	a.blobs[name] = blob
	return blob, nil
}

// LoadKCL parses the terrain stored under name. The extension is optional.
func (a *Archive) LoadKCL(name string) (*kcl.Data, error) {
	if !strings.HasSuffix(name, KCLExt) {
		name += KCLExt
	}
	if data, exists := a.courses[name]; exists {
		return data, nil
	}

	blob, err := a.Resource(name)
	if err != nil {
		return nil, err
	}
	data, err := kcl.Parse(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", name, err)
	}

	bbox := data.BBox()
	logger.Info("loaded terrain", "name", name, "prisms", data.PrismCount(), "min", bbox.Min, "max", bbox.Max)
	a.courses[name] = data
	return data, nil
}

// Names lists the terrain files at the top of the archive, sorted.
func (a *Archive) Names() ([]string, error) {
	entries, err := fs.ReadDir(a.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}

	names := lo.FilterMap(entries, func(e fs.DirEntry, _ int) (string, bool) {
		return e.Name(), !e.IsDir() && path.Ext(e.Name()) == KCLExt
	})
	sort.Strings(names)
	return names, nil
}

// Unload drops every cached blob and terrain.
func (a *Archive) Unload() {
	if len(a.blobs) > 0 {
		logger.Debug("unloading archive", "blobs", len(a.blobs), "terrain", len(a.courses))
	}
	a.blobs = make(map[string][]byte)
	a.courses = make(map[string]*kcl.Data)
}
