package provider

import (
	"path/filepath"

	"github.com/Aman-CERP/amansearch/internal/engine"
	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
)

// DirectoryResolver maps an index name to the storage backing it.
type DirectoryResolver interface {
	Resolve(name string) (engine.Directory, error)
}

// FileSystem stores each index under Root/<name>. Directories are created
// when the index is first written.
type FileSystem struct {
	Root    string
	Options []engine.Option
}

// Resolve implements DirectoryResolver. The resolved path must be a direct
// child of Root.
func (f FileSystem) Resolve(name string) (engine.Directory, error) {
	root := filepath.Clean(f.Root)
	path := filepath.Join(root, name)
	if path == root || filepath.Dir(path) != root {
		return nil, amerrors.InvalidName("index", name)
	}
	return engine.Open(path, f.Options...), nil
}

// Memory keeps every index in memory for the life of its handle.
type Memory struct {
	Options []engine.Option
}

// Resolve implements DirectoryResolver.
func (m Memory) Resolve(string) (engine.Directory, error) {
	return engine.OpenMemory(m.Options...), nil
}

var (
	_ DirectoryResolver = FileSystem{}
	_ DirectoryResolver = Memory{}
)
