// Package vfs abstracts the filesystem operations this module needs onto
// an interface, grounded on pebble's vfs.FS (vfs/vfs.go), trimmed to the
// subset the table engine's write/commit path actually uses: read/write
// whole files, atomic rename (the commit discipline's pointer swap,
// spec.md §5), directory listing, and MkdirAll.
package vfs

import (
	"os"
	"sort"
)

// FS is the filesystem interface every component in this module depends
// on instead of the os package directly, so tests can substitute an
// in-memory implementation, the same decoupling pebble's vfs.FS provides.
type FS interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
	Rename(oldname, newname string) error
	Remove(name string) error
	MkdirAll(dir string) error
	List(dir string) ([]string, error)
	Exists(name string) bool
}

// Default is an FS backed by the real operating system filesystem.
type Default struct{}

func (Default) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

func (Default) WriteFile(name string, data []byte) error {
	tmp := name + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, name)
}

func (Default) Rename(oldname, newname string) error { return os.Rename(oldname, newname) }
func (Default) Remove(name string) error              { return os.Remove(name) }
func (Default) MkdirAll(dir string) error             { return os.MkdirAll(dir, 0o755) }

func (Default) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (Default) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

var _ FS = Default{}
