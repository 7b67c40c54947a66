// Package env provides the file access abstraction the options loader
// reads through. An Env is always borrowed: the loader never closes or
// retains it past the call it was handed to.
package env

import (
	"io/fs"
	"os"
)

// Env reads whole files by name.
type Env interface {
	ReadFile(name string) ([]byte, error)
}

type osEnv struct{}

func (osEnv) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// Default returns the environment backed by the host filesystem.
func Default() Env {
	return osEnv{}
}

type fsEnv struct {
	fsys fs.FS
}

func (e fsEnv) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(e.fsys, name)
}

// FromFS returns an environment reading from fsys. Names follow fs.FS
// rules (slash separated, unrooted).
func FromFS(fsys fs.FS) Env {
	return fsEnv{fsys: fsys}
}
