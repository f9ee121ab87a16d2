// Package resources holds the files spire installs on nodes verbatim.
package resources

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed files/*
var filesFS embed.FS

// SSHDConfig is the sshd configuration installed on supervisors.
const SSHDConfig = "sshd_config"

// Bundle serves embedded resources by name.
type Bundle struct {
	fsys fs.FS
}

// Default returns the resources compiled into the binary.
func Default() *Bundle {
	sub, err := fs.Sub(filesFS, "files")
	if err != nil {
		panic(fmt.Sprintf("embedded resources: %v", err))
	}
	return &Bundle{fsys: sub}
}

// New serves resources from fsys, for tests and overrides.
func New(fsys fs.FS) *Bundle {
	return &Bundle{fsys: fsys}
}

// Get returns the contents of the named resource.
func (b *Bundle) Get(name string) ([]byte, error) {
	data, err := fs.ReadFile(b.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load resource %s: %w", name, err)
	}
	return data, nil
}

// Names lists the available resources.
func (b *Bundle) Names() ([]string, error) {
	entries, err := fs.ReadDir(b.fsys, ".")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
