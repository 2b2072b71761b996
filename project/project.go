// Package project reads the curdle.yaml manifest and finds the syntax trees
// of a module and its imports on disk.
package project

import (
	"os"
	"path/filepath"

	"github.com/coreos/pkg/capnslog"
	"github.com/ztrue/tracerr"
	"gopkg.in/yaml.v2"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/curdle", "project")

// ManifestName is the file a module directory is recognised by.
const ManifestName = "curdle.yaml"

// DefaultExtension is the suffix of serialized syntax trees.
const DefaultExtension = ".cdl"

type Manifest struct {
	Package        string   `yaml:"package"`
	Root           string   `yaml:"root,omitempty"`
	LibraryFolders []string `yaml:"library_folders,omitempty"`
	Extension      string   `yaml:"extension,omitempty"`
	MaxErrors      int      `yaml:"max_errors,omitempty"`
	Color          *bool    `yaml:"color,omitempty"`

	// Dir is the directory the manifest was read from.
	Dir string `yaml:"-"`
}

// NewManifest returns the manifest `curdle init` writes for name.
func NewManifest(name string) *Manifest {
	return &Manifest{
		Package:   name,
		Root:      "main" + DefaultExtension,
		Extension: DefaultExtension,
	}
}

// ReadManifest loads the manifest in dir and fills in defaults.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, tracerr.Wrap(err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, tracerr.Errorf("reading %s: %w", ManifestName, err)
	}
	if m.Package == "" {
		return nil, tracerr.Errorf("%s has no package name", ManifestName)
	}
	if m.Extension == "" {
		m.Extension = DefaultExtension
	}
	if m.Root == "" {
		m.Root = "main" + m.Extension
	}
	m.Dir = dir
	return &m, nil
}

// Write stores the manifest in dir, refusing to replace an existing one.
func (m *Manifest) Write(dir string) error {
	out, err := yaml.Marshal(m)
	if err != nil {
		return tracerr.Wrap(err)
	}
	f, err := os.OpenFile(filepath.Join(dir, ManifestName), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return tracerr.Wrap(err)
	}
	defer f.Close()

	_, err = f.Write(out)
	return tracerr.Wrap(err)
}

// RootPath is the absolute path of the module's root tree.
func (m *Manifest) RootPath() string {
	p := m.Root
	if !filepath.IsAbs(p) {
		p = filepath.Join(m.Dir, p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

// Libraries resolves library folders relative to the manifest.
func (m *Manifest) Libraries() []string {
	var ret []string
	for _, l := range m.LibraryFolders {
		if !filepath.IsAbs(l) {
			l = filepath.Join(m.Dir, l)
		}
		ret = append(ret, l)
	}
	return ret
}

// UseColor reports whether diagnostics should be coloured.
func (m *Manifest) UseColor() bool {
	return m.Color == nil || *m.Color
}
