package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pontaoski/curdle/ast"
	"github.com/pontaoski/curdle/types"
	"github.com/ztrue/tracerr"
)

// FSLoader finds imported modules on disk. An import of a/b from a file in
// dir is looked up as dir/a/b<ext>, then dir/a/b/lib<ext>, then the same two
// shapes under each library folder.
type FSLoader struct {
	Files     *types.FileTable
	Extension string
	Libraries []string
	// ReadFile defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
	// Exists defaults to a stat of the path.
	Exists func(path string) bool
}

func NewFSLoader(files *types.FileTable, m *Manifest) *FSLoader {
	return &FSLoader{
		Files:     files,
		Extension: m.Extension,
		Libraries: m.Libraries(),
	}
}

func (l *FSLoader) exists(path string) bool {
	if l.Exists != nil {
		return l.Exists(path)
	}
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

func (l *FSLoader) candidates(from, path string) []string {
	path = filepath.FromSlash(path)
	dirs := append([]string{filepath.Dir(from)}, l.Libraries...)

	var ret []string
	for _, dir := range dirs {
		ret = append(ret,
			filepath.Join(dir, path+l.Extension),
			filepath.Join(dir, path, "lib"+l.Extension),
		)
	}
	return ret
}

// Load implements curdle.Loader. The key is the absolute path of the tree.
func (l *FSLoader) Load(from string, path string) (*ast.Structure, string, error) {
	for _, candidate := range l.candidates(from, path) {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if !l.exists(abs) {
			continue
		}
		plog.Debugf("import %s resolved to %s", path, abs)
		root, err := l.ReadTree(abs)
		if err != nil {
			return nil, "", err
		}
		return root, abs, nil
	}
	return nil, "", fmt.Errorf("no module %s near %s or in %d library folders", path, from, len(l.Libraries))
}

// ReadTree decodes the syntax tree stored at path, registering the file.
func (l *FSLoader) ReadTree(path string) (*ast.Structure, error) {
	read := l.ReadFile
	if read == nil {
		read = os.ReadFile
	}
	data, err := read(path)
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return ast.Decode(data, l.Files.Intern(path))
}
