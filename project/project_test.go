package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pontaoski/curdle/types"
)

const emptyTree = "kind: structure\nchildren: []\n"

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, ManifestName), "package: demo\nlibrary_folders: [vendor]\n")

	m, err := ReadManifest(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Extension != DefaultExtension {
		t.Errorf("extension %q", m.Extension)
	}
	if m.RootPath() != filepath.Join(dir, "main"+DefaultExtension) {
		t.Errorf("root %q", m.RootPath())
	}
	if libs := m.Libraries(); len(libs) != 1 || libs[0] != filepath.Join(dir, "vendor") {
		t.Errorf("libraries %v", libs)
	}
	if !m.UseColor() {
		t.Error("colour should default to on")
	}
}

func TestManifestWriteRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	if err := NewManifest("demo").Write(dir); err != nil {
		t.Fatal(err)
	}
	m, err := ReadManifest(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Package != "demo" {
		t.Errorf("package %q", m.Package)
	}
	if err := NewManifest("other").Write(dir); err == nil {
		t.Error("expected an existing manifest to be kept")
	}
}

func TestManifestNeedsPackage(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, ManifestName), "root: a.cdl\n")
	if _, err := ReadManifest(dir); err == nil {
		t.Error("expected an error for a manifest without a package")
	}
}

func TestLoaderSearchOrder(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib")
	from := filepath.Join(dir, "src", "main.cdl")
	write(t, from, emptyTree)
	write(t, filepath.Join(dir, "src", "near.cdl"), emptyTree)
	write(t, filepath.Join(dir, "src", "pkg", "lib.cdl"), emptyTree)
	write(t, filepath.Join(lib, "std", "io.cdl"), emptyTree)
	write(t, filepath.Join(lib, "std", "lib.cdl"), emptyTree)

	l := &FSLoader{Files: types.NewFileTable(), Extension: ".cdl", Libraries: []string{lib}}

	cases := []struct {
		path string
		want string
	}{
		{"near", filepath.Join(dir, "src", "near.cdl")},
		{"pkg", filepath.Join(dir, "src", "pkg", "lib.cdl")},
		{"std/io", filepath.Join(lib, "std", "io.cdl")},
		{"std", filepath.Join(lib, "std", "lib.cdl")},
	}
	for _, c := range cases {
		root, key, err := l.Load(from, c.path)
		if err != nil {
			t.Errorf("%s: %s", c.path, err)
			continue
		}
		if key != c.want {
			t.Errorf("%s resolved to %s, want %s", c.path, key, c.want)
		}
		if root == nil {
			t.Errorf("%s: no tree", c.path)
		}
	}

	if _, _, err := l.Load(from, "missing"); err == nil {
		t.Error("expected an error for a missing module")
	}
}
