package types

import (
	"fmt"

	"fortio.org/safecast"
)

// Coordinate is a position in a source file. File indexes into the FileTable
// of the compilation session that produced it.
type Coordinate struct {
	File   uint32
	Line   int
	Column int
}

func (c Coordinate) String() string {
	return fmt.Sprintf("#%d:%d:%d", c.File, c.Line, c.Column)
}

// IsZero reports whether the coordinate was never set.
func (c Coordinate) IsZero() bool {
	return c.Line == 0 && c.Column == 0
}

// FileTable interns file paths into stable indices.
type FileTable struct {
	names   []string
	indices map[string]uint32
}

func NewFileTable() *FileTable {
	return &FileTable{
		names:   []string{"<builtin>"},
		indices: map[string]uint32{"<builtin>": 0},
	}
}

// Intern returns the index of path, registering it if needed.
func (f *FileTable) Intern(path string) uint32 {
	if idx, ok := f.indices[path]; ok {
		return idx
	}

	idx, err := safecast.Conv[uint32](len(f.names))
	if err != nil {
		panic(fmt.Sprintf("too many source files: %s", err))
	}

	f.names = append(f.names, path)
	f.indices[path] = idx
	return idx
}

func (f *FileTable) Name(idx uint32) string {
	if int(idx) >= len(f.names) {
		return "<unknown>"
	}
	return f.names[idx]
}

func (f *FileTable) Len() int {
	return len(f.names)
}

// Describe renders c as file:line:col.
func (f *FileTable) Describe(c Coordinate) string {
	return fmt.Sprintf("%s:%d:%d", f.Name(c.File), c.Line, c.Column)
}
