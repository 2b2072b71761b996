package errors

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pontaoski/curdle/types"
)

// Printer writes diagnostics in the compiler's report format, followed by the
// offending source line and a caret.
type Printer struct {
	Out   io.Writer
	Files *types.FileTable
	Color bool

	// ReadFile loads source text for caret lines. Defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)

	sources map[uint32][]string
}

func NewPrinter(out io.Writer, files *types.FileTable, useColor bool) *Printer {
	return &Printer{Out: out, Files: files, Color: useColor, ReadFile: os.ReadFile}
}

func (p *Printer) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if p.Color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func (p *Printer) Print(d Diagnostic) {
	p.paint(color.FgBlue).Fprintf(p.Out, "[%s] ", d.Module)
	if d.Code.IsWarning() {
		p.paint(color.FgYellow).Fprint(p.Out, "[WARN] ")
	} else {
		p.paint(color.FgRed).Fprint(p.Out, "[ERROR] ")
	}
	p.paint(color.FgHiBlack).Fprintf(p.Out, "(%s) ", d.Code)
	p.paint(color.FgWhite, color.Bold).Fprint(p.Out, p.Files.Describe(d.Location))
	fmt.Fprintf(p.Out, ": %s\n", d.Message)
	p.pointTo(d.Location)
}

func (p *Printer) PrintAll(ds []Diagnostic) {
	for _, d := range ds {
		p.Print(d)
	}
}

func (p *Printer) pointTo(at types.Coordinate) {
	lines := p.lines(at.File)
	if at.Line < 1 || at.Line > len(lines) {
		return
	}

	fmt.Fprintln(p.Out, lines[at.Line-1])
	col := at.Column
	if col < 1 {
		col = 1
	}
	p.paint(color.FgGreen).Fprintln(p.Out, strings.Repeat(" ", col-1)+"^")
}

func (p *Printer) lines(file uint32) []string {
	if p.sources == nil {
		p.sources = map[uint32][]string{}
	}
	if lines, ok := p.sources[file]; ok {
		return lines
	}

	var lines []string
	read := p.ReadFile
	if read == nil {
		read = os.ReadFile
	}
	if data, err := read(p.Files.Name(file)); err == nil {
		scanner := bufio.NewScanner(strings.NewReader(string(data)))
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
	}

	p.sources[file] = lines
	return lines
}
