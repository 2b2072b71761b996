package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/alecthomas/repr"
	"github.com/pontaoski/curdle/bacteria"
	"github.com/pontaoski/curdle/curdle"
	"github.com/pontaoski/curdle/emit"
	"github.com/pontaoski/curdle/errors"
	"github.com/pontaoski/curdle/project"
	"github.com/pontaoski/curdle/types"
	"github.com/urfave/cli/v2"
	"github.com/ztrue/tracerr"
)

var compileFlags = []cli.Flag{
	&cli.BoolFlag{Name: "library", Usage: "build a shared library instead of a program"},
	&cli.BoolFlag{Name: "no-color", Usage: "print diagnostics without colour"},
	&cli.BoolFlag{Name: "warnings-are-errors"},
	&cli.IntFlag{Name: "max-errors", Usage: "stop after this many errors (overrides curdle.yaml)"},
}

// compilation is a manifest lowered to a bacteria program.
type compilation struct {
	manifest *project.Manifest
	program  *bacteria.Program
}

func compileProject(c *cli.Context) (*compilation, error) {
	m, err := project.ReadManifest(".")
	if err != nil {
		return nil, err
	}

	files := types.NewFileTable()
	loader := project.NewFSLoader(files, m)
	root, err := loader.ReadTree(m.RootPath())
	if err != nil {
		return nil, err
	}

	cfg := curdle.Config{
		MaxErrors:         m.MaxErrors,
		WarningsAreErrors: c.Bool("warnings-are-errors"),
	}
	if c.IsSet("max-errors") {
		cfg.MaxErrors = c.Int("max-errors")
	}

	s := curdle.NewSession(files, loader, cfg)
	plog.Debugf("compiling %s from %s", m.Package, m.RootPath())
	p := s.Compile(root, m.Package, c.Bool("library"))
	for _, imp := range s.ImportedModules() {
		plog.Debugf("imported %s", imp)
	}

	printer := errors.NewPrinter(os.Stderr, files, m.UseColor() && !c.Bool("no-color"))
	printer.PrintAll(s.Diagnostics)
	if s.Errored {
		return nil, cli.Exit(fmt.Sprintf("%s failed with %d diagnostics", m.Package, len(s.Diagnostics)), 1)
	}

	return &compilation{manifest: m, program: p}, nil
}

var dumpCommand = &cli.Command{
	Name:  "dump",
	Usage: "print the lowered program",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{Name: "repr", Usage: "print the Go structure of the tree"},
	}, compileFlags...),
	Action: func(c *cli.Context) error {
		comp, err := compileProject(c)
		if err != nil {
			return err
		}
		if c.Bool("repr") {
			repr.Println(comp.program)
			return nil
		}
		fmt.Print(comp.program.String())
		return nil
	},
}

var buildCommand = &cli.Command{
	Name:  "build",
	Usage: "build the module in the current directory",
	Flags: append([]cli.Flag{
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}},
		&cli.BoolFlag{Name: "dump", Usage: "print the lowered program and stop"},
		&cli.BoolFlag{Name: "emit-llvm", Usage: "print the LLVM module instead of linking"},
		&cli.StringSliceFlag{Name: "link", Usage: "extra objects or libraries to link against"},
	}, compileFlags...),
	Action: func(c *cli.Context) error {
		comp, err := compileProject(c)
		if err != nil {
			return err
		}

		if c.Bool("dump") {
			fmt.Print(comp.program.String())
			return nil
		}

		settings := emit.Settings{Library: c.Bool("library"), Package: comp.manifest.Package}
		mod, err := emit.Emit(comp.program, settings)
		if err != nil {
			return err
		}
		module := mod.String()

		if c.Bool("emit-llvm") {
			fmt.Println(module)
			return nil
		}

		out := c.String("output")
		if out == "" {
			out = comp.manifest.Package
			if settings.Library {
				out = "lib" + out + ".so"
			}
		}
		return link(module, out, settings.Library, c.StringSlice("link"))
	},
}

func link(module, out string, library bool, extra []string) error {
	cmd := exec.Command("clang", "-nostdlib", "-o", out)
	cmd.Args = append(cmd.Args, extra...)

	if library {
		cmd.Args = append(cmd.Args, "-shared", "-fPIC")
	} else {
		cmd.Args = append(cmd.Args, "-Wl,-e,"+emit.EntryStub)
	}

	fi, err := os.CreateTemp("", "*.ll")
	if err != nil {
		return tracerr.Wrap(err)
	}
	defer os.Remove(fi.Name())
	defer fi.Close()

	if _, err = io.Copy(fi, strings.NewReader(module)); err != nil {
		return tracerr.Wrap(err)
	}
	cmd.Args = append(cmd.Args, fi.Name())

	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	plog.Debugf("running %s", strings.Join(cmd.Args, " "))
	return tracerr.Wrap(cmd.Run())
}
