package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/repr"
	"github.com/coreos/pkg/capnslog"
	"github.com/pontaoski/curdle/emit"
	"github.com/pontaoski/curdle/names"
	"github.com/pontaoski/curdle/project"
	"github.com/pontaoski/curdle/reader"
	"github.com/urfave/cli/v2"
	"github.com/ztrue/tracerr"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/curdle", "main")

func setupLogging(c *cli.Context) {
	capnslog.SetFormatter(capnslog.NewPrettyFormatter(os.Stderr, false))
	if c.Bool("verbose") {
		capnslog.SetGlobalLogLevel(capnslog.DEBUG)
	} else {
		capnslog.SetGlobalLogLevel(capnslog.WARNING)
	}
}

func main() {
	app := &cli.App{
		Name:  "curdle",
		Usage: "cheese compiler",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
		},
		Before: func(c *cli.Context) error {
			setupLogging(c)
			return nil
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			if err == nil {
				return
			}
			if _, ok := err.(cli.ExitCoder); ok {
				cli.HandleExitCoder(err)
				return
			}
			tracerr.PrintSourceColor(err)
			os.Exit(1)
		},
		Commands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "create a curdle.yaml in the current directory",
				ArgsUsage: "<package>",
				Action: func(c *cli.Context) error {
					name := c.Args().First()
					if name == "" {
						return cli.Exit("no package name provided", 1)
					}
					if err := project.NewManifest(name).Write("."); err != nil {
						return err
					}
					plog.Infof("wrote %s for %s", project.ManifestName, name)
					return nil
				},
			},
			buildCommand,
			dumpCommand,
			{
				Name:      "typeinfo",
				Usage:     "print the type information of a built library",
				ArgsUsage: "<library>",
				Action: func(c *cli.Context) error {
					file := c.Args().First()
					if file == "" {
						return cli.Exit("no library provided", 1)
					}
					data, err := reader.ReadTypeInfo(file, emit.TypeInfoSymbol)
					if err != nil {
						return tracerr.Wrap(err)
					}
					info, err := emit.ParseTypeInfo(data)
					if err != nil {
						return tracerr.Wrap(err)
					}
					repr.Println(info)
					return nil
				},
			},
			{
				Name:      "unmangle",
				Usage:     "print the readable form of mangled symbols",
				ArgsUsage: "<symbol>...",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "variable"},
				},
				Action: func(c *cli.Context) error {
					for _, sym := range c.Args().Slice() {
						if c.Bool("variable") {
							fmt.Println(names.UnmangleVariable(sym))
						} else {
							fmt.Println(names.UnmangleFunction(sym))
						}
					}
					return nil
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}
