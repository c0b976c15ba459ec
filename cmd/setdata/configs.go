package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
)

type MainConfig struct {
	Color bool `cli:"name=color desc='color output and diagnostics'"`

	Out      string
	CloseOut func() error

	Main *cli.Command
}

func (cfg *MainConfig) outOpt(cc *cli.Context, a string) (any, error) {
	cfg.Out = a
	if a == "-" {
		return nil, nil
	}
	f, err := os.OpenFile(cfg.Out, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	cc.Out = f
	cfg.CloseOut = f.Close
	return nil, nil
}

// useColor reports whether to color output to w: -color if given,
// otherwise whether w is a terminal.
func (cfg *MainConfig) useColor(w io.Writer) bool {
	if cfg.Color {
		return true
	}
	for _, opt := range cfg.Main.Opts {
		if opt.Name == "color" && opt.Value != nil {
			return false
		}
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}

func (cfg *MainConfig) heading(w io.Writer) *color.Color {
	c := color.New(color.FgCyan, color.Bold)
	if cfg.useColor(w) {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

type DiffConfig struct {
	*MainConfig
	UseOldVal bool `cli:"name=useOldVal desc='keep diffing nested lists and maps that grow'"`
	Explain   bool `cli:"name=explain desc='describe each change'"`
	J         bool `cli:"name=j aliases=json desc='output the patch in json'"`

	Diff *cli.Command
}

type PathsConfig struct {
	*MainConfig

	Paths *cli.Command
}

type ReplayConfig struct {
	*MainConfig
	Follow  bool   `cli:"name=follow desc='replay again when the script changes'"`
	Config  string `cli:"name=config desc='scheduler config file, overrides the script config'"`
	Metrics bool   `cli:"name=metrics desc='print scheduler metrics after each replay'"`

	Replay *cli.Command
}

type ServeConfig struct {
	*MainConfig
	Gops bool `cli:"name=gops desc='start the gops agent'"`

	Serve *cli.Command
}
