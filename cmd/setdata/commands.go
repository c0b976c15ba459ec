package main

import (
	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	sOpts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts := append(sOpts, &cli.Opt{
		Name:        "o",
		Description: "output file (default stdout)",
		Type:        cli.NamedFuncOpt(cfg.outOpt, "(filepath)"),
	})

	return cli.NewCommandAt(&cfg.Main, "setdata").
		WithSynopsis("setdata [opts] command [opts]").
		WithDescription("setdata diffs, batches and replays state tree updates.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return setdataMain(cfg, cc, args)
		}).
		WithSubs(
			DiffCommand(cfg),
			PathsCommand(cfg),
			ReplayCommand(cfg),
			ServeCommand(cfg))
}

func DiffCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DiffConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Diff, "diff").
		WithAliases("d", "di").
		WithSynopsis("diff [-useOldVal] [-explain] [-j] old new").
		WithDescription("diff two state documents and show the patch that would be committed").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return diff(cfg, cc, args)
		})
}

func PathsCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &PathsConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Paths, "paths").
		WithAliases("p").
		WithSynopsis("paths expr...").
		WithDescription("show how path expressions resolve to fields").
		WithRun(func(cc *cli.Context, args []string) error {
			return paths(cfg, cc, args)
		})
}

func ReplayCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ReplayConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Replay, "replay").
		WithAliases("r").
		WithSynopsis("replay [-follow] [-metrics] [-config file] script").
		WithDescription(replayDescription).
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return replay(cfg, cc, args)
		})
}

const replayDescription = `replay runs a script of update requests against an in-memory state.

The script is a YAML or JSON document:

  config:          # optional scheduler config
    useOldVal: true
  state:           # initial state
    list: [{x: 1}, {x: 2}]
  watch:           # watched path -> filter expression
    list: 'len(new) > 2'
  ticks:           # one list of requests per tick
  - - changes: {"list[1].x": 3}
      native: false
      syncData: false
      oldVal: false

replay prints every commit, completion and watch firing. Watch filters
are expressions over path, new and old; an empty filter always prints.

With -metrics, the scheduler counters are printed after the state.
With -follow, the script is replayed again each time it changes.`

func ServeCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ServeConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Serve, "serve").
		WithSynopsis("serve [-gops]").
		WithDescription("serve setData and getData requests over JSON-RPC on stdio").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return serve(cfg, cc, args)
		})
}
