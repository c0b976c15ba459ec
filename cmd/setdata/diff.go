package main

import (
	"fmt"
	"io"

	"github.com/scott-cotton/cli"
	"github.com/signadot/setdata"
	"github.com/signadot/setdata/host"
	"github.com/signadot/setdata/ir"
	"github.com/signadot/setdata/libdiff"
	"github.com/signadot/setdata/tick"
)

func diff(cfg *DiffConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Diff.Parse(cc, args)
	if err != nil {
		cfg.Diff.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: diff requires 2 args, got %v", cli.ErrUsage, args)
	}
	oldVal, err := getObjFile(cc, args[0])
	if err != nil {
		return fmt.Errorf("error decoding %s: %w", args[0], err)
	}
	newVal, err := getObjFile(cc, args[1])
	if err != nil {
		return fmt.Errorf("error decoding %s: %w", args[1], err)
	}
	if oldVal.Type != ir.ObjectType || newVal.Type != ir.ObjectType {
		return fmt.Errorf("%w: diff requires two maps", cli.ErrUsage)
	}
	patch := diffPatch(oldVal, newVal, cfg.UseOldVal)
	if patch == nil {
		return nil
	}
	if err := writePatch(cc.Out, patch, cfg.J); err != nil {
		return err
	}
	if cfg.Explain {
		h := cfg.heading(cc.Out)
		patch.Range(func(path string, v *ir.Node) bool {
			fmt.Fprintf(cc.Out, "# %s %s\n", h.Sprint(path), libdiff.DescribeChange(ir.GetPath(oldVal, path), v))
			return true
		})
	}
	return cli.ExitCodeErr(1)
}

// diffPatch requests an update of every top level field of newVal over
// a state holding oldVal and returns the patch committed, or nil.
func diffPatch(oldVal, newVal *ir.Node, useOldVal bool) *setdata.PatchSet {
	loop := tick.New()
	mem := host.NewMemory(ir.DeepClone(oldVal), loop)
	sched := setdata.New(mem, loop, setdata.WithOldVal(useOldVal))
	changes := setdata.Changes{}
	for i, f := range newVal.Fields {
		changes[f.String] = newVal.Values[i]
	}
	sched.RequestUpdate(changes, nil)
	loop.Drain()
	commits := mem.Commits()
	if len(commits) == 0 {
		return nil
	}
	return commits[0]
}

func writePatch(w io.Writer, patch *setdata.PatchSet, j bool) error {
	var (
		d   []byte
		err error
	)
	if j {
		d, err = patch.MarshalJSON()
		d = append(d, '\n')
	} else {
		d, err = ir.MarshalYAML(patch.Node())
	}
	if err != nil {
		return fmt.Errorf("error encoding patch: %w", err)
	}
	_, err = w.Write(d)
	return err
}
