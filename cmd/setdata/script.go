package main

import (
	"fmt"
	"os"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/goccy/go-yaml"
	"github.com/signadot/setdata"
	"github.com/signadot/setdata/ir"
)

// Script is a replay script.
type Script struct {
	Config setdata.Config    `yaml:"config"`
	State  any               `yaml:"state"`
	Watch  map[string]string `yaml:"watch"`
	Ticks  [][]ScriptRequest `yaml:"ticks"`
}

// ScriptRequest is one update request.
type ScriptRequest struct {
	Changes  map[string]any `yaml:"changes"`
	Native   bool           `yaml:"native"`
	SyncData bool           `yaml:"syncData"`
	OldVal   bool           `yaml:"oldVal"`
}

func (r *ScriptRequest) changes() setdata.Changes {
	res := make(setdata.Changes, len(r.Changes))
	for k, v := range r.Changes {
		res[k] = ir.FromAny(v)
	}
	return res
}

func (r *ScriptRequest) opts() []setdata.CallOpt {
	var res []setdata.CallOpt
	if r.Native {
		res = append(res, setdata.UseNative())
	}
	if r.SyncData {
		res = append(res, setdata.UseSyncData())
	}
	if r.OldVal {
		res = append(res, setdata.UseOldVal())
	}
	return res
}

func loadScript(path string) (*Script, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := &Script{}
	if err := yaml.Unmarshal(d, s); err != nil {
		return nil, fmt.Errorf("error decoding script %s: %w", path, err)
	}
	return s, nil
}

// watchEnv is the environment of watch filter expressions.
type watchEnv struct {
	Path string `expr:"path"`
	New  any    `expr:"new"`
	Old  any    `expr:"old"`
}

type watchFilter struct {
	prg *vm.Program
}

func compileFilter(src string) (*watchFilter, error) {
	if src == "" {
		return &watchFilter{}, nil
	}
	prg, err := expr.Compile(src, expr.Env(watchEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("error compiling watch filter %q: %w", src, err)
	}
	return &watchFilter{prg: prg}, nil
}

func (f *watchFilter) match(path string, newVal, oldVal *ir.Node) (bool, error) {
	if f.prg == nil {
		return true, nil
	}
	res, err := expr.Run(f.prg, watchEnv{Path: path, New: newVal.ToAny(), Old: oldVal.ToAny()})
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}
