package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/scott-cotton/cli"
	"github.com/signadot/setdata/ir"
)

func paths(cfg *PathsConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Paths.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: paths requires at least one path expression", cli.ErrUsage)
	}
	h := cfg.heading(cc.Out)
	for _, arg := range args {
		fields := ir.PathFields(arg)
		quoted := make([]string, len(fields))
		for i, f := range fields {
			quoted[i] = strconv.Quote(f)
		}
		fmt.Fprintf(cc.Out, "%s [%s] %s\n", h.Sprint(arg), strings.Join(quoted, " "), ir.JSONPointer(fields))
	}
	return nil
}
