package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/scott-cotton/cli"
	"github.com/signadot/setdata"
	"github.com/signadot/setdata/debug"
	"github.com/signadot/setdata/host"
	"github.com/signadot/setdata/ir"
	"github.com/signadot/setdata/metrics"
	"github.com/signadot/setdata/tick"
	"github.com/signadot/setdata/watch"
	"golang.org/x/sync/errgroup"
)

func replay(cfg *ReplayConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Replay.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: replay requires 1 script, got %v", cli.ErrUsage, args)
	}
	if !cfg.Follow {
		return replayFile(cfg, cc.Out, args[0])
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return replayFollow(ctx, cfg, cc.Out, args[0])
}

func replayFollow(ctx context.Context, cfg *ReplayConfig, w io.Writer, file string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to watch %s: %w", file, err)
	}
	defer fw.Close()
	if err := fw.Add(file); err != nil {
		return fmt.Errorf("unable to watch %s: %w", file, err)
	}
	runs := make(chan struct{}, 1)
	runs <- struct{}{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev, ok := <-fw.Events:
				if !ok {
					return nil
				}
				if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					// editors replace the file; watch the new one
					if err := fw.Add(file); err != nil {
						debug.Warn("unable to watch script again", "file", file, "error", err)
						continue
					}
				}
				select {
				case runs <- struct{}{}:
				default:
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return nil
				}
				return err
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-runs:
				if err := replayFile(cfg, w, file); err != nil {
					fmt.Fprintf(w, "# error: %v\n", err)
				}
				fmt.Fprintln(w, "---")
			}
		}
	})
	return g.Wait()
}

func replayFile(cfg *ReplayConfig, w io.Writer, file string) error {
	script, err := loadScript(file)
	if err != nil {
		return err
	}
	if cfg.Config != "" {
		c, err := setdata.LoadConfig(cfg.Config)
		if err != nil {
			return err
		}
		script.Config = *c
	}
	if !cfg.Metrics {
		return runScript(script, w, cfg.heading(w))
	}
	reg := prometheus.NewRegistry()
	col, err := metrics.New(reg)
	if err != nil {
		return err
	}
	if err := runScript(script, w, cfg.heading(w), setdata.WithObserver(col)); err != nil {
		return err
	}
	return printMetrics(w, reg)
}

func printMetrics(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "# metrics")
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s %g\n", mf.GetName(), m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s count=%d sum=%gs\n", mf.GetName(), h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return nil
}

type printer interface {
	Sprintf(format string, a ...any) string
}

// printHost prints each commit before applying it.
type printHost struct {
	*host.Memory
	w io.Writer
	p printer
	n int
}

func (h *printHost) Commit(patch *setdata.PatchSet, done func()) {
	h.n++
	fmt.Fprintln(h.w, h.p.Sprintf("# commit %d", h.n))
	if err := writePatch(h.w, patch, false); err != nil {
		debug.Warn("unable to print commit", "error", err)
	}
	h.Memory.Commit(patch, done)
}

func runScript(script *Script, w io.Writer, p printer, extra ...setdata.Opt) error {
	loop := tick.New()
	h := &printHost{Memory: host.NewMemory(ir.FromAny(script.State), loop), w: w, p: p}
	if h.Data().Type != ir.ObjectType {
		return fmt.Errorf("%w: script state must be a map", ir.ErrBadFormat)
	}

	opts := script.Config.Opts()
	if len(script.Watch) != 0 {
		callbacks := make(map[string]watch.Callback, len(script.Watch))
		for path, src := range script.Watch {
			filter, err := compileFilter(src)
			if err != nil {
				return err
			}
			callbacks[path] = func(newVal, oldVal *ir.Node) {
				ok, err := filter.match(path, newVal, oldVal)
				if err != nil {
					fmt.Fprintf(w, "# watch %s: %v\n", path, err)
					return
				}
				if ok {
					fmt.Fprintln(w, p.Sprintf("# watch %s: %s -> %s", path, oldVal.ScalarString(), newVal.ScalarString()))
				}
			}
		}
		opts = append(opts, setdata.WithWatcher(watch.New(h.Data(), callbacks)))
	}
	opts = append(opts, extra...)
	sched := setdata.New(h, loop, opts...)

	for i, reqs := range script.Ticks {
		loop.NextTick(func() {
			for j := range reqs {
				req := &reqs[j]
				sched.RequestUpdate(req.changes(), func() {
					fmt.Fprintln(w, p.Sprintf("# tick %d request %d done", i, j))
				}, req.opts()...)
			}
		})
		loop.Drain()
	}
	fmt.Fprintln(w, p.Sprintf("# state"))
	d, err := ir.MarshalYAML(h.Data())
	if err != nil {
		return err
	}
	_, err = w.Write(d)
	return err
}
