package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/scott-cotton/cli"
	"github.com/signadot/setdata"
	"github.com/signadot/setdata/debug"
	"github.com/signadot/setdata/host"
	"go.lsp.dev/jsonrpc2"
)

func serve(cfg *ServeConfig, cc *cli.Context, args []string) error {
	_, err := cfg.Serve.Parse(cc, args)
	if err != nil {
		return err
	}
	if cfg.Gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			debug.Warn("gops agent failed", "error", err)
		}
		defer agent.Close()
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := host.NewServer()
	srv.OnCommit = func(instance string, seq int, patch *setdata.PatchSet) {
		debug.Logger().Info("setData", "instance", instance, "seq", seq, "fields", patch.Len())
	}
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(&stdioReadWriteCloser{
		read:  os.Stdin,
		write: os.Stdout,
	}))
	err = srv.Serve(ctx, conn)
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

type stdioReadWriteCloser struct {
	read  io.Reader
	write io.Writer
}

func (s *stdioReadWriteCloser) Read(p []byte) (n int, err error) {
	return s.read.Read(p)
}

func (s *stdioReadWriteCloser) Write(p []byte) (n int, err error) {
	return s.write.Write(p)
}

func (s *stdioReadWriteCloser) Close() error {
	return nil
}
