package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"studyplan/internal/app"
	"studyplan/internal/render"
)

const usage = `usage: planner [-config path] <command> [flags]

commands:
  plan        sequence the configured tracks and print the list
  show        print month grids (-offset N, -months N, -ref YYYY-MM-DD, -saved)
  agenda      print one day's sessions (-date YYYY-MM-DD, -user u)
  save        sequence and store a snapshot (-user u)
  load        print a stored snapshot as month grids (-user u, -offset N, -months N, -list)
  edit        edit one entry of a stored snapshot
              (-user u -entry ID and one of -move DATE, -color N, -resize I=MIN)
  delete      remove a stored snapshot (-user u)
  snapshots   list stored snapshots
  serve       run reminders with config hot reload
`

func main() {
	var (
		cfgPath string
		noColor bool
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml/json")
	flag.BoolVar(&noColor, "no-color", false, "disable colored output")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath, app.WithConsoleOut(os.Stderr))
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	color := !noColor && isatty.IsTerminal(os.Stdout.Fd())
	c := &cli{app: a, out: os.Stdout, r: render.New(color)}
	err = c.run(ctx, flag.Arg(0), flag.Args()[1:])
	_ = a.Close()

	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	case errors.Is(err, flag.ErrHelp):
		os.Exit(0)
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type cli struct {
	app *app.App
	out io.Writer
	r   *render.Renderer
}
