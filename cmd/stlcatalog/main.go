package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jgivc/stlcatalog/internal/app"
	"github.com/jgivc/stlcatalog/internal/printer"
)

const defaultConfig = "config.yml"

type Command struct {
	Config string       `help:"Path to config file." short:"c" default:"${config}"`
	Build  BuildCommand `cmd:"build" help:"Build the catalog once and write it to the configured outputs."`
	Serve  ServeCommand `cmd:"serve" help:"Serve the catalog over HTTP and rebuild it on demand."`
}

type BuildCommand struct {
	Output string `help:"Catalog JSON file, overrides output.file." short:"o" type:"path"`
	Quiet  bool   `help:"Do not print the catalog tree." short:"q"`
}

func (c *BuildCommand) Run(root *Command) error {
	a := app.New(app.Options{
		ConfigPath:    configPath(root.Config),
		OutputFile:    c.Output,
		RequireOutput: true,
	})

	ctx := context.Background()
	if err := a.Init(ctx); err != nil {
		return err
	}
	defer a.Stop()

	result, err := a.Index(ctx)
	if result != nil && !c.Quiet {
		if perr := printer.PrintTree(os.Stdout, "Catalog", result.Catalog); perr != nil {
			return perr
		}
		printer.PrintSummary(os.Stdout, result)
	}

	return err
}

type ServeCommand struct{}

func (s *ServeCommand) Run(root *Command) error {
	a := app.New(app.Options{ConfigPath: configPath(root.Config)})
	if err := a.Init(context.Background()); err != nil {
		return err
	}

	a.Start()

	c := make(chan os.Signal, 1)
	defer close(c)
	done := make(chan struct{})

	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)
	go func() {
		defer close(done)

		for sig := range c {
			switch sig {
			case syscall.SIGUSR1:
				go a.Reindex()
			case syscall.SIGTERM, syscall.SIGINT:
				fmt.Println("Received termination signal. Shutting down...")

				return
			}
		}
	}()

	<-done
	signal.Stop(c)
	a.Stop()
	time.Sleep(time.Second)
	fmt.Println("done")

	return nil
}

// configPath drops the default config file when it does not exist, so the
// tool runs on defaults and environment alone.
func configPath(path string) string {
	if path != defaultConfig {
		return path
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ""
	}

	return path
}

func main() {
	command := new(Command)
	ctx := kong.Parse(
		command,
		kong.Name("stlcatalog"),
		kong.Description("Catalog builder for trees of 3D model files"),
		kong.UsageOnError(),
		kong.Vars{"config": defaultConfig},
	)
	err := ctx.Run(command)
	ctx.FatalIfErrorf(err)
}
