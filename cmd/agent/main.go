package main

import (
	"fmt"
	"log"
	"os"

	"github.com/machagent/machagent/agent"
	"github.com/machagent/machagent/internal/config"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"
)

func main() {
	app := &cli.App{
		Name:  "machagent",
		Usage: "an HTTP agent that executes shell commands on this host",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to an optional YAML config file.",
				Value: "machagent.yaml",
			},
			&cli.StringFlag{
				Name:  "listen-addr",
				Usage: "The address for the HTTP server to listen on.",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Operator log level. One of [debug,info,warn,error].",
			},
			&cli.StringFlag{
				Name:  "error-log",
				Usage: "Path of the failure-record file. Defaults to app_error.log next to the executable.",
			},
			&cli.StringFlag{
				Name:  "work-dir",
				Usage: "Working directory for executed commands.",
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := config.Load(ctx.String("config"))
			if err != nil {
				return err
			}
			if ctx.IsSet("listen-addr") {
				cfg.ListenAddr = ctx.String("listen-addr")
			}
			if ctx.IsSet("log-level") {
				cfg.LogLevel = ctx.String("log-level")
			}
			if ctx.IsSet("error-log") {
				cfg.ErrorLog = ctx.String("error-log")
			}
			if ctx.IsSet("work-dir") {
				cfg.WorkDir = ctx.String("work-dir")
			}

			level, err := zapcore.ParseLevel(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("parsing log level: %w", err)
			}

			a, err := agent.New(
				agent.WithListenAddr(cfg.ListenAddr),
				agent.WithLogLevel(level),
				agent.WithErrorLogPath(cfg.ErrorLog),
				agent.WithWorkDir(cfg.WorkDir),
			)
			if err != nil {
				return fmt.Errorf("building agent: %w", err)
			}

			fmt.Println("Machine Agent API")
			fmt.Printf("Listening on %s\n", cfg.ListenAddr)
			fmt.Printf("Error logs will be written to: %s\n", a.ErrorLogPath())

			return a.Run()
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
