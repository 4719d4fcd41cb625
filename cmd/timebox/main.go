package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"timebox/internal/capture"
	"timebox/internal/config"
	"timebox/internal/ics"
	appLog "timebox/internal/log"
	"timebox/internal/store"
	"timebox/internal/web"
)

const version = "0.1.0"

func main() {
	// A .env file is optional; real env always wins.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "timebox",
		Usage:   "Personal calendar with a time-blocking layout engine.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "./config.yaml",
				Usage:   "Path to the YAML config file",
				EnvVars: []string{"TIMEBOX_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Use working-directory cache paths and verbose logging",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			exportCommand(),
			previewCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		appLog.Error("timebox failed", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if c.Bool("debug") {
		appLog.SetLevel(appLog.LevelDebug)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server and the periodic subscription refresh.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "HTTP listen address (overrides config if set)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if l := c.String("listen"); l != "" {
				cfg.Listen = l
			}

			appLog.Info("timebox starting",
				"version", version,
				"listen", cfg.Listen,
				"timezone", cfg.Timezone,
				"refresh", cfg.RefreshCron,
				"ics_count", len(cfg.ICS),
				"caldav", cfg.CalDAV != nil,
			)

			loc, err := cfg.Location()
			if err != nil {
				return fmt.Errorf("bad timezone %q: %w", cfg.Timezone, err)
			}

			st, err := store.New(cfg.DBPath, loc)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() { _ = st.Close() }()

			srv := web.NewServer(cfg, st, c.Bool("debug"))

			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigCh
				appLog.Info("signal received, shutting down", "signal", sig.String())
				cancel()
			}()

			// First refresh happens before serving so the initial page
			// already has subscription data.
			srv.RefreshRemote(ctx)

			sched := cron.New()
			_, err = sched.AddFunc(cfg.RefreshCron, func() {
				srv.RefreshRemote(ctx)
			})
			if err != nil {
				return fmt.Errorf("bad refresh schedule %q: %w", cfg.RefreshCron, err)
			}
			sched.Start()
			defer sched.Stop()

			return web.StartServer(ctx, srv)
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write locally created events as an iCalendar file.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "out",
				Value: "timebox_calendar.ics",
				Usage: "Output .ics path (\"-\" for stdout)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			loc, err := cfg.Location()
			if err != nil {
				return fmt.Errorf("bad timezone %q: %w", cfg.Timezone, err)
			}

			st, err := store.New(cfg.DBPath, loc)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() { _ = st.Close() }()

			events, err := st.List(c.Context)
			if err != nil {
				return fmt.Errorf("list events: %w", err)
			}

			body := ics.Export(events, time.Now())

			out := c.String("out")
			if out == "-" {
				fmt.Print(body)
				return nil
			}
			if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			appLog.Info("calendar exported", "path", out, "event_count", len(events))
			return nil
		},
	}
}

func previewCommand() *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "Capture the calendar page of a running server as a PNG.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "view",
				Usage: "View to capture: day, week or month (default: server state)",
			},
			&cli.StringFlag{
				Name:  "date",
				Usage: "Date to capture as YYYY-MM-DD (default: server state)",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Output PNG path (default: the path /preview.png serves)",
			},
			&cli.IntFlag{Name: "width", Value: capture.DefaultWidth, Usage: "Viewport width"},
			&cli.IntFlag{Name: "height", Value: capture.DefaultHeight, Usage: "Viewport height"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			out := c.String("out")
			if out == "" {
				out = web.PreviewPath(c.Bool("debug"))
			}

			opts := capture.Options{
				URL:        "http://" + cfg.Listen + "/calendar",
				View:       c.String("view"),
				Date:       c.String("date"),
				OutputPath: out,
				Width:      c.Int("width"),
				Height:     c.Int("height"),
			}
			if cfg.BasicAuth != nil {
				opts.Username = cfg.BasicAuth.Username
				opts.Password = cfg.BasicAuth.Password
			}

			if err := capture.CalendarPNG(c.Context, opts); err != nil {
				return err
			}
			appLog.Info("preview captured", "path", out)
			return nil
		},
	}
}
