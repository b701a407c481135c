// Package main is the gpstrack command line tool: it validates tracking
// config files and replays recorded tracks through a tracking session.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edaniels/golog"
	"github.com/fsnotify/fsnotify"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"go.uber.org/zap"
	goutils "go.viam.com/utils"

	"github.com/trackkit/gpstrack/config"
	"github.com/trackkit/gpstrack/provider/replay"
	"github.com/trackkit/gpstrack/session"
	"github.com/trackkit/gpstrack/stats"
)

func main() {
	var logger golog.Logger

	app := &cli.App{
		Name:  "gpstrack",
		Usage: "validate tracking configs and replay recorded tracks",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				logger = golog.NewDebugLogger("gpstrack")
			} else {
				logger = zap.NewNop().Sugar()
			}

			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "check a tracking config file against the documented bounds",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Required: true,
						Usage:    "load tracking configuration from `FILE`",
					},
					&cli.BoolFlag{
						Name:  "normalize",
						Usage: "print the repaired config instead of failing on an invalid one",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := readConfig(c.String("config"))
					if err != nil {
						return err
					}

					res := cfg.Validate()
					for _, w := range res.Warnings {
						fmt.Fprintf(c.App.Writer, "warning: %s\n", w)
					}
					for _, e := range res.Errors {
						fmt.Fprintf(c.App.Writer, "error: %s\n", e)
					}

					if c.Bool("normalize") {
						out, err := json.MarshalIndent(cfg.Normalize(), "", "  ")
						if err != nil {
							return err
						}
						fmt.Fprintln(c.App.Writer, string(out))
						return nil
					}
					if !res.Valid() {
						return errors.New("config invalid")
					}
					fmt.Fprintln(c.App.Writer, "config valid")
					return nil
				},
			},
			{
				Name:  "replay",
				Usage: "run a tracking session over a recorded track file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Required: true,
						Usage:    "load tracking configuration from `FILE`",
					},
					&cli.StringFlag{
						Name:     "track",
						Required: true,
						Usage:    "JSON-lines track `FILE` to replay",
					},
					&cli.Float64Flag{
						Name:  "speed",
						Value: 1,
						Usage: "playback speed factor",
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "watch the config file and apply edits live",
					},
				},
				Action: func(c *cli.Context) error {
					return runReplay(c, logger)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func readConfig(path string) (config.TrackingConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return config.TrackingConfig{}, err
	}
	var cfg config.TrackingConfig
	if err := json5.Unmarshal(raw, &cfg); err != nil {
		return config.TrackingConfig{}, errors.Wrapf(err, "cannot parse %s", path)
	}
	return cfg, nil
}

func runReplay(c *cli.Context, logger golog.Logger) error {
	cfg, err := readConfig(c.String("config"))
	if err != nil {
		return err
	}

	prov, err := replay.New(&replay.Config{
		TrackPath: c.String("track"),
		Speed:     c.Float64("speed"),
	}, logger)
	if err != nil {
		return err
	}

	sess := session.New(prov, logger, session.WithNormalizeInvalid())
	defer goutils.UncheckedErrorFunc(func() error {
		return sess.Close(context.Background())
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub := sess.Subscribe()
	defer sub.Unsubscribe()

	if err := sess.Start(ctx, cfg); err != nil {
		return err
	}

	var watchEvents chan fsnotify.Event
	var watchErrors chan error
	if c.Bool("watch") {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer goutils.UncheckedErrorFunc(watcher.Close)
		if err := watcher.Add(c.String("config")); err != nil {
			return err
		}
		watchEvents = watcher.Events
		watchErrors = watcher.Errors
	}

	for done := false; !done; {
		select {
		case <-ctx.Done():
			done = true
		case smp, ok := <-sub.Samples():
			if !ok {
				done = true
				break
			}
			fmt.Fprintf(c.App.Writer, "%s  %.6f,%.6f  %.1f m/s  ±%.0fm\n",
				smp.Time().Format(time.RFC3339), smp.Latitude, smp.Longitude, smp.SpeedMps, smp.AccuracyM)
		case status, ok := <-sub.Statuses():
			if !ok {
				done = true
				break
			}
			if status.State == session.StateIdle {
				done = true
			}
		case ev := <-watchEvents:
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			newCfg, err := readConfig(c.String("config"))
			if err != nil {
				logger.Warnw("ignoring unparseable config edit", "error", err)
				continue
			}
			if err := sess.UpdateConfig(ctx, newCfg); err != nil {
				logger.Warnw("could not apply config edit", "error", err)
				continue
			}
			logger.Infow("config edit applied", "interval_ms", newCfg.IntervalMs)
		case err := <-watchErrors:
			logger.Warnw("config watcher error", "error", err)
		}
	}

	if err := sess.Stop(context.Background()); err != nil &&
		!errors.Is(err, session.ErrNotTracking) {
		logger.Warnw("stop failed", "error", err)
	}
	if err := sess.Err(); err != nil && !errors.Is(err, replay.ErrEndOfTrack) {
		return err
	}

	printStats(c.App.Writer, sess.Stats())
	return nil
}

func printStats(w io.Writer, snap stats.Snapshot) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Samples", "Distance (m)", "Climb (m)", "Duration", "Avg (m/s)", "Max (m/s)"})
	t.AppendRow(table.Row{
		snap.Count,
		fmt.Sprintf("%.1f", snap.DistanceM),
		fmt.Sprintf("%.1f", snap.ElevationGainM),
		snap.Duration.Round(time.Millisecond),
		fmt.Sprintf("%.2f", snap.AvgSpeedMps),
		fmt.Sprintf("%.2f", snap.MaxSpeedMps),
	})
	t.Render()
}
