package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/app"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/config"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/db"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/eta"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/livefeed"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/logging"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/metrics"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/publisher"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/recorder"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/stats"
)

type runtime struct {
	cfg       *config.Config
	collector *metrics.Collector
	est       *eta.Estimator
	feed      *livefeed.Client
}

func setup() (*runtime, error) {
	config.LoadDotEnv(".")
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.LogFormat, cfg.LogLevel)

	collector := metrics.NewCollector()
	est, err := app.NewEstimator(cfg, collector)
	if err != nil {
		return nil, err
	}
	return &runtime{
		cfg:       cfg,
		collector: collector,
		est:       est,
		feed:      app.NewFeed(cfg, collector),
	}, nil
}

func main() {
	cliApp := &cli.App{
		Name:  "etactl",
		Usage: "Bus ETA and delay tools over the live feed",

		Commands: []*cli.Command{
			activeRoutesCommand(),
			trackCommand(),
			recordCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func activeRoutesCommand() *cli.Command {
	return &cli.Command{
		Name:  "active-routes",
		Usage: "list routes with at least one live bus",
		Action: func(c *cli.Context) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			routes := stats.ActiveRoutes(rt.est.Schedule(), rt.feed.Snapshot(c.Context))
			if len(routes) == 0 {
				fmt.Fprintln(c.App.Writer, "No buses are currently live.")
				return nil
			}
			for _, r := range routes {
				fmt.Fprintf(c.App.Writer, "%d\t%s\n", r.RouteID, r.RouteShortName)
			}
			fmt.Fprintf(c.App.Writer, "%d active routes\n", len(routes))
			return nil
		},
	}
}

func trackCommand() *cli.Command {
	return &cli.Command{
		Name:  "track",
		Usage: "show next stop ETA and delay status for every live bus on a route",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:     "route",
				Usage:    "route id to track",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			routeID := c.Int64("route")
			buses := stats.TrackRoute(c.Context, rt.est, rt.feed.Snapshot(c.Context), routeID)
			if len(buses) == 0 {
				fmt.Fprintf(c.App.Writer, "No live buses on route %d.\n", routeID)
				return nil
			}
			fmt.Fprintf(c.App.Writer, "Route %d (%s) at %s\n", routeID, rt.est.Schedule().RouteName(routeID), rt.est.Now().Format(eta.ETAFormat))
			for _, b := range buses {
				fmt.Fprintf(c.App.Writer, "  bus %s trip %d: next stop %s at %s, %s (%+.0fs)\n",
					b.VehicleID, b.TripID, b.NextStop, b.ETA, b.Status, b.DelaySeconds)
			}
			return nil
		},
	}
}

func recordCommand() *cli.Command {
	return &cli.Command{
		Name:  "record",
		Usage: "poll the live feed and keep hourly delay history",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "poll interval (defaults to RECORD_INTERVAL_SECONDS)",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve Prometheus metrics on this address, e.g. :9100",
			},
		},
		Action: func(c *cli.Context) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			interval := rt.cfg.RecordInterval
			if c.IsSet("interval") {
				interval = c.Duration("interval")
			}
			if interval < time.Second {
				return fmt.Errorf("interval must be at least 1s, got %v", interval)
			}

			store, err := db.Connect(rt.cfg.StatsDatabase)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.EnsureSchema(c.Context); err != nil {
				return err
			}

			var pub publisher.Publisher = publisher.Nop{}
			if rt.cfg.NATSURL != "" {
				np, err := publisher.NewNATSPublisher(rt.cfg.NATSURL, rt.collector)
				if err != nil {
					log.Warn().Err(err).Msg("Publishing disabled")
				} else {
					pub = np
				}
			}
			defer pub.Close()

			rec := recorder.New(rt.est, rt.feed, store, pub, recorder.Config{
				OnTimeThresholdSeconds: rt.cfg.OnTimeThresholdSeconds,
				Retention:              rt.cfg.RetentionDuration,
			})

			if addr := c.String("metrics-addr"); addr != "" {
				srv := &http.Server{Addr: addr, Handler: rt.collector.Handler(), ReadHeaderTimeout: 10 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error().Err(err).Msg("Metrics server failed")
					}
				}()
				defer srv.Close()
			}

			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()

			done := make(chan struct{})
			go func() {
				rec.Run(ctx, interval)
				close(done)
			}()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sig)

			<-sig
			log.Info().Msg("Shutting down")
			cancel()
			<-done
			return nil
		},
	}
}
