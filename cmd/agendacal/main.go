package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"agendacal/internal/config"
	"agendacal/internal/directory"
	"agendacal/internal/events"
	"agendacal/internal/geocode"
	"agendacal/internal/ics"
	"agendacal/internal/layout"
	appLog "agendacal/internal/log"
	"agendacal/internal/metrics"
	"agendacal/internal/model"
	"agendacal/internal/preset"
	"agendacal/internal/refresh"
	"agendacal/internal/week"
	"agendacal/internal/web"
)

type flagConfig struct {
	configPath string
	envFile    string
	listen     string
	once       bool
	week       string
	icsOut     string
}

// app is the wired engine shared by the server and -once modes.
type app struct {
	cfg      *config.Config
	loc      *time.Location
	resolver *week.Resolver
	repo     *events.Repository
	feeds    *ics.Source
	grid     layout.Grid
	dir      directory.Directory
	geo      geocode.Searcher
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if err := conf.ApplyEnv(flags.envFile); err != nil {
		appLog.Error("failed to read env file", err, "env_file", flags.envFile)
		os.Exit(1)
	}
	// CLI --listen overrides config and environment.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("agendacal starting",
		"listen", conf.Listen,
		"locale", conf.Locale,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"ics_count", len(conf.ICS),
		"once", flags.once,
	)

	a, err := newApp(conf)
	if err != nil {
		appLog.Error("failed to initialize", err)
		os.Exit(1)
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.once {
		if err := a.runOnce(ctx, os.Stdout, flags.week, flags.icsOut); err != nil {
			appLog.Error("one-shot run failed", err)
			os.Exit(1)
		}
		return
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.MustNewMetrics(reg)

	sched, err := refresh.New(conf.RefreshCron, a.feeds)
	if err != nil {
		appLog.Error("invalid refresh schedule", err)
		os.Exit(1)
	}
	sched.WithMetrics(m)
	if err := sched.Start(ctx); err != nil {
		appLog.Error("failed to start refresh scheduler", err)
		os.Exit(1)
	}

	srv := web.NewServer(conf, web.Deps{
		Resolver:  a.resolver,
		Repo:      a.repo,
		Grid:      a.grid,
		Directory: a.dir,
		Geocoder:  a.geo,
		Location:  a.loc,
		Metrics:   m,
	})
	if err := srv.ListenAndServe(ctx); err != nil {
		appLog.Error("HTTP server failed", err)
		cancel()
		sched.Stop()
		os.Exit(1)
	}
	sched.Stop()
	appLog.Info("agendacal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./agendacal.yaml", "Path to config file")
	flag.StringVar(&cfg.envFile, "env", ".env", "Optional dotenv file with AGENDACAL_* overrides")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Refresh feeds, print one week's agenda and exit")
	flag.StringVar(&cfg.week, "week", "", "Week for -once: ISO date or \"dd/mm - dd/mm\" label (default: current week)")
	flag.StringVar(&cfg.icsOut, "ics-out", "", "With -once, also write the week as an .ics file")

	flag.Parse()

	return cfg
}

func newApp(conf *config.Config) (*app, error) {
	loc := resolveLocationOrLocal(conf.Timezone)
	gen := week.NewGenerator(conf.Locale)
	presets := preset.Default(gen)

	fetcher := ics.NewFetcher(conf.CacheDir, 15*time.Second)
	feeds := ics.NewSource(fetcher, feedsFromConfig(conf.ICS), gen, loc)

	var dir directory.Directory = directory.Sample()
	if conf.Directory != "" {
		d, err := directory.Load(conf.Directory)
		if err != nil {
			return nil, err
		}
		dir = d
	}

	client := geocode.NewClient(conf.Geocoder.URL, time.Duration(conf.Geocoder.TimeoutSeconds)*time.Second)
	geo, err := geocode.NewCached(client, conf.Geocoder.CacheSize)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      conf,
		loc:      loc,
		resolver: week.NewResolver(gen, presets),
		repo:     events.NewRepository(events.Sources{presets, feeds}),
		feeds:    feeds,
		grid:     gridFromConfig(conf.Grid),
		dir:      dir,
		geo:      geo,
	}, nil
}

func (a *app) runOnce(ctx context.Context, out io.Writer, weekKey, icsOut string) error {
	if err := a.feeds.Refresh(ctx); err != nil {
		// Unreachable feeds are reported but do not stop the run.
		appLog.Warn("some feeds failed to refresh", "error", err.Error())
	}

	wk, err := a.resolver.ResolveAny(weekKey)
	if err != nil {
		return err
	}
	evs := events.FilterSort(a.repo.Events(wk.ID), "", wk)
	printAgenda(out, wk, evs)

	if icsOut != "" {
		body := ics.Export(wk, evs, a.loc, time.Now())
		if err := os.WriteFile(icsOut, []byte(body), 0o644); err != nil {
			return err
		}
		appLog.Info("week exported", "path", icsOut, "week", wk.ID, "events", len(evs))
	}
	return nil
}

func printAgenda(w io.Writer, wk model.Week, evs []model.Event) {
	fmt.Fprintf(w, "Semaine %s (%s)\n", wk.RangeLabel, wk.ID)
	byDay := events.ByDay(evs)
	for _, d := range wk.Days {
		fmt.Fprintf(w, "\n%s\n", d.Label)
		dayEvents := byDay[d.ID]
		if len(dayEvents) == 0 {
			fmt.Fprintln(w, "  -")
			continue
		}
		for _, ev := range dayEvents {
			line := fmt.Sprintf("  %s-%s  %s", ev.Start, ev.End, ev.Title)
			if ev.Location != "" {
				line += " @ " + ev.Location
			}
			if len(ev.Icons) > 0 {
				line += " [" + strings.Join(ev.Icons, ",") + "]"
			}
			fmt.Fprintln(w, line)
		}
	}
}

func feedsFromConfig(in []config.ICSConfig) []ics.Feed {
	out := make([]ics.Feed, 0, len(in))
	for _, c := range in {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			if c.Name != "" {
				id = c.Name
			} else {
				id = c.URL
			}
		}
		out = append(out, ics.Feed{ID: id, Name: c.Name, URL: c.URL, Color: model.Color(c.Color)})
	}
	return out
}

func gridFromConfig(g config.GridConfig) layout.Grid {
	return layout.Grid{
		StartHour:        g.StartHour,
		EndHour:          g.EndHour,
		HourHeight:       g.HourHeight,
		MinBlockHeight:   g.MinBlockHeight,
		CompactThreshold: g.CompactThreshold,
	}
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}
