// Matchstream scrapes football listing sites for match metadata and live
// stream links, and serves the persisted results over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"matchstream/config"
	"matchstream/pipeline"
	"matchstream/store"
	"matchstream/web"
)

func main() {
	command := "scrape"
	configPath := ""
	initConfig := false
	interval := time.Duration(0)

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "scrape", "serve", "migrate":
			command = arg
		case "--config", "-c":
			if i+1 < len(args) {
				i++
				configPath = args[i]
			}
		case "--interval":
			if i+1 < len(args) {
				i++
				d, err := time.ParseDuration(args[i])
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: invalid interval %q\n", args[i])
					os.Exit(1)
				}
				interval = d
			}
		case "--init-config":
			initConfig = true
		case "-h", "--help":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "error: unknown argument %q\n", arg)
			printUsage()
			os.Exit(1)
		}
	}

	if initConfig {
		if err := config.WriteExample(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("wrote starter config")
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Debug)

	if cfg.DatabaseURL == "" {
		log.Fatal("no database URL configured (set DATABASE_URL)")
	}
	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "migrate":
		if err := st.Migrate(ctx); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		log.Info("database migrated")

	case "serve":
		loc, err := cfg.Location()
		if err != nil {
			log.WithError(err).Fatal("bad timezone")
		}
		srv := &web.Server{Store: st, Log: log, Loc: loc}
		if err := srv.ListenAndServe(ctx, cfg.ListenAddr); err != nil {
			log.WithError(err).Fatal("server failed")
		}

	case "scrape":
		p, err := pipeline.New(cfg, st, log)
		if err != nil {
			log.WithError(err).Fatal("pipeline setup failed")
		}
		if err := p.Run(ctx); err != nil {
			log.WithError(err).Fatal("run failed")
		}
		for interval > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
			if err := p.Run(ctx); err != nil {
				log.WithError(err).Error("run failed")
			}
		}
	}
}

func newLogger(debug bool) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func printUsage() {
	fmt.Println(`matchstream - football match and stream link scraper

Usage:
  matchstream [command] [flags]

Commands:
  scrape          Run one scrape of the three rolling days (default)
  serve           Serve the read API over the persisted rows
  migrate         Create the database schema and refresh function

Flags:
  -c, --config PATH   Config file (default: ./config.yaml if present)
      --interval DUR  Keep scraping on a fixed interval (e.g. 5m)
      --init-config   Write a commented starter config and exit
  -h, --help          Show this help`)
}
