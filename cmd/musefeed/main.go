package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"musefeed/internal/cmdlog"
	"musefeed/internal/config"
	"musefeed/internal/ingest"
	"musefeed/internal/retention"
	"musefeed/internal/sample"
	"musefeed/internal/server"
	"musefeed/internal/source"
	"musefeed/internal/store/tweetstore"
	"musefeed/internal/theme"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "creator":
		cmdCreator()
	case "budget":
		cmdBudget()
	case "ingest":
		cmdIngest()
	case "sample":
		cmdSample()
	case "sweep":
		cmdSweep()
	case "serve":
		cmdServe()
	default:
		printHelp()
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: musefeed <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init      Create a config file at ./musefeed.yaml")
	fmt.Println("  creator   Add, pause, resume, or remove a tracked creator")
	fmt.Println("  budget    Show or set the daily ingestion budget")
	fmt.Println("  ingest    Run one ingestion pass now")
	fmt.Println("  sample    Print a balanced sample of stored tweets")
	fmt.Println("  sweep     Delete stored tweets past the retention window")
	fmt.Println("  serve     Run the HTTP server (cron triggers, sample, metrics)")
}

func loadConfig(path string) config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Println("error: cannot load config:", err)
		os.Exit(1)
	}
	return cfg
}

func openStore(cfg config.Config) *tweetstore.DB {
	db, err := tweetstore.Open(cfg.Storage.DBPath)
	if err != nil {
		fmt.Println("error: cannot open store:", err)
		os.Exit(1)
	}
	return db
}

func selectSource(cfg config.Config) source.Source {
	src, err := source.Select(cfg.Providers)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	return src
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./musefeed.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	cfg := config.Default()
	if err := config.Save(*path, cfg); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
}

func cmdCreator() {
	fs := flag.NewFlagSet("creator", flag.ExitOnError)
	cfgPath := fs.String("config", "./musefeed.yaml", "path to config")
	user := fs.String("user", "", "user id (defaults to the configured owner)")
	add := fs.String("add", "", "handle to start tracking")
	count := fs.Int("count", 10, "requested daily tweet count for -add")
	pause := fs.String("pause", "", "handle to pause")
	resume := fs.String("resume", "", "handle to resume")
	remove := fs.String("remove", "", "handle to remove (deletes its stored tweets)")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	if *user == "" {
		*user = cfg.Account.UserID
	}
	db := openStore(cfg)
	defer db.Close()
	ctx := context.Background()
	err := cmdlog.Run("creator", func() error {
		switch {
		case *add != "":
			src := selectSource(cfg)
			handle := source.NormalizeHandle(*add)
			check := src.ValidateHandle(ctx, handle)
			if !check.Valid {
				return fmt.Errorf("cannot track %q: %s", handle, check.Err)
			}
			c, err := db.AddCreator(ctx, *user, handle, check.ProviderUserID, *count)
			if err != nil {
				return err
			}
			fmt.Printf("Tracking @%s (id %s, %d tweets/day requested)\n", c.Handle, c.ID, c.RequestedDailyCount)
			return nil
		case *pause != "":
			return setActive(ctx, db, *user, *pause, false)
		case *resume != "":
			return setActive(ctx, db, *user, *resume, true)
		case *remove != "":
			c, err := db.FindCreatorByHandle(ctx, *user, source.NormalizeHandle(*remove))
			if err != nil {
				return fmt.Errorf("unknown creator %q", *remove)
			}
			if err := db.DeleteCreator(ctx, c.ID); err != nil {
				return err
			}
			fmt.Printf("Removed @%s and its stored tweets\n", c.Handle)
			return nil
		}
		return fmt.Errorf("one of -add, -pause, -resume, -remove is required")
	})
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func setActive(ctx context.Context, db *tweetstore.DB, user, handle string, active bool) error {
	c, err := db.FindCreatorByHandle(ctx, user, source.NormalizeHandle(handle))
	if err != nil {
		return fmt.Errorf("unknown creator %q", handle)
	}
	if err := db.SetCreatorActive(ctx, c.ID, active); err != nil {
		return err
	}
	if active {
		fmt.Printf("Resumed @%s\n", c.Handle)
	} else {
		fmt.Printf("Paused @%s\n", c.Handle)
	}
	return nil
}

func cmdBudget() {
	fs := flag.NewFlagSet("budget", flag.ExitOnError)
	cfgPath := fs.String("config", "./musefeed.yaml", "path to config")
	user := fs.String("user", "", "user id (defaults to the configured owner)")
	set := fs.Int("set", -1, "set the daily tweet limit")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	if *user == "" {
		*user = cfg.Account.UserID
	}
	db := openStore(cfg)
	defer db.Close()
	ctx := context.Background()
	err := cmdlog.Run("budget", func() error {
		if *set >= 0 {
			if err := db.SetDailyLimit(ctx, *user, *set); err != nil {
				return err
			}
			fmt.Printf("Daily limit for %s set to %d\n", *user, *set)
			return nil
		}
		limit, ok, err := db.DailyLimit(ctx, *user)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("Daily limit for %s: %d (default)\n", *user, cfg.Ingestion.DefaultDailyLimit)
		} else {
			fmt.Printf("Daily limit for %s: %d\n", *user, limit)
		}
		return nil
	})
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func cmdIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	cfgPath := fs.String("config", "./musefeed.yaml", "path to config")
	user := fs.String("user", "", "user id (defaults to the configured owner)")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	if *user == "" {
		*user = cfg.Account.UserID
	}
	db := openStore(cfg)
	defer db.Close()
	src := selectSource(cfg)
	err := cmdlog.Run("ingest", func() error {
		n, err := ingest.RunOnce(context.Background(), db, src, cfg, *user)
		if err != nil {
			return err
		}
		fmt.Printf("Ingested %d tweets\n", n)
		return nil
	})
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func cmdSample() {
	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	cfgPath := fs.String("config", "./musefeed.yaml", "path to config")
	user := fs.String("user", "", "user id (defaults to the configured owner)")
	limit := fs.Int("limit", 0, "max tweets to sample (defaults from config)")
	days := fs.Int("days", 0, "how many days back to sample (defaults from config)")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	if *user == "" {
		*user = cfg.Account.UserID
	}
	if *limit <= 0 {
		*limit = cfg.Sampling.Limit
	}
	if *days <= 0 {
		*days = cfg.Sampling.DaysBack
	}
	db := openStore(cfg)
	defer db.Close()
	err := cmdlog.Run("sample", func() error {
		tweets, err := sample.NewRandom().Sample(context.Background(), db, *user, sample.Options{Limit: *limit, DaysBack: *days})
		if err != nil {
			return err
		}
		for _, t := range tweets {
			fmt.Printf("@%s  %s\n  %s\n", t.AuthorHandle, t.PublishedAt.Format(time.RFC3339), t.Content)
		}
		fmt.Printf("(%d tweets)\n", len(tweets))
		return nil
	})
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func cmdSweep() {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	cfgPath := fs.String("config", "./musefeed.yaml", "path to config")
	days := fs.Int("days", 0, "retention window in days (defaults from config)")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	if *days <= 0 {
		*days = cfg.Ingestion.RetentionDays
	}
	db := openStore(cfg)
	defer db.Close()
	err := cmdlog.Run("sweep", func() error {
		n, err := retention.Sweep(context.Background(), db, *days)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d tweets older than %d days\n", n, *days)
		return nil
	})
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func cmdServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "./musefeed.yaml", "path to config")
	loop := fs.Bool("loop", false, "also run the ingestion loop on the configured interval")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	db := openStore(cfg)
	defer db.Close()
	src := selectSource(cfg)
	if *loop {
		interval := time.Duration(cfg.Ingestion.IntervalMinutes) * time.Minute
		go func() {
			_ = ingest.RunLoop(context.Background(), db, src, cfg, cfg.Account.UserID, interval)
		}()
	}
	s := server.New(cfg, db, src)
	if err := s.Start(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}
