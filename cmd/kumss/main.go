// Command kumss is the terminal admin console for the KUMSS backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/kumss/console/internal/api"
	"github.com/kumss/console/internal/config"
	"github.com/kumss/console/internal/database"
	"github.com/kumss/console/internal/database/repository"
	"github.com/kumss/console/internal/dropdown"
	"github.com/kumss/console/internal/kumss"
	"github.com/kumss/console/internal/query"
	"github.com/kumss/console/internal/screen"
	"github.com/kumss/console/internal/secrets"
	"github.com/kumss/console/internal/tui"
)

func main() {
	flags := pflag.NewFlagSet("kumss", pflag.ExitOnError)
	flags.String("config", "", "config file (default ~/.config/kumss/config.toml)")
	flags.String("base-url", "", "API base url, e.g. http://localhost:8000/api/v1")
	flags.String("token", "", "API token; prefer $KUMSS_API_TOKEN")
	flags.String("screen", "", "screen to open first")
	flags.String("log-file", "", "append logs to this file")
	flags.Bool("no-cache", false, "do not read or write the page cache")
	plain := flags.Bool("plain", false, "print the first page of --screen and exit")
	saveToken := flags.Bool("save-token", false, "remember the token for this base url")
	initConfig := flags.Bool("init-config", false, "write the effective config file and exit")
	listScreens := flags.Bool("list-screens", false, "print screen names and exit")
	cacheStats := flags.Bool("cache-stats", false, "print cached page counts per resource and exit")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *initConfig {
		if err := config.Save(cfg); err != nil {
			log.Fatalf("save config: %v", err)
		}
		return
	}

	fileLog, closeLog, err := fileLogger(cfg.Log)
	if err != nil {
		log.Fatalf("log: %v", err)
	}
	defer closeLog()
	// Warnings become toasts once the program is running.
	handler := tui.NewLogHandler(slog.LevelWarn, fileLog.Handler())
	logger := slog.New(handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *cacheStats {
		if err := cacheReport(ctx, cfg.Cache, os.Stdout); err != nil {
			log.Fatalf("cache stats: %v", err)
		}
		return
	}

	token := resolveToken(cfg)
	if *saveToken {
		if err := storeToken(cfg.API.BaseURL, token); err != nil {
			log.Fatalf("save token: %v", err)
		}
	}
	actor, err := config.ResolveActor(cfg.Session, token)
	if err != nil {
		logger.Warn("session token has no readable claims", "err", err)
	}
	if actor.IsZero() {
		logger.Warn("no session user or college; forms will not fill ownership fields")
	}

	client, err := api.New(cfg.API.BaseURL,
		api.WithToken(token),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRateLimit(cfg.API.RatePerSecond, cfg.API.Burst),
		api.WithLogger(logger),
	)
	if err != nil {
		log.Fatalf("api: %v", err)
	}

	opts := []query.Option[api.Record]{
		query.WithTTL[api.Record](cfg.Cache.TTL),
		query.WithLogger[api.Record](logger),
	}
	if cfg.Cache.Enabled {
		db, err := database.OpenMigrated(cfg.Cache.Path)
		if err != nil {
			logger.Warn("page cache unavailable", "path", cfg.Cache.Path, "err", err)
		} else {
			defer db.Close()
			pages := repository.NewPageCacheRepo(db)
			if cfg.Cache.TTL > 0 {
				if n, err := pages.Prune(ctx, time.Now().Add(-24*cfg.Cache.TTL)); err == nil && n > 0 {
					logger.Debug("pruned page cache", "rows", n)
				}
			}
			opts = append(opts, query.WithStore[api.Record](pages))
		}
	}
	pages := query.New[api.Record](func(ctx context.Context, resource string, q url.Values) (*api.Page[api.Record], error) {
		return kumss.Records(client, resource).List(ctx, q)
	}, opts...)
	defer pages.Close()

	refs := dropdown.NewRegistry(ctx, kumss.NewClient(client))
	defs, err := screen.Load(screensFile(cfg.UI.ScreensFile, logger), refs.Kinds())
	if err != nil {
		log.Fatalf("screens: %v", err)
	}
	if *listScreens {
		for _, d := range defs {
			fmt.Printf("%-20s %s\n", d.Name, d.Resource)
		}
		return
	}

	deps := screen.Deps{
		Ctx:      ctx,
		API:      client,
		Query:    pages,
		Refs:     refs,
		Actor:    actor,
		Format:   screen.Formatter{DateFormat: cfg.UI.DateFormat, Location: cfg.Location()},
		PageSize: cfg.UI.PageSize,
	}

	if *plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		if err := printSnapshot(ctx, defs, cfg.UI.Screen, deps); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if cfg.UI.Screen != "" {
		if _, ok := screen.Find(defs, cfg.UI.Screen); !ok {
			log.Fatalf("unknown screen %q (have %s)", cfg.UI.Screen, strings.Join(screen.Names(defs), ", "))
		}
	}
	screens := make([]tui.Screen, 0, len(defs))
	for _, d := range defs {
		screens = append(screens, screen.NewResource(d, deps))
	}

	p := tea.NewProgram(tui.New(ctx, screens, cfg.UI.Screen), tea.WithAltScreen(), tea.WithContext(ctx))
	handler.SetProgram(p)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Printf("error: %v\n", err)
	}
}

func printSnapshot(ctx context.Context, defs []screen.Definition, name string, deps screen.Deps) error {
	if len(defs) == 0 {
		return errors.New("no screens configured")
	}
	def := defs[0]
	if name != "" {
		d, ok := screen.Find(defs, name)
		if !ok {
			return fmt.Errorf("unknown screen %q", name)
		}
		def = d
	}
	width := 120
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	out, err := screen.Snapshot(ctx, def, deps, width)
	fmt.Println(out)
	return err
}

// cacheReport writes the number of cached pages per resource to w.
func cacheReport(ctx context.Context, cfg config.CacheConfig, w io.Writer) error {
	if !cfg.Enabled {
		_, err := fmt.Fprintln(w, "page cache disabled")
		return err
	}
	db, err := database.OpenMigrated(cfg.Path)
	if err != nil {
		return fmt.Errorf("open page cache: %w", err)
	}
	defer db.Close()
	stats, err := repository.NewPageCacheRepo(db).Stats(ctx)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		_, err := fmt.Fprintln(w, "page cache is empty")
		return err
	}
	resources := make([]string, 0, len(stats))
	for r := range stats {
		resources = append(resources, r)
	}
	sort.Strings(resources)
	for _, r := range resources {
		if _, err := fmt.Fprintf(w, "%-40s %d\n", r, stats[r]); err != nil {
			return err
		}
	}
	return nil
}

// fileLogger returns a text logger writing to cfg.File, or a discarding
// one when no file is set.
func fileLogger(cfg config.LogConfig) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	if cfg.File == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}
	h := slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})
	return slog.New(h), func() { _ = f.Close() }, nil
}

// resolveToken prefers the token env var, then config, then the secrets
// store entry for the base url.
func resolveToken(cfg config.Config) string {
	if env := strings.TrimSpace(cfg.API.TokenEnv); env != "" {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	if t := strings.TrimSpace(cfg.API.Token); t != "" {
		return t
	}
	store, err := secrets.Default()
	if err != nil {
		return ""
	}
	t, err := store.Get(cfg.API.BaseURL)
	if err != nil {
		return ""
	}
	return t
}

func storeToken(baseURL, token string) error {
	if token == "" {
		return errors.New("no token given; pass --token or set the token env var")
	}
	store, err := secrets.Default()
	if err != nil {
		return err
	}
	return store.Put(baseURL, token)
}

// screensFile falls back to the built-in screens when the configured
// file does not exist.
func screensFile(path string, logger *slog.Logger) string {
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("screens file not found, using built-in screens", "path", path)
		return ""
	}
	return path
}
