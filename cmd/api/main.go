package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"guildstock.gg/internal/access"
	"guildstock.gg/internal/config"
	"guildstock.gg/internal/guild"
	"guildstock.gg/internal/httpapi"
	"guildstock.gg/internal/identity"
	"guildstock.gg/internal/ledger"
	"guildstock.gg/internal/obs"
	"guildstock.gg/internal/resource"
	"guildstock.gg/internal/rolecfg"
	"guildstock.gg/internal/session"
	"guildstock.gg/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	hierarchy, issues, err := rolecfg.ParseHierarchy([]byte(cfg.Roles.Hierarchy))
	if err != nil {
		log.Fatalf("parse role hierarchy: %v", err)
	}
	for _, issue := range issues {
		obs.Warn("role hierarchy entry dropped", map[string]any{"issue": issue.String()})
	}

	var (
		guildStore    guild.Store
		ledgerStore   ledger.Store
		resourceStore resource.Store
		bonus         ledger.BonusSource
		db            *sql.DB
	)
	if cfg.Database.URL != "" {
		store, err := pg.Open(cfg.Database.URL, pg.Options{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		})
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer store.Close()
		guildStore = store
		ledgerStore = store
		resourceStore = store.Resources()
		bonus = store
		db = store.DB()
	} else {
		obs.Warn("no database configured, using in-memory stores", nil)
		guildStore = guild.NewInMemory()
		ledgerStore = ledger.NewInMemory()
		resourceStore = resource.NewInMemory()
	}

	directory := identity.NewRESTDirectory(cfg.Directory.BaseURL, cfg.Directory.BotToken)
	identities := identity.NewResolver(directory, guildStore)

	sessions, err := session.NewManager(
		cfg.Session.Secret,
		cfg.Session.TTL,
		cfg.Session.RefreshAfter,
		identities,
		access.NewResolver(hierarchy),
		cfg.Access.SuperAdminUserID,
	)
	if err != nil {
		log.Fatalf("session manager: %v", err)
	}

	board := ledger.NewService(ledgerStore, bonus)
	engine := guild.NewEngine(guildStore, cfg.Access.SuperAdminUserID)
	resources := resource.NewService(resourceStore, guildStore, board)

	api := httpapi.New(httpapi.Options{
		Version:        version,
		ReadyProbe:     httpapi.ReadyProbe{DB: db},
		Sessions:       sessions,
		Guilds:         engine,
		Board:          board,
		Resources:      resources,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           api.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	log.Printf("starting %s %s on %s", cfg.App.Name, version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Println("stopped")
}
