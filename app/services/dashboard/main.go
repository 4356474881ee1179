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

	"github.com/ardanlabs/conf/v3"
	"github.com/blocksim/blocksim/app/services/dashboard/handlers"
	"github.com/blocksim/blocksim/business/core/session"
	"github.com/blocksim/blocksim/foundation/blockchain/database"
	"github.com/blocksim/blocksim/foundation/blockchain/database/storage"
	"github.com/blocksim/blocksim/foundation/blockchain/genesis"
	"github.com/blocksim/blocksim/foundation/events"
	"github.com/blocksim/blocksim/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("DASHBOARD")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:60s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			APIHost         string        `conf:"default:0.0.0.0:8080"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			CorsOrigin      string        `conf:"default:*"`
		}
		Chain struct {
			GenesisPath string
			DBPath      string `conf:"default:zblock/blockchain.json"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "proof of work ledger dashboard",
		},
	}

	const prefix = "DASHBOARD"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	fmt.Println(`  ____  _     ___   ____ _  ______ ___ __  __ `)
	fmt.Println(` | __ )| |   / _ \ / ___| |/ / ___|_ _|  \/  |`)
	fmt.Println(` |  _ \| |  | | | | |   | ' /\___ \| || |\/| |`)
	fmt.Println(` | |_) | |__| |_| | |___| . \ ___) | || |  | |`)
	fmt.Println(` |____/|_____\___/ \____|_|\_\____/___|_|  |_|`)
	fmt.Print("\n")

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Blockchain Support

	gen := genesis.Default()
	if cfg.Chain.GenesisPath != "" {
		gen, err = genesis.Load(cfg.Chain.GenesisPath)
		if err != nil {
			return fmt.Errorf("unable to load genesis file: %w", err)
		}
	}

	// The chain packages accept a function of this signature to allow the
	// application to log. The raw messages are also sent to any websocket
	// client following the session.
	evts := events.New()
	ev := func(id string) database.EventHandler {
		return func(v string, args ...any) {
			s := fmt.Sprintf(v, args...)
			log.Infow(s, "session", id)
			evts.Send(id, s)
		}
	}

	registry := session.NewRegistry(session.Config{
		Genesis:   gen,
		EvHandler: ev,
	})

	if _, err := registry.Create(context.Background(), session.DefaultID); err != nil {
		return fmt.Errorf("unable to create default session: %w", err)
	}

	// The default session picks up the chain saved by the last run.
	file := storage.NewFile(cfg.Chain.DBPath)
	if file.Exists() {
		records, err := file.Load()
		if err != nil {
			return fmt.Errorf("unable to load chain: %w", err)
		}

		s, err := registry.Import(session.DefaultID, records)
		if err != nil {
			return fmt.Errorf("unable to import chain: %w", err)
		}
		log.Infow("startup", "status", "chain loaded", "path", file.Path(), "blocks", s.DB.Length(), "valid", s.DB.Validate())
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	debugMux := handlers.DebugMux(build, log, registry)

	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start API Service

	log.Infow("startup", "status", "initializing V1 API support")

	apiMux := handlers.APIMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Registry: registry,
		Evts:     evts,
		Origin:   cfg.Web.CorsOrigin,
	})

	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      apiMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		log.Infow("shutdown", "status", "shutdown API started")
		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop api service gracefully: %w", err)
		}

		if s, err := registry.Get(session.DefaultID); err == nil {
			if err := file.Save(s.DB.Records()); err != nil {
				return fmt.Errorf("unable to save chain: %w", err)
			}
			log.Infow("shutdown", "status", "chain saved", "path", file.Path(), "blocks", s.DB.Length())
		}
	}

	return nil
}
