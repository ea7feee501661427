// Command healthgrid runs the city healthcare network simulation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/health-grid/internal/activity"
	"github.com/talgya/health-grid/internal/agents"
	"github.com/talgya/health-grid/internal/api"
	"github.com/talgya/health-grid/internal/bus"
	"github.com/talgya/health-grid/internal/config"
	"github.com/talgya/health-grid/internal/metrics"
	"github.com/talgya/health-grid/internal/scenario"
	"github.com/talgya/health-grid/internal/seed"
	"github.com/talgya/health-grid/internal/store"
)

var (
	configPath string
	verbose    bool
)

func main() {
	root := &cobra.Command{
		Use:   "healthgrid",
		Short: "City healthcare network multi-agent simulation",
		Long: "healthgrid simulates a city's healthcare network: labs, hospitals,\n" +
			"pharmacies, suppliers and the city health department run as autonomous\n" +
			"agents that react to each other over an event bus.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(runCmd(), seedCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the simulation and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// Seed on first run so the network is never empty.
			existing, err := db.All(ctx)
			if err != nil {
				return fmt.Errorf("inspect store: %w", err)
			}
			if len(existing) == 0 {
				slog.Info("empty store, seeding demonstration city")
				if _, err := seed.City(ctx, db, cfg); err != nil {
					return err
				}
			} else {
				slog.Info("resuming existing network", "entities", len(existing))
			}

			act := activity.New(db)
			rec := metrics.New(db)
			deps := agents.Deps{
				Store:    db,
				Bus:      bus.New(),
				Activity: act,
				Metrics:  rec,
			}

			sim := scenario.New(db, act, cfg.Scenario, cfg.Seed)
			go sim.Run(ctx, cfg.Ticks.Simulator)

			started, err := agents.StartAll(ctx, cfg, deps)
			if err != nil {
				return err
			}
			if started == 0 {
				return fmt.Errorf("no agents started; nothing to simulate")
			}

			adminKey := cfg.AdminKey
			if env := os.Getenv("HEALTHGRID_ADMIN_KEY"); env != "" {
				adminKey = env
			}
			if adminKey == "" {
				slog.Warn("no admin key configured, scenario POST endpoints disabled")
			}
			srv := &api.Server{
				Store:      db,
				Activities: db,
				Metrics:    db,
				Sim:        sim,
				Port:       cfg.APIPort,
				AdminKey:   adminKey,
			}
			srv.Start()

			fmt.Printf("healthgrid running: %d agents across %d zones\n", started, len(cfg.Zones))
			fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.APIPort)
			fmt.Println("Ctrl+C to stop")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate the store with the demonstration city and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			created, err := seed.City(context.Background(), db, cfg)
			if err != nil {
				return err
			}
			fmt.Printf("seeded %d entities into %s\n", created, cfg.DBPath)
			return nil
		},
	}
}

func openStore(cfg config.Config) (*store.DB, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	slog.Info("database opened", "path", cfg.DBPath)
	return db, nil
}
