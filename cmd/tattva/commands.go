package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tattva/tattva/internal/insight"
	"github.com/tattva/tattva/internal/observation"
	"github.com/tattva/tattva/internal/pkg/security"
	"github.com/tattva/tattva/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Serve the correlation finder and the context aggregator over HTTP:
  GET /api/hypotheses[?refresh=true]
  GET /api/context?lat=&lon=&radius_km=&limit=
  GET /api/species
  GET /healthz
  GET /metrics`,
		RunE: runServe,
	}

	cmd.Flags().IntP("port", "p", 0, "HTTP server port (overrides config)")
	cmd.Flags().String("host", "", "HTTP server host (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Host, _ = cmd.Flags().GetString("host")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Host
	srvCfg.Port = cfg.Port
	srvCfg.Version = version
	srvCfg.RateLimit = cfg.Security.RateLimit

	srv := server.New(srvCfg, server.Deps{
		Finder:  a.finder,
		Context: a.aggregator,
		Catalog: a.store,
		Metrics: a.metrics,
		Logger:  log,
	})

	log.Info("Starting tattva", "version", version, "addr", srv.Addr(),
		"cache", cfg.Cache.Type, "bus", cfg.Bus.Type,
		"driver", cfg.Database.Driver, "dsn", security.RedactURL(cfg.Database.DSN))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func findCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Print the strongest correlation finding",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			refresh, _ := cmd.Flags().GetBool("refresh")
			find := a.finder.FindBest
			if refresh {
				find = a.finder.Refresh
			}
			f, err := find(cmd.Context())
			if err != nil {
				return err
			}

			resp := server.HypothesisResponse{SourceFinding: insight.XFactor{Finding: f}}
			if !f.IsEmpty() {
				if name, ok, err := a.store.GroupName(cmd.Context(), *f.GroupID); err == nil && ok {
					resp.SourceFinding.SpeciesName = &name
				}
			}
			return printJSON(cmd, resp)
		},
	}

	cmd.Flags().Bool("refresh", false, "recompute instead of reading the cache")
	return cmd
}

func contextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Print a context snapshot, optionally for a region",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			limit, _ := cmd.Flags().GetInt("limit")
			req := insight.Request{TopN: limit}
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				lat, _ := cmd.Flags().GetFloat64("lat")
				lon, _ := cmd.Flags().GetFloat64("lon")
				radius, _ := cmd.Flags().GetFloat64("radius-km")
				req.Region = &observation.Region{Latitude: lat, Longitude: lon, RadiusKm: radius}
			}
			if err := req.Validate(); err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			return printJSON(cmd, a.aggregator.BuildContext(cmd.Context(), req))
		},
	}

	cmd.Flags().Float64("lat", 0, "region centre latitude")
	cmd.Flags().Float64("lon", 0, "region centre longitude")
	cmd.Flags().Float64("radius-km", 0, "region radius in km (default from config)")
	cmd.Flags().Int("limit", 0, "number of top species (default from config)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the observation store schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.Database.AutoMigrate = true

			store, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			log.Info("Schema is up to date", "covariates", store.Covariates())
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load synthetic sightings for demos",
		Long: `Insert synthetic species and sightings. One species is given a shifted
value on the first covariate so that a finding exists.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.Database.AutoMigrate = true

			store, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			opts := seedOptions{}
			opts.Species, _ = cmd.Flags().GetInt("species")
			opts.Sightings, _ = cmd.Flags().GetInt("sightings")
			opts.Seed, _ = cmd.Flags().GetUint64("seed")

			start := time.Now()
			res, err := seedObservations(cmd.Context(), store, opts)
			if err != nil {
				return err
			}
			log.Info("Seeded observation store",
				"species", len(res.SpeciesIDs),
				"sightings", res.Sightings,
				"signal_species", res.SignalSpecies,
				"duration", time.Since(start),
			)
			return nil
		},
	}

	cmd.Flags().Int("species", 8, "number of species")
	cmd.Flags().Int("sightings", 400, "number of sightings")
	cmd.Flags().Uint64("seed", 1, "random seed")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
