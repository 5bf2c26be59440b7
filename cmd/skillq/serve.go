package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nadhanasaripv257/skillq-app/internal/common/observability"
	rankingsession "github.com/nadhanasaripv257/skillq-app/internal/matching/ranking-session"
	"github.com/nadhanasaripv257/skillq-app/internal/outreach"
	"github.com/nadhanasaripv257/skillq-app/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the session API server",
	Long:  "Serves ranking sessions over HTTP, with Prometheus metrics and an idle-session janitor.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	log.Info("Starting skillq server", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
		"backend":     cfg.RecordStore.Backend,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := observability.New(cfg.App.Name, cfg.Tracing, log)
	defer obs.Shutdown()

	store, conns, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer conns.close()

	interpreter, err := buildInterpreter(ctx, cfg, store, log)
	if err != nil {
		return err
	}
	ranker, err := buildRanker(cfg, log)
	if err != nil {
		return err
	}

	sessionCfg := rankingsession.ConfigFrom(cfg)
	deps := rankingsession.Dependencies{
		Store:         store,
		Interpreter:   interpreter,
		Ranker:        ranker,
		Observability: obs,
	}
	var gen *outreach.Client
	if conns.redis != nil {
		deps.Snapshots = rankingsession.NewRedisSnapshotStore(conns.redis.Client, sessionCfg.SnapshotTTL, sessionCfg.MaxHistory)
		gen = outreach.NewClient(outreach.ConfigFrom(cfg.Outreach), conns.redis.Client, log)
	} else {
		gen = outreach.NewClient(outreach.ConfigFrom(cfg.Outreach), nil, log)
	}

	manager, err := rankingsession.NewManager(sessionCfg, deps, log)
	if err != nil {
		return err
	}
	go manager.Run(ctx)

	srv := server.New(server.ConfigFrom(cfg.Server), manager, gen, log)
	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}

	log.Info("skillq server stopped gracefully", nil)
	return nil
}
