package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/longscribe/backend/internal/api"
	"github.com/longscribe/backend/internal/auth"
	"github.com/longscribe/backend/internal/chunk"
	"github.com/longscribe/backend/internal/config"
	"github.com/longscribe/backend/internal/db"
	"github.com/longscribe/backend/internal/engine"
	"github.com/longscribe/backend/internal/job"
	"github.com/longscribe/backend/internal/logging"
	"github.com/longscribe/backend/internal/pipeline"
)

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server and job worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	if err := logging.Configure(cfg); err != nil {
		return err
	}

	if cfg.Sentry.DSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
		})
		if err != nil {
			logrus.Warnf("sentry init failed: %v", err)
		} else {
			logrus.Info("sentry initialized")
			defer sentry.Flush(2 * time.Second)
		}
	}

	os.MkdirAll(cfg.Server.DataPath, 0o755)

	database, err := db.NewSQLite(cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer database.Close()

	if err := database.EnsureAdmin(cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	// Admin-saved settings beat the config file for the engine connection.
	engineURL := database.GetSetting("engine_url", cfg.Engine.URL)
	handle := engine.SharedHandle(engineURL)
	if token := database.GetSetting("hf_token", ""); token != "" {
		handle.Client().SetHFToken(token)
	}
	pipe := pipeline.New(pipeline.Config{
		Chunk: chunk.Params{
			Target:     cfg.Chunking.TargetSec,
			Overlap:    cfg.Chunking.OverlapSec,
			SnapRadius: cfg.Chunking.SnapRadiusSec,
		},
		Align:              cfg.Pipeline.Align,
		VADAggressiveness:  cfg.VAD.Aggressiveness,
		VADMinSpeech:       cfg.VAD.MinSpeechSec,
		VADMinSilence:      cfg.VAD.MinSilenceSec,
		SilenceMinDuration: cfg.Silence.MinDurationSec,
		SilenceNoiseDB:     cfg.Silence.NoiseDB,
	}, handle)

	queue := job.NewJobQueue(database.DB())
	defer queue.Stop()
	queue.RegisterHandler(job.JobTranscribe, pipeline.NewJobHandler(pipe, queue))

	router := api.NewRouter(database, jwtService, cfg, queue)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logrus.Infof("starting server on %s (engine %s)", addr, engineURL)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logrus.Info("shutting down")
		queue.Stop()
		sentry.Flush(2 * time.Second)
		os.Exit(0)
	}()

	return http.ListenAndServe(addr, router)
}
