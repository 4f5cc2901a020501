package main

import (
	"context"
	"fmt"
	"os"

	"Attentus/clients/notegen"
	"Attentus/clients/push"
	"Attentus/clients/storage"
	"Attentus/clients/transcription"
	"Attentus/config"
	"Attentus/config/db"
	"Attentus/config/firebase"
	"Attentus/config/jwt"
	"Attentus/config/logger"
	"Attentus/config/redis"
	"Attentus/jobs"
	"Attentus/migrations"
	"Attentus/repository"
	"Attentus/routes"
	"Attentus/server"
	"Attentus/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	startServer = server.Start
	bootstrap   = newApp
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "attentus",
		Short:        "Attentus consultation backend",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), false)
		},
	}
	root.AddCommand(serveCmd(), migrateCmd())
	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			return serve(cmd.Context(), migrate)
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply data migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply data migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.Setup(cfg.LogLevel, cfg.IsDev())
			database, err := db.Connect(cmd.Context(), cfg.MongoURI, cfg.MongoDatabase)
			if err != nil {
				return err
			}
			defer db.Disconnect(context.Background())
			return migrations.Run(cmd.Context(), database, migrations.All())
		},
	}
}

// app holds the process-wide clients, each constructed once at startup.
type app struct {
	cfg      *config.Config
	database *mongo.Database
	repos    *repository.Repositories
	blobs    *storage.Client
	services *services.Services
	closers  []func(ctx context.Context)
}

/*
* Load config and logger
* Connect mongo and redis, init jwt, firebase and the speech and LLM clients
* Any failure here stops the process before it serves
 */
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.LogLevel, cfg.IsDev())

	a := &app{cfg: cfg}
	fail := func(err error) (*app, error) {
		a.close(context.Background())
		return nil, err
	}

	a.database, err = db.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return fail(err)
	}
	a.onClose(db.Disconnect)

	var cache redis.Cache = redis.Nop{}
	if cfg.RedisURL != "" {
		client, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fail(err)
		}
		a.onClose(func(context.Context) {
			if err := client.Close(); err != nil {
				log.Error().Err(err).Msg("Error while closing redis")
			}
		})
		cache = client
	} else {
		log.Warn().Msg("REDIS_URL not set, caching and login limiting disabled")
	}

	jwt.Init(cfg.JWTSecret, cfg.JWTTTL)

	fb, err := firebase.Init(ctx, cfg.FirebaseCredentials, cfg.StorageBucket)
	if err != nil {
		return fail(err)
	}
	a.blobs, err = storage.New(ctx, fb, cfg.StorageBucket)
	if err != nil {
		return fail(err)
	}
	notifier, err := push.New(ctx, fb)
	if err != nil {
		return fail(err)
	}

	speechOpts := transcription.DefaultOptions()
	speechOpts.Language = cfg.SpeechLanguage
	speechOpts.Timeout = cfg.TranscriptionTimeout
	speechOpts.MaxAttempts = cfg.TranscriptionMaxAttempts
	transcriber, err := transcription.New(ctx, cfg.SpeechCredentials, speechOpts)
	if err != nil {
		return fail(err)
	}
	a.onClose(func(context.Context) {
		if err := transcriber.Close(); err != nil {
			log.Error().Err(err).Msg("Error while closing speech client")
		}
	})

	notes := notegen.New(cfg.OpenAIKey, notegen.Options{
		Model:       cfg.OpenAIModel,
		MaxTokens:   cfg.NoteMaxTokens,
		Temperature: cfg.NoteTemperature,
	})

	if err := repository.EnsureIndexes(ctx, a.database); err != nil {
		return fail(fmt.Errorf("while ensuring indexes: %w", err))
	}
	a.repos = repository.New(a.database, cache)

	a.services = &services.Services{
		Doctors:         a.repos.Doctors,
		Patients:        a.repos.Patients,
		Appointments:    a.repos.Appointments,
		Chats:           a.repos.Chats,
		Blobs:           a.blobs,
		Transcriber:     transcriber,
		Notes:           notes,
		Notifier:        notifier,
		Cache:           cache,
		MaxAudioBytes:   cfg.MaxAudioBytes(),
		PipelineTimeout: cfg.PipelineTimeout,
	}
	return a, nil
}

func (a *app) onClose(fn func(ctx context.Context)) {
	a.closers = append(a.closers, fn)
}

// close releases clients in reverse order of construction.
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
	a.closers = nil
}

func (a *app) serverOptions(migrate bool) server.Options {
	options := server.GetDefaultOptions()
	options.WebServerPort = a.cfg.Port
	options.Development = a.cfg.IsDev()
	options.CORSOrigins = a.cfg.CORSOrigins

	options.JobsEnabled = a.cfg.JobsEnabled
	options.JobsHandler = func() {
		scheduler, err := jobs.StartDailyScheduler(&jobs.Sweeper{Store: a.blobs, Index: a.repos.Appointments})
		if err != nil {
			log.Error().Err(err).Msg("Error while starting scheduler")
			return
		}
		a.onClose(func(context.Context) { <-scheduler.Stop().Done() })
	}

	options.MigrationEnabled = migrate
	options.MigrationHandler = func() {
		if err := migrations.Run(context.Background(), a.database, migrations.All()); err != nil {
			log.Fatal().Err(err).Msg("Migration failed")
		}
	}

	options.WebServerPreHandler = func(r *gin.Engine) {
		routes.Routes(r, a.services)
	}
	options.ShutdownHandler = a.close
	return options
}

func serve(ctx context.Context, migrate bool) error {
	a, err := bootstrap(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Startup failed")
		return err
	}
	return startServer(a.serverOptions(migrate))
}
