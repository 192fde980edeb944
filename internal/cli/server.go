package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/config"
	transport "quiz-attempt-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP server and the auto-submit sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	auth := newAuthenticator(cfg)
	router := transport.NewRouter(d.service, auth, transport.RouterOptions{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("starting quiz attempt service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if !cfg.Sweeper.Disabled {
		interval := config.TTLDuration(cfg.Sweeper.Interval, time.Minute)
		sweeper := app.NewSweeper(d.service, interval)
		g.Go(func() error {
			log.Printf("sweeper running every %s", interval)
			return sweeper.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newAuthenticator(cfg config.Config) *transport.Authenticator {
	var opts []transport.AuthOption
	if cfg.Auth.TrustUserHeader {
		opts = append(opts, transport.WithTrustedUserHeader())
	}
	if cfg.Auth.JWTSecret == "" {
		log.Printf("auth: jwt secret not set, identity taken from X-User-ID")
	}
	return transport.NewAuthenticator(cfg.Auth.JWTSecret, opts...)
}
