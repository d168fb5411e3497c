package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"petmatch/internal/adapter/backend"
	adapthttp "petmatch/internal/adapter/http"
	"petmatch/internal/app"
	"petmatch/internal/config"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web client",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

func serve(ctx context.Context, c config.Config, log *zap.Logger) error {
	sessions, closer, err := newSessionStore(ctx, c, log)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	// Restore before accepting requests so no view sees the loading state
	// longer than the storage read.
	sessions.Rehydrate(ctx)

	api := backend.NewClient(c.BackendURL, c.Timeout, log.Named("backend"))
	auth := app.NewAuthService(api, sessions, log.Named("auth"))

	srv := adapthttp.New(sessions, auth, api, c.WebDir, log.Named("http")).
		WithLoginLimiter(rate.NewLimiter(rate.Limit(c.LoginRate/60), c.LoginBurst))

	if c.OIDC.Enabled() {
		oc, err := newOIDC(ctx, c.OIDC)
		if err != nil {
			return err
		}
		srv.WithOIDC(oc)
	}

	hs := &http.Server{
		Addr:              c.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", c.Addr), zap.String("storage", c.Storage.Driver))
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("shutting down")
	return hs.Shutdown(shutdownCtx)
}

func newOIDC(ctx context.Context, oc config.OIDCConfig) (*adapthttp.OIDCConfig, error) {
	provider, err := oidc.NewProvider(ctx, oc.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc provider %s: %w", oc.Issuer, err)
	}
	return &adapthttp.OIDCConfig{
		Enabled: true,
		OAuth2Config: oauth2.Config{
			ClientID:     oc.ClientID,
			ClientSecret: oc.ClientSecret,
			RedirectURL:  oc.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		Verifier:    provider.Verifier(&oidc.Config{ClientID: oc.ClientID}),
		RoleClaim:   oc.RoleClaim,
		UserIDClaim: oc.UserIDClaim,
	}, nil
}
