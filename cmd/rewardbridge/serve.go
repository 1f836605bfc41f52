package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ligun0805/reward-bridge/internal/api"
	"github.com/ligun0805/reward-bridge/internal/ledger"
	"github.com/ligun0805/reward-bridge/internal/rewardtoken"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the balance and transfer HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := ledger.Open(a.st.DatabaseURL)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Migrate(ctx); err != nil {
				return err
			}

			// Reads only; an unset contract address is reported per request.
			cfg, err := a.st.Contract()
			if err != nil {
				return err
			}
			ec, err := a.dial(ctx)
			if err != nil {
				return err
			}
			defer ec.Close()
			if !cfg.Configured() {
				a.logger.Warn("REWARD_TOKEN_ADDRESS not set; chain reads will fail")
			}

			srv := api.New(api.Config{
				Ledger:            store,
				Chain:             rewardtoken.NewReader(cfg, ec),
				Logger:            a.logger,
				RequestsPerMinute: float64(a.st.HTTPRPM),
				Burst:             a.st.HTTPBurst,
				Health:            store.Ping,
			})
			httpSrv := &http.Server{
				Addr:              a.st.ListenAddr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("listening", "addr", a.st.ListenAddr, "contract", cfg.String())
				errCh <- httpSrv.ListenAndServe()
			}()
			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}
}
