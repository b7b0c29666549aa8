// File path: cmd/recollect/dashboard.go

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/recollect-dev/recollect/internal/adapters"
	"github.com/recollect-dev/recollect/internal/api"
	"github.com/recollect-dev/recollect/internal/common"
)

func newDashboardCmd() *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the read-only dashboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, _, err := loadRuntime()
			if err != nil {
				return err
			}
			defer store.Close()

			if host == "" {
				host = cfg.ServerHost
			}
			if port == 0 {
				port = cfg.ServerPort
			}
			registry := adapters.NewRegistry(cfg.PlatformsPath)
			server := &http.Server{
				Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
				Handler:           api.NewServer(cfg, store, registry),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			errCh := make(chan error, 1)
			go func() {
				common.Logger().Info("dashboard listening", "addr", server.Addr)
				errCh <- server.ListenAndServe()
			}()
			fmt.Printf("dashboard at http://%s\n", server.Addr)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "bind host (default: configured host)")
	cmd.Flags().IntVar(&port, "port", 0, "bind port (default: configured port)")
	return cmd
}
