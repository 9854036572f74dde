package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"example.com/timed_chess_server/internal/api"
	"example.com/timed_chess_server/internal/broadcast"
	"example.com/timed_chess_server/internal/config"
	"example.com/timed_chess_server/internal/rules"
	"example.com/timed_chess_server/internal/session"
	"example.com/timed_chess_server/internal/store"
	"example.com/timed_chess_server/internal/ws"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		port   int
		driver string
		dsn    string
	)

	root := &cobra.Command{
		Use:           "server",
		Short:         "Timed chess game server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().IntVar(&port, "port", 0, "listen port (overrides PORT)")
	root.PersistentFlags().StringVar(&driver, "store", "", "store driver: memory|sqlite|postgres|redis (overrides STORE_DRIVER)")
	root.PersistentFlags().StringVar(&dsn, "dsn", "", "store DSN (overrides STORE_DSN)")

	load := func() (config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return config.Config{}, err
		}
		if port != 0 {
			cfg.Port = port
		}
		if driver != "" {
			cfg.StoreDriver = driver
		}
		if dsn != "" {
			cfg.StoreDSN = dsn
		}
		return cfg, cfg.Validate()
	}

	root.AddCommand(newServeCmd(load), newInspectCmd(load))
	return root
}

func newServeCmd(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	st, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer st.Close()

	rooms := broadcast.NewDispatcher()
	reg := session.NewRegistry(session.Options{
		Rules:              rules.NewChess(),
		Store:              st,
		Rooms:              rooms,
		CommitTimeout:      cfg.CommitTimeout,
		RetryDelay:         cfg.CommitRetryDelay,
		DefaultTimeControl: cfg.DefaultTimeControl,
	})
	defer reg.Close()

	n, err := reg.Recover(ctx)
	if err != nil {
		log.Printf("recover: %v", err)
	}
	log.Printf("recovered %d active games", n)

	allow := cfg.Origins()
	hub := ws.NewHub(allow, reg, rooms, cfg.SubscriberBuffer)
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           api.NewRouter(reg, allow, hub.ServeWS),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server listening on :%d store=%s", cfg.Port, cfg.StoreDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newInspectCmd(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <gameId>",
		Short: "Print a persisted game record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := store.Open(ctx, cfg.StoreOptions())
			if err != nil {
				return err
			}
			defer st.Close()

			rec, err := st.LoadGame(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("game %s not found", args[0])
			}
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(rec)
		},
	}
}
