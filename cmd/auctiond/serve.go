package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cloudx-io/chainauction/auction"
	"github.com/cloudx-io/chainauction/logging"
	"github.com/cloudx-io/chainauction/server"
	"github.com/cloudx-io/chainauction/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the auction HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", ":8080", "address to listen on")
	serveCmd.Flags().String("data-dir", "auctiond-data", "pebble record store directory")
	serveCmd.Flags().Int("cache-size", 4096, "record read-cache size")
	serveCmd.Flags().Bool("ephemeral", false, "use an in-memory record store (testing only)")
	for _, flag := range []string{"listen", "data-dir", "cache-size", "ephemeral"} {
		if err := viper.BindPFlag(flag, serveCmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind %s flag: %v", flag, err))
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := logging.New(debug)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	var backend store.RecordStore
	if viper.GetBool("ephemeral") {
		backend = store.NewMemoryStore()
		log.Warn("using ephemeral in-memory record store")
	} else {
		backend, err = store.OpenPebble(viper.GetString("data-dir"))
		if err != nil {
			return err
		}
	}
	rs, err := store.NewCachedStore(backend, viper.GetInt("cache-size"))
	if err != nil {
		return err
	}
	defer rs.Close()

	svc := auction.NewService(rs, auction.NewSystemClock(), log)
	srv := &http.Server{
		Addr:              viper.GetString("listen"),
		Handler:           server.New(svc, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("auction server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
