package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/provider-directory/internal/api"
	"github.com/sells-group/provider-directory/internal/directory"
	"github.com/sells-group/provider-directory/internal/duplicate"
	"github.com/sells-group/provider-directory/internal/geocoding"
	"github.com/sells-group/provider-directory/internal/moderator"
	"github.com/sells-group/provider-directory/internal/store"
	"github.com/sells-group/provider-directory/pkg/geocode"
)

const shutdownTimeout = 10 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the directory HTTP API and the geocoding worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "serve: migrate")
		}

		svc, queue, err := newService(ctx, st)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: api.NewRouter(svc, api.Options{
				JWTSecret:   cfg.Auth.JWTSecret,
				CORSOrigins: cfg.Server.CORSOrigins,
				Health:      st,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return queue.Run(gctx)
		})
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

// newGeocoder builds the address geocoder from config.
func newGeocoder() geocode.Client {
	return geocode.NewClient(
		geocode.WithBaseURL(cfg.Geocode.APIURL),
		geocode.WithUserAgent(cfg.Geocode.UserAgent),
		geocode.WithInterval(time.Duration(cfg.Geocode.IntervalMS)*time.Millisecond),
	)
}

// newService wires the directory service and its geocoding queue.
func newService(ctx context.Context, st store.Store) (*directory.Service, *geocoding.Queue, error) {
	names, err := moderator.Load(ctx, st)
	if err != nil {
		return nil, nil, err
	}

	queue := geocoding.NewQueue(newGeocoder(), st, cfg.Geocode.QueueSize)
	svc := directory.New(st, names, queue, directory.Options{
		PageSize:      cfg.Query.ItemsPerPage,
		GeoCandidates: cfg.Query.GeoCandidates,
		Duplicate: duplicate.Config{
			Threshold:     cfg.Duplicate.Threshold,
			AddressWeight: cfg.Duplicate.AddressWeight,
		},
		PhoneRegion: cfg.Phone.DefaultRegion,
	})
	return svc, queue, nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
