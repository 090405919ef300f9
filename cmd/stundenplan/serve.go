package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/0iy/schulportal-hessen-timetable-export/internal/export"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/log"
	"github.com/0iy/schulportal-hessen-timetable-export/internal/web"
)

var serveNoHolidays bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the feed over HTTP and refresh it on a schedule",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoHolidays, "no-holidays", false, "skip holiday lookup on refresh")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := web.NewServer(cfg, func(ctx context.Context) (*export.Result, error) {
		return buildResult(ctx, cfg, serveNoHolidays, time.Now())
	})

	// First export up front so the endpoints are ready immediately; a
	// failure is logged and retried on the next scheduled refresh.
	if err := server.Refresh(ctx); err != nil {
		log.Warn("initial export failed, serving will start degraded", "err", err.Error())
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RefreshCron, func() {
		_ = server.Refresh(context.Background())
	}); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "listen", cfg.Listen, "refresh", cfg.RefreshCron)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
