package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"p9e.in/requisition/config"
	"p9e.in/requisition/handlers"
	"p9e.in/requisition/middleware"
	"p9e.in/requisition/pkg/ingest"
	"p9e.in/requisition/pkg/masterdata"
	"p9e.in/requisition/pkg/mirror"
	"p9e.in/requisition/pkg/requisition"
	"p9e.in/requisition/pkg/storage"
	"p9e.in/requisition/routes"
)

var (
	Version   = "dev"
	BuildTime = ""
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requisition",
		Short: "Raw material requisition service",
		Long: `Loads a master bill-of-materials table, keeps a list of requisition
lines with per-material totals, exports them as a workbook and optionally
mirrors the state to a remote endpoint.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	})
	cmd.AddCommand(inspectCmd())
	cmd.AddCommand(tokenCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Version:   %s\n", Version)
			fmt.Printf("BuildTime: %s\n", BuildTime)
		},
	})
	return cmd
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show how a master table's columns are resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := ingest.Rows(args[0], f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(rows) > 0 {
				fmt.Fprintf(out, "Columns: %s\n", ingest.MapColumns(rows[0]))
			}

			records, err := ingest.ParseRows(rows)
			if err != nil {
				return err
			}
			idx := masterdata.New(records)
			fmt.Fprintf(out, "Records: %d\n", idx.Len())
			fmt.Fprintf(out, "Categories: %d\n", len(idx.Categories()))
			for _, c := range idx.Categories() {
				fmt.Fprintf(out, "  %s (%d SKUs)\n", c, len(idx.SKUsForCategory(c)))
			}
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		device string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token signed with API_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if device == "" {
				device = cfg.DeviceTag
			}
			token, err := middleware.GenerateToken(cfg.APISecret, device, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&device, "device", "", "Device name stored in the token (default DEVICE_TAG)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	states, settings, err := openStorage(cfg)
	if err != nil {
		return err
	}

	m, closeMirror, err := openMirror(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeMirror()

	svc := requisition.NewService(states, settings, requisition.Options{PageSize: cfg.PageSize, Mirror: m})
	if err := svc.Load(ctx); err != nil {
		return err
	}
	sum := svc.Summary()
	log.Printf("📦 Loaded %d lines and %d master records (%s)", sum.Lines, sum.Records, sum.FileName)

	handler := routes.RegisterRoutes(
		handlers.NewRequisitionHandler(svc, cfg.UploadLimit()),
		routes.Options{APISecret: cfg.APISecret},
	)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Println("Server starting at port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStorage(cfg config.Settings) (storage.StateRepository, storage.SettingsRepository, error) {
	if cfg.UsesDatabase() {
		db, err := config.Connect(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewGormStateRepository(db), storage.NewGormSettingsRepository(db), nil
	}

	log.Printf("No DB_DSN set, keeping state in %s", cfg.StateFile)
	return storage.NewFileStateRepository(cfg.StateFile),
		storage.NewFileSettingsRepository(settingsPath(cfg.StateFile)), nil
}

func settingsPath(statePath string) string {
	return statePath + ".settings"
}

// openMirror picks the GCS backend when a bucket is configured, then the HTTP
// endpoint. With neither, sync stays disabled.
func openMirror(ctx context.Context, cfg config.Settings) (*mirror.Mirror, func(), error) {
	switch {
	case cfg.GCSBucket != "":
		b, err := mirror.NewGCSBackend(ctx, cfg.GCSBucket, cfg.GCSObject)
		if err != nil {
			return nil, func() {}, err
		}
		log.Printf("☁️ Remote mirror: %s", b.Describe())
		return mirror.New(b, cfg.DeviceTag), func() { b.Close() }, nil
	case cfg.MirrorURL != "":
		b := mirror.NewHTTPBackend(cfg.MirrorURL, cfg.MirrorWait)
		log.Printf("☁️ Remote mirror: %s", b.Describe())
		return mirror.New(b, cfg.DeviceTag), func() {}, nil
	}
	return nil, func() {}, nil
}
