package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vuen/kiosk/internal/backend"
	"github.com/vuen/kiosk/internal/bridge"
	"github.com/vuen/kiosk/internal/bridge/tools"
	"github.com/vuen/kiosk/internal/catalog"
	"github.com/vuen/kiosk/internal/checkout"
	"github.com/vuen/kiosk/internal/control"
	"github.com/vuen/kiosk/internal/dispatch"
	"github.com/vuen/kiosk/internal/identity"
	"github.com/vuen/kiosk/internal/lifecycle"
	"github.com/vuen/kiosk/internal/mirror"
	"github.com/vuen/kiosk/internal/push"
	"github.com/vuen/kiosk/internal/realtime"
	"github.com/vuen/kiosk/internal/resync"
	"github.com/vuen/kiosk/internal/surface"
	"github.com/vuen/kiosk/internal/types"
)

var serveVoice bool

func init() {
	serveCmd.Flags().BoolVar(&serveVoice, "voice", true, "connect the realtime voice channel")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the kiosk daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "kiosk.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	clientID, err := identity.LoadOrCreate(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("load client identity: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	be := backend.New(cfg.Backend.BaseURL, clientID)
	tracker := surface.New()

	cat := catalog.New(be, cfg.DataDir)
	if err := cat.Restore(); err != nil {
		slog.Debug("no cached menu", "error", err)
	}

	mir := mirror.New(cat, tracker, cfg.DataDir)
	if err := mir.Restore(); err != nil {
		slog.Debug("no cached cart", "error", err)
	}

	// The push client needs the machine and the machine needs push
	// liveness; break the cycle with a late-bound closure.
	var pushClient *push.Client
	connected := func() bool { return pushClient != nil && pushClient.Connected() }

	machine := lifecycle.New(clientID, be, mir, tracker, connected)

	form := checkout.NewController(func(ctx context.Context, to types.OrderStatus, prefill *types.Prefill) error {
		_, err := machine.RequestTransition(ctx, to, prefill)
		return err
	}, tracker)
	machine.SetFormSeeder(form)

	disp := dispatch.New(be, int64(cfg.MaxInFlight))
	disp.Start(ctx)
	defer disp.Stop()
	machine.SetFinalizer(disp)

	pushClient, err = push.New(cfg.Backend.BaseURL, cfg.Push.Path, clientID, mir, machine, tracker)
	if err != nil {
		return fmt.Errorf("create push client: %w", err)
	}
	go pushClient.Run(ctx)

	if err := cat.Refresh(ctx); err != nil {
		slog.Warn("menu refresh failed, using cached menu", "error", err)
	}
	if err := machine.SyncFromBackend(ctx); err != nil {
		slog.Warn("initial backend sync failed", "error", err)
	}

	resyncer := resync.New(machine, connected, cfg.Resync.Schedule)
	if err := resyncer.Start(ctx); err != nil {
		return fmt.Errorf("start resync: %w", err)
	}
	defer resyncer.Stop()

	srv := control.NewServer(clientID, tracker, machine, form, disp, connected)
	httpServer := &http.Server{Addr: cfg.Control.Addr, Handler: srv}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("control server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	if serveVoice {
		registry := bridge.NewRegistry()
		tools.RegisterAll(registry, be, mir, machine, disp, clientID)
		br := bridge.New(registry)
		channel := realtime.New(cfg.Realtime.BaseURL, cfg.Realtime.Model, cfg.Realtime.Voice, be, br)
		br.SetSender(channel)
		if err := channel.Connect(ctx); err != nil {
			slog.Warn("voice channel unavailable, continuing without it", "error", err)
		} else {
			defer channel.Close()
		}
	}

	slog.Info("kiosk started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"backend", cfg.Backend.BaseURL,
		"control_addr", cfg.Control.Addr,
		"client_id", clientID,
		"voice", serveVoice,
		"pid_file", pidPath,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down")
	return nil
}
