package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Techsolutions2024/RFID/internal/config"
	dbpkg "github.com/Techsolutions2024/RFID/internal/db"
	"github.com/Techsolutions2024/RFID/internal/httpapi"
	"github.com/Techsolutions2024/RFID/internal/rtc"
	"github.com/Techsolutions2024/RFID/internal/serialio"
	"github.com/Techsolutions2024/RFID/internal/signaling"
	"github.com/Techsolutions2024/RFID/internal/station/service"
	"github.com/Techsolutions2024/RFID/internal/station/store/sqlite"
	"github.com/Techsolutions2024/RFID/internal/station/types"
	"github.com/Techsolutions2024/RFID/internal/video"

	_ "modernc.org/sqlite"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "rfid-station ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence
	sqlDB, err := dbpkg.Open(ctx, dbpkg.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer sqlDB.Close()

	if cfg.Env == "dev" {
		if err := dbpkg.SeedDev(ctx, sqlDB); err != nil {
			logger.Printf("dev seed: %v", err)
		}
	}

	writer := dbpkg.NewWorker(sqlDB)
	defer writer.Close()

	cardStore := sqlite.NewCardStore(sqlDB, writer)
	logStore := sqlite.NewAccessLogStore(sqlDB, writer)

	// Fan-out hub (observers + signaling)
	hub := signaling.NewHub(logger)

	// Card registry with its in-memory authorization mirror
	registry := service.NewCardRegistry(cardStore, hub, logger)
	if err := registry.Load(ctx); err != nil {
		logger.Fatalf("load card registry: %v", err)
	}

	// Serial channel + decision pipeline.  The channel delivers lines to
	// the access service, which writes decisions back through the channel.
	var access *service.AccessService
	channel := serialio.NewChannel(
		serialio.Open,
		func(ctx context.Context, line string) { access.HandleLine(ctx, line) },
		hub,
		logger,
		serialio.Config{PollInterval: cfg.SerialPollInterval},
	)
	access = service.NewAccessService(registry, logStore, channel, hub, logger, cfg.RecentLogLimit)
	station := service.NewStation(channel, access, cfg.SerialAddress, cfg.SerialBaudRate)

	// Video sessions
	frameRate := cfg.SourceFrameRate
	if frameRate <= 0 {
		frameRate = 30
	}
	sources := func(url string, direction types.Direction) rtc.Source {
		return video.NewSource(url, direction, video.OpenCapture, video.Config{
			MaxRetries:    cfg.SourceMaxRetries,
			FrameInterval: time.Second / time.Duration(frameRate),
			OpenBackoff:   cfg.SourceOpenBackoff,
			ReadBackoff:   cfg.SourceReadBackoff,
		}, logger)
	}
	peers := rtc.NewPionFactory(rtc.PionConfig{
		ICEServers: cfg.ICEServers,
		FrameRate:  frameRate,
		BitRate:    cfg.VideoBitRate,
	}, logger)
	sessions := rtc.NewManager(sources, peers, hub, logger, cfg.ReadyTimeout)
	hub.AttachSessions(sessions)

	// Access log retention (disabled unless configured)
	pruner := service.NewLogPruner(logStore, service.PrunerConfig{
		RetentionDays: cfg.LogRetentionDays,
		IntervalHours: cfg.PruneIntervalHrs,
	}, logger)
	pruner.Start(ctx)

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:   logger,
		Addr:     cfg.HTTPAddr,
		Station:  station,
		Access:   access,
		Registry: registry,
		Hub:      hub,
	})

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	sessions.Close()
	station.Disconnect()
	pruner.Stop()
}
