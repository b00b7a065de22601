package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dispatchcore/internal/admin"
	"dispatchcore/internal/config"
	"dispatchcore/internal/db"
	"dispatchcore/internal/emergency"
	"dispatchcore/internal/httpserver"
	"dispatchcore/internal/logging"
	"dispatchcore/internal/report"
	"dispatchcore/internal/settings"
	"dispatchcore/internal/status"
	"dispatchcore/internal/telephony"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := logging.New()

	cfg := config.Load()

	dbConn, err := db.Open(ctx, cfg.AdminDBPath)
	if err != nil {
		log.Fatalf("open admin db: %v", err)
	}
	defer dbConn.Close()

	if err := db.ApplySchema(ctx, dbConn); err != nil {
		log.Fatalf("apply schema: %v", err)
	}

	adminStore := admin.NewStore(dbConn)
	if err := adminStore.EnsureBranch(ctx, cfg.Branch); err != nil {
		log.Fatalf("register branch: %v", err)
	}
	for branch := range cfg.Branches {
		if err := adminStore.EnsureBranch(ctx, branch); err != nil {
			log.Fatalf("register branch: %v", err)
		}
	}
	if cfg.UsersPath != "" {
		if err := adminStore.SeedFromFile(ctx, cfg.UsersPath); err != nil {
			logger.Warn("user seeding skipped", "err", err)
		}
	}
	authSvc := admin.NewService(adminStore, cfg.JWTSecret)

	resolver, err := settings.NewResolver(cfg.SettingsURL, cfg.SettingsPath, cfg.ContactsPath, logger)
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}
	go resolver.Run(ctx)

	tel, err := telephony.NewRESTClient(cfg.AccountSID, cfg.AuthToken, logger)
	if err != nil {
		log.Fatalf("telephony client: %v", err)
	}

	store := emergency.NewActiveStore()
	orch := emergency.NewOrchestrator(store, tel, resolver,
		&report.LogSender{Logger: logger}, logger, emergency.Options{
			PublicURL:        cfg.PublicURL,
			SMSFrom:          cfg.SMSNumber,
			Broadcast:        cfg.BroadcastPhones,
			TransferMode:     cfg.TransferMode,
			TransferTarget:   cfg.TransferTarget,
			TransferCallerID: cfg.CallerIDNumber,
			RingTimeout:      cfg.RingTimeout,
			HoldMusicURL:     cfg.HoldMusicURL,
			MapLinks:         cfg.MapLinks,
		})

	timeline := status.NewTimeline()
	handler := httpserver.NewRouter(httpserver.RouterDeps{
		Logger:      logger,
		Orch:        orch,
		Telephony:   tel,
		Timeline:    timeline,
		AdminStore:  adminStore,
		AuthService: authSvc,
		Branch:      cfg.Branch,
		Branches:    cfg.Branches,
		SMSFrom:     cfg.SMSNumber,
		NotifyPhone: cfg.NotifyPhone,
	})
	server := httpserver.New(cfg.HTTPAddr, handler, logger)

	logger.Info("call router starting",
		"branch", cfg.Branch, "public_url", cfg.PublicURL)
	if cfg.NotifyPhone != "" {
		if err := tel.SendSMS(ctx, cfg.SMSNumber, cfg.NotifyPhone,
			"Server Startup Notification: "+cfg.Branch+" branch online"); err != nil {
			logger.Error("startup SMS failed", "err", err)
		}
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
