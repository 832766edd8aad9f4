package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/craftedbits/emojigen/internal/config"
	"github.com/craftedbits/emojigen/internal/database"
	"github.com/craftedbits/emojigen/internal/httpapi"
	"github.com/craftedbits/emojigen/internal/replicate"
	"github.com/craftedbits/emojigen/internal/repository"
	"github.com/craftedbits/emojigen/internal/service"
	"github.com/craftedbits/emojigen/internal/storage"
	"github.com/craftedbits/emojigen/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	replicateClient := replicate.NewClient(cfg, logr)

	emojiRepo := repository.NewEmojiRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	creditRepo := repository.NewCreditRepository(db)

	var mirror service.ImageMirror
	if cfg.MirrorImages {
		uploader, err := storage.NewUploader(storage.Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
			Prefix:        cfg.S3Prefix,
		})
		if err != nil {
			log.Fatalf("storage uploader: %v", err)
		}
		mirror = uploader
	}

	creditService := service.NewCreditService(cfg.InitialCredits, creditRepo)
	emojiService := service.NewEmojiService(emojiRepo)
	likeService := service.NewLikeService(emojiRepo, likeRepo)
	generationService := service.NewGenerationService(logr, creditService, emojiService, replicateClient, mirror)

	server := httpapi.NewServer(cfg.ListenAddr, cfg.SessionSecret, logr, generationService, creditService, emojiService, likeService)

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("server stopped", "err", err)
	}
}
