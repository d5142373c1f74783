package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"shopfunnel/internal/config"
	"shopfunnel/internal/etl"
	"shopfunnel/internal/stage"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.SourceURL == "" {
		log.Fatalf("APP_SOURCE_URL is required")
	}

	st, err := stage.NewClient(context.Background(), stage.Config{
		Region:    cfg.BucketRegion,
		Endpoint:  cfg.BucketEndpoint,
		AccessKey: cfg.BucketAccessKey,
		SecretKey: cfg.BucketSecretKey,
		Bucket:    cfg.StagingBucket,
	})
	if err != nil {
		log.Fatalf("failed to create staging client: %v", err)
	}

	if err := etl.NewPipeline(cfg, st).Run(context.Background()); err != nil {
		log.Fatalf("etl failed: %v", err)
	}
	log.Printf("etl complete")
}
