package main

import (
	"context"
	"log"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"shopfunnel/internal/config"
	"shopfunnel/internal/db"
	"shopfunnel/internal/http/handlers"
	appmw "shopfunnel/internal/http/middleware"
	"shopfunnel/internal/stage"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	sqlDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if err := db.EnsureBootstrapAPIKey(sqlDB, cfg); err != nil {
		log.Printf("warning: failed to ensure bootstrap API key: %v", err)
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

	handlers.InitPrometheusMetrics()

	loaded, err := db.LoadStage(context.Background(), sqlDB, st, cfg)
	if err != nil {
		log.Fatalf("failed to load staged events: %v", err)
	}
	if loaded > 0 {
		log.Printf("copied %d sessionized events from stage into the events relation", loaded)
	}
	handlers.ObserveStageLoad(loaded)

	r := router.New()

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	r.GET("/", handlers.Index())
	r.GET("/ping", handlers.Ping())
	r.GET("/metrics", handlers.PrometheusMetrics())
	r.GET("/metrics/orders", handlers.OrderMetrics(sqlDB))

	r.POST("/data/re-sessionize", appmw.BearerAuth(sqlDB)(handlers.ReSessionize(sqlDB, cfg)))

	handler := handlers.RequestLogger(r.Handler)

	log.Printf("shopfunnel listening on %s", cfg.ListenAddr)
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
