package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"

	"github.com/commentstream/backend/attachment"
	"github.com/commentstream/backend/cache"
	"github.com/commentstream/backend/config"
	"github.com/commentstream/backend/models"
	"github.com/commentstream/backend/routes"
	"github.com/commentstream/backend/store"
	"github.com/commentstream/backend/utils"
	"github.com/commentstream/backend/ws"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.Comment{})

	rdb := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword, cfg.RedisDB)
	pages := cache.NewPages(rdb, "cache:comments:", time.Duration(cfg.CacheTTLSeconds)*time.Second, utils.Sugar)

	blobs, err := attachment.NewDiskStore(cfg.AttachmentDir, cfg.AttachmentBaseURL)
	if err != nil {
		utils.Sugar.Fatalf("attachment store init failed: %v", err)
	}
	pool := attachment.NewPool(cfg.AttachmentWorkers)

	hub := ws.NewHub(utils.Sugar)
	comments := store.NewComments(db, blobs, pages, hub, utils.Sugar)

	r := routes.SetupRouter(routes.Deps{
		Store: comments,
		Pages: pages,
		Pool:  pool,
		Hub:   hub,
	})

	utils.Sugar.Infof("starting server on port %s", cfg.AppPort)
	err = utils.GraceServer(":"+cfg.AppPort, r, func(ctx context.Context) {
		hub.Shutdown(ctx)
		pool.Close()
		_ = rdb.Close()
	})
	if err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
