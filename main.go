package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wavechat/global/config"
	"wavechat/logger"
	"wavechat/middleware"
	mwsecurity "wavechat/middleware/security"
	messagehandler "wavechat/module/message"
	msgsvc "wavechat/module/message/service"
	userhandler "wavechat/module/user"
	usersvc "wavechat/module/user/service"
	"wavechat/service/chat"
	"wavechat/service/mgo"
	"wavechat/service/storage"
	"wavechat/service/storage/redis"

	"github.com/gin-gonic/gin"
)

const startupTimeout = 30 * time.Second

func main() {
	cfg := config.Load()
	logger.Configure(cfg.LogLevel)
	defer logger.Sync()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ===== storage =====

	mgo.StartAsync(rootCtx, mgo.Config{
		URI:         cfg.MongoURI,
		Database:    cfg.MongoDB,
		MaxPoolSize: cfg.MaxPoolSize,
	})
	waitCtx, cancel := context.WithTimeout(rootCtx, startupTimeout)
	defer cancel()
	if err := mgo.WaitReady(waitCtx); err != nil {
		logger.Errorf("mongo unavailable: %v", err)
		os.Exit(1)
	}
	db := mgo.GetDB()

	if err := redis.InitRedis(redis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}); err != nil {
		logger.Warnf("redis unavailable, running without user cache: %v", err)
	}

	userStore := usersvc.NewStore(db, storage.NewUserCache(cfg.UserCacheTTL))
	messageStore := msgsvc.NewStore(db)

	idxCtx, idxCancel := context.WithTimeout(rootCtx, startupTimeout)
	defer idxCancel()
	if err := userStore.EnsureIndexes(idxCtx); err != nil {
		logger.Errorf("user indexes: %v", err)
		os.Exit(1)
	}
	if err := messageStore.EnsureIndexes(idxCtx); err != nil {
		logger.Errorf("message indexes: %v", err)
		os.Exit(1)
	}

	// ===== real-time core =====

	jwtOpts := cfg.JWTOptions()
	hub := chat.NewHub(userStore)
	pipeline := chat.NewPipeline(hub, messageStore, userStore)
	gate := chat.NewGate(jwtOpts, userStore)
	ws := chat.NewServer(hub, pipeline, gate, cfg.PingInterval, cfg.PongTimeout)

	// ===== http =====

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Origin(cfg.CORSOrigin))

	r.GET("/healthz", func(c *gin.Context) {
		stats, online := hub.Stats()
		c.JSON(http.StatusOK, gin.H{"status": "ok", "online": online, "rooms": len(stats)})
	})
	r.GET("/ws", ws.HandleWS)

	auth := mwsecurity.Middleware(jwtOpts, userStore)
	middleware.Mount(r, auth,
		userhandler.NewHandler(userStore, jwtOpts),
		messagehandler.NewHandler(messageStore, userStore),
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logger.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server: %v", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Infof("shutting down")

	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warnf("shutdown: %v", err)
	}
	hub.Close()
}
