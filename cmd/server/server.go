package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/thereayou/bolcha/internal/config"
	"github.com/thereayou/bolcha/internal/database"
	"github.com/thereayou/bolcha/internal/models"
	"github.com/thereayou/bolcha/internal/translation"
	"github.com/thereayou/bolcha/internal/websocket"
	"github.com/thereayou/bolcha/pkg/auth"
)

type Server struct {
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	JWTManager *auth.JWTManager
	Hub        *websocket.Hub
	Presence   *websocket.PresenceReporter
	Scheduler  *translation.Scheduler
	Registry   *prometheus.Registry

	conf config.Config
	log  *zap.Logger
}

func NewServer(conf config.Config, log *zap.Logger) *Server {
	dbConn := &database.Database{}
	if err := dbConn.Connect(conf.DatabaseURL); err != nil {
		log.Fatal("postgres connect failed", zap.Error(err))
	}

	redisOpts, err := redis.ParseURL(conf.RedisURL)
	if err != nil {
		log.Fatal("invalid REDIS_URL", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connect failed", zap.Error(err))
	}

	jwtMgr := auth.NewJWTManager(conf.JWTSecret, conf.TokenTTL)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := websocket.NewHub(websocket.HubConf{
		SendQueueSize: conf.SendQueueSize,
		Overflow:      websocket.ParseOverflowPolicy(conf.OverflowPolicy),
		Logger:        log,
		Metrics:       websocket.NewMetrics(reg),
	})
	presence := websocket.NewPresenceReporter(hub)

	var (
		translator translation.Translator = translation.Unavailable
		stats      func() []translation.EndpointStats
	)
	if len(conf.TranslatorURLs) > 0 {
		httpTr := translation.NewHTTPTranslator(conf.TranslatorURLs, translation.HTTPOptions{
			RatePerSec: conf.TranslationRate,
			Logger:     log,
		})
		translator, stats = httpTr, httpTr.Stats
	} else {
		log.Warn("TRANSLATOR_URLS not set, translations will return original text")
	}

	sched := translation.NewScheduler(translator, translation.Options{
		Workers:        conf.TranslationWorkers,
		Tiers:          translation.TierPolicy{HighCount: conf.TranslationHighTier, NormalCount: conf.TranslationNormalTier},
		TargetLanguage: conf.DefaultTargetLanguage,
		Store:          translation.NewRedisStore(rdb, conf.TranslationCacheKey, conf.TranslationCacheTTL),
		Metrics:        translation.NewMetrics(reg),
		Logger:         log,
	})

	s := &Server{
		DB:         dbConn,
		Redis:      rdb,
		JWTManager: jwtMgr,
		Hub:        hub,
		Presence:   presence,
		Scheduler:  sched,
		Registry:   reg,
		conf:       conf,
		log:        log,
	}

	s.Router = gin.Default()
	APIEndpoints(s.Router, s, stats)

	return s
}

// ensureDefaultRoom пустой базе нужна хотя бы одна комната
func (s *Server) ensureDefaultRoom() {
	rooms, err := s.DB.ListRooms()
	if err != nil {
		s.log.Warn("list rooms", zap.Error(err))
		return
	}
	if len(rooms) > 0 {
		return
	}
	room := &models.Room{Name: "general", CreatedBy: "system"}
	if err := s.DB.CreateRoom(room); err != nil {
		s.log.Warn("create default room", zap.Error(err))
		return
	}
	s.log.Info("default room created", zap.Int64("room", room.ID))
}

// Run работает до отмены ctx, затем закрывает соединения и сохраняет кэш переводов
func (s *Server) Run(ctx context.Context) {
	s.ensureDefaultRoom()

	go s.Hub.Run(ctx)
	if err := s.Scheduler.Start(ctx); err != nil {
		s.log.Warn("translation scheduler started without cache", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    ":" + s.conf.Port,
		Handler: s.Router,
	}

	go func() {
		s.log.Info("server starting", zap.String("port", s.conf.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Fatal("server run error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	s.log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("http shutdown", zap.Error(err))
	}
	s.Hub.Stop()
	if err := s.Scheduler.Close(shutdownCtx); err != nil {
		s.log.Warn("translation cache not saved", zap.Error(err))
	}
	if err := s.Redis.Close(); err != nil {
		s.log.Warn("redis close", zap.Error(err))
	}
}
