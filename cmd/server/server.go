package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/thereayou/ideaverse-chat/internal/config"
	"github.com/thereayou/ideaverse-chat/internal/database"
	"github.com/thereayou/ideaverse-chat/internal/handlers"
	"github.com/thereayou/ideaverse-chat/internal/services"
	"github.com/thereayou/ideaverse-chat/internal/websocket"
	"github.com/thereayou/ideaverse-chat/pkg/auth"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	HTTP  *http.Server
	DB    *database.Database
	Redis *redis.Client
	Hub   *websocket.Hub

	log *zap.Logger
}

func NewServer(cfg *config.Config, log *zap.Logger) (*Server, error) {
	db, err := database.Connect(database.ConnectOptions{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	// без REDIS_URL logout недоступен, токены не отзываются
	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("redis connect: %w", err)
		}
	} else {
		log.Warn("REDIS_URL is not set, token blacklist disabled")
	}

	gate, err := services.NewGate(log)
	if err != nil {
		return nil, err
	}

	jwtMgr := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TTL)
	resolver := services.NewIdentityResolver(jwtMgr, db, rdb, log)
	chat := services.NewChatService(db, gate, log, services.Options{
		HistoryLimit:  cfg.Chat.HistoryLimit,
		RoomListLimit: cfg.Chat.RoomListLimit,
	})

	hub := websocket.NewHub(log)

	router := handlers.NewRouter(handlers.Deps{
		Chat:        chat,
		Resolver:    resolver,
		Users:       db,
		Hub:         hub,
		Log:         log,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})

	return &Server{
		HTTP: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		DB:    db,
		Redis: rdb,
		Hub:   hub,
		log:   log,
	}, nil
}

// Run блокируется до отмены ctx, затем гасит HTTP и хаб
func (s *Server) Run(ctx context.Context) error {
	go s.Hub.Run()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", s.HTTP.Addr))
		if err := s.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.close()
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// соединения websocket хаб закрывает сам, Shutdown их не ждёт
	s.Hub.Stop()
	err := s.HTTP.Shutdown(shutdownCtx)
	s.close()
	return err
}

func (s *Server) close() {
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if err := s.DB.Close(); err != nil {
		s.log.Warn("database close failed", zap.Error(err))
	}
}
