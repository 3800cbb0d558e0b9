// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/quizroom/internal/auth"
	"github.com/jason-s-yu/quizroom/internal/cache"
	"github.com/jason-s-yu/quizroom/internal/database"
	"github.com/jason-s-yu/quizroom/internal/handlers"
	"github.com/jason-s-yu/quizroom/internal/middleware"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// The catalog database and cache are optional: without them the
	// service still hosts games from the built-in pack.
	if os.Getenv("PG_HOST") != "" {
		if err := database.ConnectDB(); err != nil {
			logger.Fatalf("database connect failed: %v", err)
		}
		if err := database.Migrate(context.Background()); err != nil {
			logger.Fatalf("database migrate failed: %v", err)
		}
	} else {
		logger.Info("PG_HOST not set, running without a catalog database")
	}

	if os.Getenv("REDIS_ADDR") != "" {
		if err := cache.ConnectRedis(); err != nil {
			logger.Fatalf("redis connect failed: %v", err)
		}
	} else {
		logger.Info("REDIS_ADDR not set, running without a pack cache")
	}

	qs := handlers.NewQuizServer()
	qs.Logf = logger.Infof

	mux := http.NewServeMux()

	// quiz websocket
	mux.Handle("/quiz/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.QuizWSHandler(logger, qs),
	)))

	// session directory
	mux.Handle("/session/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.SessionInfoHandler(qs),
	)))

	// catalog endpoints
	mux.Handle("/catalog/packs", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.PacksHandler(qs),
	)))
	mux.Handle("/catalog/packs/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.PackByIDHandler(qs),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
