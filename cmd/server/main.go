// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/squadup/squadup/internal/auth"
	"github.com/squadup/squadup/internal/bridge"
	"github.com/squadup/squadup/internal/database"
	"github.com/squadup/squadup/internal/handlers"
	"github.com/squadup/squadup/internal/lobby"
	"github.com/squadup/squadup/internal/middleware"
	"github.com/squadup/squadup/internal/models"
	"github.com/squadup/squadup/internal/presence"
	"github.com/squadup/squadup/internal/registry"
)

func main() {
	logger := logrus.New()
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}

	priv, pub := os.Getenv("AUTH_PRIVATE_KEY_FILE"), os.Getenv("AUTH_PUBLIC_KEY_FILE")
	if priv != "" && pub != "" {
		if err := auth.InitFromPath(priv, pub); err != nil {
			logger.Fatalf("failed to load session keys: %v", err)
		}
	} else {
		auth.Init()
	}

	ctx := context.Background()

	// Postgres is required for users, friends, follows, and the party
	// archive. The party registry itself is purely in-memory.
	var db *database.Store
	if os.Getenv("PG_HOST") != "" {
		var err error
		db, err = database.Connect(ctx)
		if err != nil {
			logger.Fatalf("database connect failed: %v", err)
		}
		defer db.Close()
	} else {
		logger.Warn("PG_HOST not set; running without persistence")
	}

	// Presence is best effort: without Redis the service still serves
	// parties and lobbies, just with empty active-user lists.
	pres, err := presence.Connect(ctx)
	if err != nil {
		logger.Warnf("presence unavailable: %v", err)
		pres = nil
	}

	reg := registry.New(logger)
	defer reg.Close()

	if db != nil {
		reg.OnEvict = func(p models.Party, reason registry.EvictReason) {
			// Archive off the actor goroutine; eviction must not block on I/O.
			go func() {
				archiveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := db.ArchiveParty(archiveCtx, p, string(reason)); err != nil {
					logger.Warnf("failed to archive party %s: %v", p.ID, err)
				}
			}()
		}
	}

	var agg *lobby.Aggregator
	if pres != nil {
		agg = lobby.NewAggregator(reg, pres)
	} else {
		agg = lobby.NewAggregator(reg, nil)
	}

	hub := handlers.NewHub(logger, agg)
	defer hub.Close()
	reg.OnChange = hub.Notify

	// Upstream party feed, if configured. Each game listed in FEED_GAMES is
	// mirrored into the registry via full-replacement snapshots.
	if feedURL := os.Getenv("FEED_URL"); feedURL != "" {
		feed := bridge.NewFeedClient(feedURL, logger)
		binder := bridge.NewBinder(feed, reg, logger)
		for _, raw := range strings.Split(os.Getenv("FEED_GAMES"), ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			gameID, err := uuid.Parse(raw)
			if err != nil {
				logger.Warnf("skipping invalid FEED_GAMES entry %q: %v", raw, err)
				continue
			}
			sub, err := binder.Bind(gameID)
			if err != nil {
				logger.Warnf("failed to bind feed for game %s: %v", gameID, err)
				continue
			}
			defer sub.Unsubscribe()
		}
	}

	srv := handlers.NewServer(logger, reg, agg, pres, db, hub)

	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(logger)

	// user endpoints
	mux.Handle("/user/create", logged(http.HandlerFunc(srv.CreateUserHandler)))
	mux.Handle("/user/login", logged(http.HandlerFunc(srv.LoginHandler)))

	// friend endpoints
	mux.Handle("/friends/add", logged(http.HandlerFunc(srv.AddFriendHandler)))
	mux.Handle("/friends/accept", logged(http.HandlerFunc(srv.AcceptFriendHandler)))
	mux.Handle("/friends/list", logged(http.HandlerFunc(srv.ListFriendsHandler)))
	mux.Handle("/friends/remove", logged(http.HandlerFunc(srv.RemoveFriendHandler)))

	// party endpoints
	mux.Handle("/party/create", logged(http.HandlerFunc(srv.CreatePartyHandler)))
	mux.Handle("/party/join", logged(http.HandlerFunc(srv.JoinPartyHandler)))
	mux.Handle("/party/leave", logged(http.HandlerFunc(srv.LeavePartyHandler)))
	mux.Handle("/party/list", logged(http.HandlerFunc(srv.ListPartiesHandler)))

	// lobby endpoints
	mux.Handle("/lobby/list", logged(http.HandlerFunc(srv.LobbiesHandler)))
	mux.Handle("/lobby/active", logged(http.HandlerFunc(srv.ActiveUsersHandler)))
	mux.Handle("/lobby/ws/", logged(http.HandlerFunc(srv.LobbyWSHandler)))

	// followed tag groups
	mux.Handle("/tags/follow", logged(http.HandlerFunc(srv.FollowTagsHandler)))
	mux.Handle("/tags/unfollow", logged(http.HandlerFunc(srv.UnfollowTagsHandler)))
	mux.Handle("/tags/followed", logged(http.HandlerFunc(srv.ListFollowedHandler)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", addr)
		errc <- server.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Errorf("server exited: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("shutdown error: %v", err)
		}
	}
}
