package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"

	"paintbox/editor"
	"paintbox/gallery"
	"paintbox/handlers/api/artworks"
	"paintbox/handlers/api/host"
	"paintbox/handlers/api/sessions"
	"paintbox/handlers/auth"
	"paintbox/handlers/realtime"
	authMiddleware "paintbox/middleware"
	"paintbox/stores"
)

const defaultSessionMaxIdle = 30 * time.Minute

func sessionMaxIdle() time.Duration {
	raw := os.Getenv("SESSION_MAX_IDLE")
	if raw == "" {
		return defaultSessionMaxIdle
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		logrus.WithField("value", raw).Warn("Invalid SESSION_MAX_IDLE, using default")
		return defaultSessionMaxIdle
	}
	return d
}

func setupRouter(reg *editor.Registry, g *gallery.Gallery) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-CSRF-Token", "Token", "session", "Origin", "Host", "Connection", "Accept-Encoding", "Accept-Language", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/session", auth.HandleSessionExchange())
	})

	r.Route("/api/v2", func(r chi.Router) {
		r.Use(authMiddleware.AuthJWT)

		r.Route("/host", func(r chi.Router) {
			r.Post("/ready", host.HandleReady())
			r.Get("/context", host.HandleContext())
		})

		confirms := artworks.NewConfirmTracker()
		r.Route("/artworks", func(r chi.Router) {
			r.Get("/", artworks.HandleListArtworks(g))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", artworks.HandleGetArtwork(g))
				r.Put("/title", artworks.HandleRenameArtwork(g))
				r.Delete("/", artworks.HandleDeleteArtwork(g, confirms))
			})
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessions.HandleOpenSession(reg, g))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessions.HandleGetSession(reg))
				r.Delete("/", sessions.HandleCloseSession(reg))
				r.Post("/events", sessions.HandleSessionEvents(reg))
				r.Post("/undo", sessions.HandleUndo(reg))
				r.Post("/redo", sessions.HandleRedo(reg))
				r.Post("/tool", sessions.HandleSetTool(reg))
				r.Post("/selection/lock", sessions.HandleToggleSelectionLock(reg))
				r.Delete("/selection", sessions.HandleDeleteSelection(reg))
				r.Post("/save", sessions.HandleSaveArtwork(reg, g))
				r.Post("/export", sessions.HandleExport(reg))
			})
		})
	})

	return r
}

func waitForShutdown(ioo *socketio.Server, janitor *cron.Cron) {
	exit := make(chan struct{})
	SignalC := make(chan os.Signal, 1)

	signal.Notify(SignalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range SignalC {
			switch s {
			case os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	janitor.Stop()
	ioo.Close(nil)
	logrus.Info("Shutting down")
	os.Exit(0)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := flag.String("listen", ":3002", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	auth.InitAuth()
	store := stores.GetStore()
	g := gallery.New(store)
	reg := editor.NewRegistry(sessionMaxIdle())

	janitor := cron.New()
	if _, err := janitor.AddFunc("@every 5m", func() { reg.PruneIdle() }); err != nil {
		logrus.WithError(err).Fatal("Failed to schedule session janitor")
	}
	janitor.Start()

	r := setupRouter(reg, g)

	ioo := realtime.SetupSocketIO(reg)
	r.Mount("/socket.io/", ioo.ServeHandler(nil))

	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := http.ListenAndServe(*listenAddress, r); err != nil {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(ioo, janitor)
}
