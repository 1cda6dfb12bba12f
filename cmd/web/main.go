// Command web serves the storefront JSON API.
package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/datapacket872/abu-web/internal/config"
	"github.com/datapacket872/abu-web/internal/logging"
	"github.com/datapacket872/abu-web/internal/server"
)

func main() {
	var (
		addr    string
		cfgPath string
	)
	flag.StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	flag.StringVar(&cfgPath, "config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		// Logger is not up yet.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if addr != "" {
		cfg.Addr = addr
	}

	log, err := logging.New(cfg.IsProduction())
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	api, err := server.New(server.Config{
		SigningKey:    []byte(cfg.SessionSigningKey),
		SecureCookies: cfg.IsProduction(),
		LoginRPS:      cfg.LoginRPS,
		LoginBurst:    cfg.LoginBurst,
		Log:           log,
	})
	if err != nil {
		log.Fatalw("server init", "err", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Mount("/api", api.Routes())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Infow("storefront api listening", "addr", cfg.Addr, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalw("listen", "err", err)
	}
}
