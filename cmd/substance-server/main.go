// Command substance-server runs a debug HTTP surface over a Document: a
// concrete rendering of spec §6's wire form, restoring the last saved
// snapshot from a local sqlite cache on startup and saving to it on a
// clean shutdown. It is a demo/inspection tool, not a collaboration
// server — the document core itself never touches the network.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	substance "github.com/systemshift/substance"
	"github.com/systemshift/substance/internal/substance/config"
	"github.com/systemshift/substance/internal/substance/httpapi"
	"github.com/systemshift/substance/internal/substance/schema"
	"github.com/systemshift/substance/internal/substance/snapshotcache"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx := context.Background()
	cache, err := snapshotcache.Open(ctx, cfg.SqlitePath)
	if err != nil {
		log.Fatalf("opening snapshot cache: %v", err)
	}
	defer cache.Close()

	doc := substance.New(articleSchema(cfg.SchemaName))
	doc.ForceTransactions(cfg.ForceTransactions)

	if snap, ok, err := cache.Load(ctx, "default"); err != nil {
		log.Fatalf("loading cached snapshot: %v", err)
	} else if ok {
		if err := doc.LoadSnapshot(snap); err != nil {
			log.Fatalf("restoring cached snapshot: %v", err)
		}
		log.Println("restored snapshot from cache")
	}

	apiServer := httpapi.New(doc)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Get("/health", apiServer.HealthCheck)
	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshot", apiServer.GetSnapshot)
		r.Post("/snapshot", apiServer.LoadSnapshot)
		r.Post("/nodes", apiServer.CreateNode)
		r.Get("/nodes/{id}", apiServer.GetNode)
		r.Delete("/nodes/{id}", apiServer.DeleteNode)
		r.Put("/nodes/{id}/{property}", apiServer.SetProperty)
		r.Post("/annotations/query", apiServer.QueryAnnotations)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting substance-server on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")

	if err := cache.Save(ctx, "default", doc.Snapshot()); err != nil {
		log.Printf("saving snapshot to cache: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("server exited")
}

func articleSchema(name string) *schema.Schema {
	s := schema.New(name, "1.0")
	_ = s.AddNodeClass(schema.NodeClass{
		Name: "paragraph",
		Role: schema.RoleText,
		Properties: []schema.PropertyDef{
			{Name: "content", Type: schema.PropString},
		},
	})
	_ = s.AddNodeClass(schema.NodeClass{
		Name: "strong",
		Role: schema.RoleAnnotation,
		Properties: []schema.PropertyDef{
			{Name: "path", Type: schema.PropJSON},
			{Name: "startOffset", Type: schema.PropInteger},
			{Name: "endOffset", Type: schema.PropInteger},
		},
	})
	_ = s.AddNodeClass(schema.NodeClass{
		Name: "body",
		Role: schema.RoleContainer,
	})
	s.SetDefaultTextType("paragraph")
	s.Freeze()
	return s
}
