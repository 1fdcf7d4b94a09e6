// Command sparkqd runs the SparkQ task queue service: an embedded SQLite
// store, the background reapers, and the HTTP API, wired together the
// way the teacher's own main.go starts its global services before
// serving requests.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lucebryan3000/sparkq-poc-sub002/internal/api"
	"github.com/lucebryan3000/sparkq-poc-sub002/internal/config"
	"github.com/lucebryan3000/sparkq-poc-sub002/internal/lockfile"
	"github.com/lucebryan3000/sparkq-poc-sub002/internal/reaper"
	"github.com/lucebryan3000/sparkq-poc-sub002/internal/scheduler"
	"github.com/lucebryan3000/sparkq-poc-sub002/internal/store"
)

// version and buildID are overridden at build time with
// -ldflags "-X main.version=... -X main.buildID=...".
var version = "dev"
var buildID = "dev"

func main() {
	log.Println("sparkqd: starting")

	cfgPath, found := config.Resolve()
	if found {
		log.Printf("sparkqd: using config file %s", cfgPath)
	} else {
		log.Println("sparkqd: no sparkq.yml found, using built-in defaults")
	}
	cfgFile, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("sparkqd: load config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfgFile.Database.Path), 0o755); err != nil {
		log.Fatalf("sparkqd: create database directory: %v", err)
	}

	lock, err := lockfile.Acquire(cfgFile.Database.Path)
	if err != nil {
		log.Fatalf("sparkqd: %v", err)
	}
	defer lock.Release()

	s, err := store.Open(cfgFile.Database.Path)
	if err != nil {
		log.Fatalf("sparkqd: open store: %v", err)
	}
	defer s.Close()

	if _, err := s.EnsureDefaultProject(); err != nil {
		log.Fatalf("sparkqd: ensure default project: %v", err)
	}
	if err := config.Seed(s, cfgFile); err != nil {
		log.Fatalf("sparkqd: seed config: %v", err)
	}

	resolver := config.NewResolver(s, cfgFile)
	sch := scheduler.New(s)

	autoFail := reaper.NewAutoFail(s, time.Duration(resolver.AutoFailIntervalSeconds())*time.Second)
	autoFail.Start()
	defer autoFail.Stop()

	purge := reaper.NewPurge(s, time.Hour, resolver.PurgeRetentionDays(), 500)
	purge.Start()
	defer purge.Stop()

	var assets http.FileSystem
	if info, err := os.Stat("web/dashboard"); err == nil && info.IsDir() {
		assets = http.Dir("web/dashboard")
	}

	srv := api.New(s, sch, resolver, version, buildID, assets)
	defer srv.Shutdown(context.Background())

	httpServer := &http.Server{
		Addr:         cfgFile.Addr(),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("sparkqd: listening on %s", cfgFile.Addr())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("sparkqd: http server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("sparkqd: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("sparkqd: http shutdown: %v", err)
	}
}
