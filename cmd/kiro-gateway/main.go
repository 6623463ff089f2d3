// Command kiro-gateway runs the gateway process: it loads configuration,
// builds the long-lived singletons (AuthCache, upstream client,
// credential file store), and serves until signaled to stop.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kiro-gateway/kiro-gateway/pkg/credential"
	"github.com/kiro-gateway/kiro-gateway/pkg/gateway"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwconfig"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwlog"
	"github.com/kiro-gateway/kiro-gateway/pkg/tokenpool"
	"github.com/kiro-gateway/kiro-gateway/pkg/upstream"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (yaml)")
	flag.Parse()

	cfg, err := gwconfig.Load(*configPath)
	if err != nil {
		log.Fatalf("kiro-gateway: loading config: %v", err)
	}

	logger := gwlog.NewStdLogger("kiro-gateway")

	var store *credential.FileStore
	if cfg.CredsFile != "" {
		store = credential.NewFileStore(cfg.CredsFile)
	}

	upstreamClient := upstream.New(upstream.Config{
		MaxRetries:           cfg.MaxRetries,
		BaseRetryDelay:       cfg.BaseRetryDelay,
		FirstTokenTimeout:    cfg.FirstTokenTimeout,
		FirstTokenMaxRetries: cfg.FirstTokenMaxRetries,
		NonStreamTimeout:     cfg.NonStreamTimeout,
		SlowModelPatterns:    cfg.SlowModelPatterns,
		SlowModelMultiplier:  cfg.SlowModelMultiplier,
		Logger:               logger,
	})

	// No embedded persistence layer ships with the gateway (spec.md §6.3:
	// "an implementation... is outside scope"); donated-token / sk-<hex>
	// modes are simply unavailable until an operator wires a Repository.
	var repo tokenpool.Repository

	deps := gateway.NewDependencies(cfg, logger, store, nil, upstreamClient, repo)
	server := gateway.NewServer(deps)

	shutdown := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		close(shutdown)
	}()

	if err := server.ListenAndServeWithGracefulShutdown(shutdown); err != nil {
		log.Fatalf("kiro-gateway: %v", err)
	}
}
