// Package main starts the discovery service and handles termination.
//
// The process serves category discovery lists, keeps them in sync with
// incoming topics and exposes a gRPC health endpoint on a side port.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	discoverycmd "github.com/louisbranch/topicfeed/internal/cmd/discovery"
)

func main() {
	cfg, err := discoverycmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[DISCOVERY] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := discoverycmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
