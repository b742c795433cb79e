// Package main starts the trustd reputation ledger CLI.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	trustdcmd "github.com/intercomtrust/trustledger/internal/cmd/trustd"
)

func main() {
	cfg, args, err := trustdcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[TRUSTD] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := trustdcmd.Run(ctx, cfg, args, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("trustd: %v", err)
	}
}
