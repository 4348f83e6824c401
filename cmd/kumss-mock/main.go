// Command kumss-mock serves a seeded in-memory copy of the KUMSS REST API
// for working on the console without a backend.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/kumss/console/internal/mockapi"
)

func main() {
	addr := pflag.String("addr", "127.0.0.1:8000", "listen address")
	token := pflag.String("token", "", "require this bearer token")
	latency := pflag.Duration("latency", 0, "delay every response, e.g. 300ms")
	quiet := pflag.Bool("quiet", false, "do not log requests")
	empty := pflag.Bool("empty", false, "start without seed data")
	pflag.Parse()

	store := mockapi.NewStore(nil)
	for _, c := range mockapi.Collections() {
		store.Register(c)
	}
	if !*empty {
		if err := mockapi.Seed(store); err != nil {
			log.Fatalf("seed: %v", err)
		}
	}

	var requestLog io.Writer = os.Stderr
	if *quiet {
		requestLog = nil
	}
	srv := mockapi.NewServer(store, mockapi.Options{
		Address:    *addr,
		Token:      *token,
		Latency:    *latency,
		RequestLog: requestLog,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()
	fmt.Fprintf(os.Stderr, "serving http://%s%s\n", *addr, mockapi.Prefix)

	select {
	case err := <-errc:
		if err != nil {
			log.Fatalf("serve: %v", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}
