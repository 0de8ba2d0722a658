package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/viant/conveyor"
	"github.com/viant/conveyor/service/dashboard"
)

func main() {
	configURL := flag.String("config", "", "configuration URL (YAML); empty uses sandbox defaults")
	addr := flag.String("addr", ":8080", "dashboard listen address")
	drain := flag.Bool("drain", false, "process pending documents and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	config := conveyor.DefaultConfig()
	if *configURL != "" {
		loaded, err := conveyor.LoadConfig(ctx, *configURL)
		if err != nil {
			log.Fatalf("conveyor: %v", err)
		}
		config = *loaded
	}

	service, err := conveyor.New(config)
	if err != nil {
		log.Fatalf("conveyor: %v", err)
	}

	if *drain {
		service.Runtime().StartInBackground(ctx)
		defer service.Runtime().Shutdown()
		if err = service.Runtime().Drain(ctx); err != nil {
			log.Fatalf("conveyor: drain failed: %v", err)
		}
		log.Printf("conveyor: drained, exiting")
		return
	}

	server := &http.Server{Addr: *addr, Handler: dashboard.New(service).Handler()}
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	service.Runtime().StartInBackground(ctx)
	defer service.Runtime().Shutdown()

	log.Printf("conveyor: dashboard listening on %v", *addr)
	if err = server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("conveyor: %v", err)
	}
	if err = service.Runtime().Err(); err != nil {
		log.Fatalf("conveyor: stopped with fatal error: %v", err)
	}
}
