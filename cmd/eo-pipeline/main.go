package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/airbusgeo/eo-pipeline/pipeline"
	"github.com/airbusgeo/eo-pipeline/service/log"
)

// errIncomplete is returned when some assets could not be downloaded
var errIncomplete = errors.New("incomplete run")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	cancel()
	if errors.Is(err, errIncomplete) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("error", zap.Error(err))
	}
}

func run(ctx context.Context, args []string) error {
	config, err := newAppConfig(flag.NewFlagSet("eo-pipeline", flag.ExitOnError), args)
	if err != nil {
		return err
	}

	logger, err := log.New(config.LogLevel, config.Development)
	if err != nil {
		return fmt.Errorf("log.New: %w", err)
	}
	defer logger.Sync()
	ctx = log.WithLogger(ctx, logger)

	p := pipeline.New(ctx, config.Pipeline)
	defer func() {
		if err := p.Close(); err != nil {
			log.Logger(ctx).Sugar().Warnf("pipeline.Close: %v", err)
		}
	}()

	if config.Serve != "" {
		return serve(ctx, p, config.Serve)
	}

	m, err := p.Run(ctx, config.Query)
	var serr *pipeline.StageError
	if errors.As(err, &serr) {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if eerr := enc.Encode(m); eerr != nil {
		return fmt.Errorf("encode manifest: %w", eerr)
	}
	if err != nil {
		return err
	}
	if failures := m.Failures(); len(failures) > 0 {
		for _, f := range failures {
			log.Logger(ctx).Sugar().Warnf("%s: %s", f.ErrorKind, f.Message)
		}
		return fmt.Errorf("%w: %d/%d assets could not be downloaded", errIncomplete, len(failures), len(m.Results))
	}
	return nil
}

func serve(ctx context.Context, p *pipeline.Pipeline, addr string) error {
	router := p.NewHandler()
	router.(*mux.Router).HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	headersOk := handlers.AllowedHeaders([]string{"*"})
	originsOk := handlers.AllowedOrigins([]string{"*"})
	methodsOk := handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"})
	s := http.Server{
		Addr:        addr,
		Handler:     handlers.LoggingHandler(os.Stdout, handlers.CORS(originsOk, headersOk, methodsOk)(router)),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Logger(ctx).Fatal("pipeline.ListenAndServe", zap.Error(err))
		}
	}()
	log.Logger(ctx).Sugar().Infof("serving on %s", addr)

	<-ctx.Done()
	sctx, cncl := context.WithTimeout(context.Background(), 30*time.Second)
	defer cncl()
	return s.Shutdown(sctx)
}
