package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-sso-server/internal/config"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load("")
	if err != nil {
		return err
	}
	setupLogging(c)
	if err := c.Validate(); err != nil {
		return err
	}
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	errCh := make(chan error, 2)
	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           a.server,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { errCh <- listenAndServe(httpServer) }()

	if addr := c.GetGRPCPort(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("grpc listen %s: %w", addr, err)
		}
		go func() {
			log.Info().Str("addr", lis.Addr().String()).Msg("gRPC server listening")
			if err := a.grpc.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
		defer a.grpc.GracefulStop()
	}

	go a.reaper.Run(ctx)
	go func() {
		if err := a.catalogue.Watch(ctx); err != nil {
			log.Err(err).Msg("Service catalogue watcher stopped")
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Stop signal received")
	case err := <-errCh:
		if err != nil {
			returnError = err
		}
	}
	if err := shutdown(httpServer); err != nil && returnError == nil {
		returnError = err
	}
	return returnError
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func setupLogging(c config.EnvConfig) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if c.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
