package main

import (
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/grpcreflect"
	"github.com/mcdev12/timekeep/go/internal/gateway"
	timekeepv1 "github.com/mcdev12/timekeep/go/internal/timekeepv1"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(cfg *Config, services *Services) (*http.Server, error) {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	// Register services
	registerServices(mux, services)

	// Add reflection for development
	if err := setupReflection(mux); err != nil {
		return nil, err
	}

	// Advisory WebSocket feed
	gateway.NewWebSocketHandler(services.Connections).RegisterRoutes(mux)

	// Add health check endpoint
	setupHealthCheck(mux)

	// Wrap with CORS
	handler := c.Handler(mux)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func registerServices(mux *http.ServeMux, services *Services) {
	services.LedgerService.Register(mux)
	services.TicketService.Register(mux)
	services.TimesheetService.Register(mux)
}

// setupReflection serves the timekeep.v1 schema built from the wire structs.
func setupReflection(mux *http.ServeMux) error {
	files, err := timekeepv1.Files()
	if err != nil {
		return fmt.Errorf("failed to build service descriptors: %w", err)
	}
	reflector := grpcreflect.NewReflector(
		grpcreflect.NamerFunc(func() []string { return []string{timekeepv1.ServiceName} }),
		grpcreflect.WithDescriptorResolver(files),
	)
	mux.Handle(grpcreflect.NewHandlerV1(reflector))
	mux.Handle(grpcreflect.NewHandlerV1Alpha(reflector))
	return nil
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
