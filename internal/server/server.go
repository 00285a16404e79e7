package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/akolanti/DocQA/internal/adapter/utils"
	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/middleware"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("Server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

// CreateServer mounts the API on the shared router and blocks serving it.
func CreateServer(listenAddr string, mcpHandler http.Handler) {
	_logger = logger_i.NewLogger("Server")

	r := utils.GetRouter()
	routes(r.Router, mcpHandler)

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err, "addr", listenAddr)
	}
}

// routes registers every endpoint behind the trace, auth and rate limit middleware.
// The MCP endpoint is mounted only when mcpHandler is set.
func routes(r chi.Router, mcpHandler http.Handler) {
	r.Get("/", middleware.GetHandler)
	r.Post("/chat", middleware.ChatHandler)
	r.Get("/chat/{chatID}/history", middleware.GetHistoryHandler)
	r.Get("/status/{id}", middleware.GetStatusHandler)
	r.Post("/ingest", middleware.PostIngestHandler)
	r.Get("/index", middleware.GetIndexHandler)
	if mcpHandler != nil {
		r.Handle("/mcp", middleware.Wrap(mcpHandler.ServeHTTP))
	}
}

// ShutDownHandler waits for a signal, drains HTTP, then the worker pool, then the external
// clients. It exits the process if that takes longer than config.ShutdownContextTimeout.
func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if server != nil {
			server.SetKeepAlivesEnabled(false)
			if err := server.Shutdown(ctx); err != nil {
				_logger.Error("Could not shutdown gracefully", "error", err)
			}
		}

		//in-flight jobs finish before the stores and model clients close
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Graceful shutdown complete")
		close(shutdownParams.StopExecution)
	case <-ctx.Done():
		_logger.Error("Shutdown timed out, forcing exit")
		os.Exit(1)
	}
}
