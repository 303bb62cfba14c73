package transport

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/markblanca/quicklink-delivery/internal/shared/logger"
)

type Server struct {
	addr   string
	server *http.Server
	log    *logger.Logger
}

func NewHTTPServer(handler http.Handler, port int, log *logger.Logger) *Server {
	addr := ":" + strconv.Itoa(port)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		addr:   addr,
		server: httpServer,
		log:    log,
	}
}

// Serve запускает HTTP-сервер и блокируется до его остановки.
func (s *Server) Serve() error {
	s.log.Info(logger.Entry{
		Action:  "http_server_start",
		Message: "HTTP server listening",
		Additional: map[string]any{
			"addr": s.addr,
		},
	})

	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		// Штатное завершение через Shutdown; финальный лог будет в Shutdown
		return nil
	}
	if err != nil {
		s.log.Error(logger.Entry{
			Action:  "http_server_failed",
			Message: "HTTP server terminated with error",
			Error:   &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"addr":   s.addr,
				"status": "stopped",
			},
		})
		return err
	}
	return nil
}

// Shutdown мягко останавливает сервер с логированием статуса.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info(logger.Entry{
		Action:  "http_server_shutdown_begin",
		Message: "HTTP server shutdown initiated",
		Additional: map[string]any{
			"addr": s.addr,
		},
	})

	if err := s.server.Shutdown(ctx); err != nil {
		s.log.Error(logger.Entry{
			Action:  "http_server_shutdown_failed",
			Message: "HTTP server shutdown failed",
			Error:   &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"addr": s.addr,
			},
		})
		return err
	}

	s.log.Info(logger.Entry{
		Action:  "http_server_shutdown_complete",
		Message: "HTTP server stopped",
		Additional: map[string]any{
			"addr":   s.addr,
			"status": "stopped",
		},
	})
	return nil
}
