package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	coresvc "github.com/starvault/casebot/internal/app/core/service"
	"github.com/starvault/casebot/pkg/logger"
)

// Service wraps the chi router in a standard library http.Server, managed as
// a lifecycle.Service alongside the queue, long-poll runner, and RNG
// scheduler (§4.10), grounded on the teacher's httpapi.Service.
type Service struct {
	addr   string
	server *http.Server
	log    *logger.Logger
}

// NewService returns a Service listening on addr, serving handler's router.
func NewService(addr string, handler *Handler, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("http")
	}
	return &Service{
		addr: addr,
		server: &http.Server{
			Addr:              addr,
			Handler:           handler.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

func (s *Service) Name() string { return "http-server" }

func (s *Service) Descriptor() coresvc.Descriptor {
	return coresvc.Descriptor{Name: s.Name(), Domain: "ingress", Layer: coresvc.LayerIngress}
}

// Start begins serving in the background; a bind failure is reported
// synchronously, a post-bind failure is logged (the process is expected to
// be supervised and restarted).
func (s *Service) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithField("error", err.Error()).Error("http server exited")
		}
	}()
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
