package server

import (
  "context"
  "crypto/tls"
  "fmt"
  "log"
  "net/http"
  "time"

  "dokwallet-manager/internal/config"
  "dokwallet-manager/internal/lightning"
  "dokwallet-manager/internal/store"
)

// ActivityLister reads the lightning activity journal.
type ActivityLister interface {
  List(ctx context.Context, wallet string, limit int) ([]lightning.Activity, error)
}

type Options struct {
  Lightning *lightning.Service
  Files store.FileStore
  Activity ActivityLister
}

type Server struct {
  cfg *config.Config
  logger *log.Logger
  lightning *lightning.Service
  files store.FileStore
  activity ActivityLister
}

func New(cfg *config.Config, logger *log.Logger, opts Options) *Server {
  return &Server{
    cfg: cfg,
    logger: logger,
    lightning: opts.Lightning,
    files: opts.Files,
    activity: opts.Activity,
  }
}

func (s *Server) Handler() http.Handler {
  return s.routes()
}

func (s *Server) Run() error {
  addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

  tlsCfg := &tls.Config{
    MinVersion: tls.VersionTLS12,
  }

  httpServer := &http.Server{
    Addr: addr,
    Handler: s.routes(),
    ReadHeaderTimeout: 10 * time.Second,
    TLSConfig: tlsCfg,
  }

  s.logger.Printf("listening on https://%s", addr)
  return httpServer.ListenAndServeTLS(s.cfg.Server.TLSCert, s.cfg.Server.TLSKey)
}
