package server

import (
  "net/http"

  "github.com/go-chi/chi/v5"
  "github.com/go-chi/chi/v5/middleware"
)

func (s *Server) routes() http.Handler {
  r := chi.NewRouter()
  r.Use(middleware.Recoverer)
  r.Use(s.requestLogger())

  r.Get("/api/health", s.handleHealth)

  r.Route("/api/drive", func(r chi.Router) {
    r.Get("/backup/key", s.handleBackupKey)
    r.Post("/backup", s.handleBackupUpload)
    r.Get("/restore", s.handleBackupRestore)
  })

  r.Route("/api/lightning", func(r chi.Router) {
    r.Use(s.requireUser)
    r.Use(s.requireLightning)
    r.Post("/balance", s.handleLightningBalance)
    r.Post("/prepare", s.handleLightningPrepare)
    r.Post("/send", s.handleLightningSend)
    r.Post("/validate", s.handleLightningValidate)
    r.Post("/receive", s.handleLightningReceive)
    r.Post("/confirm", s.handleLightningConfirm)
    r.Post("/transactions", s.handleLightningTransactions)
    r.Post("/deposits", s.handleLightningDeposits)
    r.Post("/deposits/claim", s.handleLightningClaim)
    r.Post("/deposits/refund", s.handleLightningRefund)
    r.Post("/activity", s.handleLightningActivity)
  })

  return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
  writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
