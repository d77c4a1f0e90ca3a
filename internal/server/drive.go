package server

import (
  "errors"
  "net/http"
  "strings"

  "dokwallet-manager/internal/backup"
  "dokwallet-manager/internal/store"
)

type backupUploadRequest struct {
  FileContent string `json:"fileContent"`
}

func (s *Server) handleBackupKey(w http.ResponseWriter, r *http.Request) {
  email := s.userEmail(r)
  if email == "" {
    writeError(w, http.StatusUnauthorized, "Unauthorized")
    return
  }

  key, err := backup.UserKey(s.cfg.Backup.Secret, email)
  if err != nil {
    s.logger.Printf("backup: key derivation unavailable: %v", err)
    writeError(w, http.StatusInternalServerError, "Server configuration error")
    return
  }
  writeJSON(w, http.StatusOK, map[string]string{"key": key})
}

func (s *Server) handleBackupUpload(w http.ResponseWriter, r *http.Request) {
  email := s.userEmail(r)
  if email == "" {
    writeAuthExpired(w)
    return
  }
  if s.files == nil {
    writeError(w, http.StatusInternalServerError, "Server configuration error")
    return
  }

  var req backupUploadRequest
  if err := readJSON(r, &req); err != nil {
    writeError(w, http.StatusBadRequest, "invalid json")
    return
  }
  if strings.TrimSpace(req.FileContent) == "" {
    writeError(w, http.StatusBadRequest, "No file content provided")
    return
  }

  file, err := s.files.Replace(r.Context(), email, s.cfg.Backup.FileName, req.FileContent)
  if err != nil {
    s.logger.Printf("backup: upload failed: %v", err)
    writeError(w, http.StatusInternalServerError, "Failed to upload backup")
    return
  }
  writeJSON(w, http.StatusOK, backup.UploadResult{Success: true, FileID: file.ID})
}

func (s *Server) handleBackupRestore(w http.ResponseWriter, r *http.Request) {
  email := s.userEmail(r)
  if email == "" {
    writeAuthExpired(w)
    return
  }
  if s.files == nil {
    writeError(w, http.StatusInternalServerError, "Server configuration error")
    return
  }

  file, err := s.files.Get(r.Context(), email, s.cfg.Backup.FileName)
  if errors.Is(err, store.ErrNotFound) {
    writeError(w, http.StatusNotFound, "No backup file found")
    return
  }
  if err != nil {
    s.logger.Printf("backup: restore failed: %v", err)
    writeError(w, http.StatusInternalServerError, "Failed to restore backup")
    return
  }

  writeJSON(w, http.StatusOK, map[string]any{
    "fileContent": file.Content,
    "metadata": file,
  })
}
