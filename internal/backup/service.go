package backup

import (
  "context"
  "crypto/hmac"
  "crypto/sha256"
  "encoding/hex"
  "encoding/json"
  "errors"
  "fmt"
  "log"
  "strings"
  "time"
)

var (
  ErrNoBackup = errors.New("no backup file found")
  ErrUndecryptable = errors.New("backup could not be decrypted")
  ErrAuthExpired = errors.New("session expired, sign in again")
  ErrSecretNotConfigured = errors.New("backup secret is not configured")
  ErrEmptyContent = errors.New("no file content provided")
  ErrEmptyKey = errors.New("server returned an empty encryption key")
)

// UserKey derives the per-user backup password from the server secret and
// the caller's verified email.
func UserKey(secret, email string) (string, error) {
  if secret == "" {
    return "", ErrSecretNotConfigured
  }
  mac := hmac.New(sha256.New, []byte(secret))
  mac.Write([]byte(email))
  return hex.EncodeToString(mac.Sum(nil)), nil
}

type KeySource interface {
  BackupKey(ctx context.Context) (string, error)
}

// RemoteStore is the file store holding one backup per user. Download
// returns ErrNoBackup when nothing has been uploaded yet.
type RemoteStore interface {
  Download(ctx context.Context) (Download, error)
  Upload(ctx context.Context, content string) (UploadResult, error)
}

type Download struct {
  FileContent string `json:"fileContent"`
  Metadata map[string]any `json:"metadata,omitempty"`
}

type UploadResult struct {
  Success bool `json:"success"`
  FileID string `json:"fileId"`
}

type Backup struct {
  Wallets []WalletRecord
  MasterClientID string
}

type Service struct {
  keys KeySource
  remote RemoteStore
  logger *log.Logger
  now func() time.Time
}

func NewService(keys KeySource, remote RemoteStore, logger *log.Logger) *Service {
  return &Service{keys: keys, remote: remote, logger: logger, now: time.Now}
}

// Backup merges req into the current remote backup and uploads the result.
// A remote backup that cannot be read is treated as empty.
func (s *Service) Backup(ctx context.Context, req Backup) (UploadResult, error) {
  key, err := s.keys.BackupKey(ctx)
  if err != nil {
    return UploadResult{}, err
  }

  existing, err := s.Restore(ctx, key)
  if err != nil {
    if !errors.Is(err, ErrNoBackup) {
      s.logger.Printf("backup: existing backup unreadable, starting fresh: %v", err)
    }
    existing = emptyPayload()
  }

  master := req.MasterClientID
  if master == "" {
    master = existing.MasterClientID
  }
  payload := Payload{
    Wallets: MergeWallets(existing.Wallets, req.Wallets),
    MasterClientID: master,
  }

  content, err := Seal(payload, key, s.now())
  if err != nil {
    return UploadResult{}, err
  }
  result, err := s.remote.Upload(ctx, content)
  if err != nil {
    return UploadResult{}, err
  }
  s.logger.Printf("backup: uploaded %d wallets file=%s", len(payload.Wallets), result.FileID)
  return result, nil
}

// Restore downloads and decrypts the remote backup. key is fetched from the
// key source when empty. A decryption failure returns an empty payload
// together with ErrUndecryptable.
func (s *Service) Restore(ctx context.Context, key string) (Payload, error) {
  if key == "" {
    fetched, err := s.keys.BackupKey(ctx)
    if err != nil {
      return emptyPayload(), err
    }
    key = fetched
  }

  dl, err := s.remote.Download(ctx)
  if err != nil {
    return emptyPayload(), err
  }
  return Open(dl.FileContent, key)
}

// Open decrypts a serialized envelope.
func Open(content, key string) (Payload, error) {
  var env Envelope
  if err := json.Unmarshal([]byte(content), &env); err != nil {
    return emptyPayload(), nil
  }
  if strings.TrimSpace(env.Data) == "" {
    return emptyPayload(), nil
  }

  var payload Payload
  if err := Decrypt(env.Data, key, &payload); err != nil {
    return emptyPayload(), fmt.Errorf("%w: %w", ErrUndecryptable, err)
  }
  if payload.Wallets == nil {
    payload.Wallets = []WalletRecord{}
  }
  return payload, nil
}
