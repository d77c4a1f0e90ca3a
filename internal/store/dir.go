package store

import (
  "context"
  "crypto/sha256"
  "encoding/hex"
  "encoding/json"
  "errors"
  "fmt"
  "os"
  "path/filepath"
  "sync"
  "time"

  "github.com/google/uuid"
)

// DirStore keeps one JSON document per owner and file name under root. It
// is used when no database is configured.
type DirStore struct {
  root string
  mu sync.Mutex
}

type dirRecord struct {
  ID string `json:"id"`
  Name string `json:"name"`
  Content string `json:"content"`
  CreatedAt time.Time `json:"createdTime"`
}

func NewDirStore(root string) (*DirStore, error) {
  if err := os.MkdirAll(root, 0700); err != nil {
    return nil, fmt.Errorf("create backup dir: %w", err)
  }
  return &DirStore{root: root}, nil
}

func (s *DirStore) Replace(ctx context.Context, owner, name, content string) (File, error) {
  if err := ctx.Err(); err != nil {
    return File{}, err
  }
  path, err := s.path(owner, name)
  if err != nil {
    return File{}, err
  }

  s.mu.Lock()
  defer s.mu.Unlock()

  if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
    return File{}, err
  }
  rec := dirRecord{
    ID: uuid.NewString(),
    Name: name,
    Content: content,
    CreatedAt: time.Now().UTC(),
  }
  raw, err := json.Marshal(rec)
  if err != nil {
    return File{}, err
  }

  tmpPath := path + ".tmp"
  if err := os.WriteFile(tmpPath, raw, 0600); err != nil {
    return File{}, err
  }
  if err := os.Rename(tmpPath, path); err != nil {
    _ = os.Remove(tmpPath)
    return File{}, err
  }
  return rec.file(owner), nil
}

func (s *DirStore) Get(ctx context.Context, owner, name string) (File, error) {
  if err := ctx.Err(); err != nil {
    return File{}, err
  }
  path, err := s.path(owner, name)
  if err != nil {
    return File{}, err
  }

  s.mu.Lock()
  raw, err := os.ReadFile(path)
  s.mu.Unlock()
  if errors.Is(err, os.ErrNotExist) {
    return File{}, ErrNotFound
  }
  if err != nil {
    return File{}, err
  }

  var rec dirRecord
  if err := json.Unmarshal(raw, &rec); err != nil {
    return File{}, fmt.Errorf("read backup %s: %w", name, err)
  }
  return rec.file(owner), nil
}

func (s *DirStore) path(owner, name string) (string, error) {
  if owner == "" {
    return "", errors.New("owner required")
  }
  if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
    return "", fmt.Errorf("invalid file name %q", name)
  }
  sum := sha256.Sum256([]byte(owner))
  return filepath.Join(s.root, hex.EncodeToString(sum[:]), name), nil
}

func (r dirRecord) file(owner string) File {
  return File{
    ID: r.ID,
    Owner: owner,
    Name: r.Name,
    Content: r.Content,
    Size: len(r.Content),
    CreatedAt: r.CreatedAt,
  }
}
