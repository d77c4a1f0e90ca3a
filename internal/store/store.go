package store

import (
  "context"
  "errors"
  "strings"
  "time"
)

var ErrNotFound = errors.New("file not found")

// File is one stored backup file. Owner is the user the file belongs to;
// names are unique per owner.
type File struct {
  ID string `json:"id"`
  Owner string `json:"-"`
  Name string `json:"name"`
  Content string `json:"-"`
  Size int `json:"size"`
  CreatedAt time.Time `json:"createdTime"`
}

// FileStore keeps the private per-user app-data area the backup endpoints
// write to.
type FileStore interface {
  // Replace deletes any file with the same owner and name and stores content
  // under a fresh id.
  Replace(ctx context.Context, owner, name, content string) (File, error)
  Get(ctx context.Context, owner, name string) (File, error)
}

func nullableString(value string) any {
  if strings.TrimSpace(value) == "" {
    return nil
  }
  return value
}
