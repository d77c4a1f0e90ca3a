package backup

import (
  "bytes"
  "context"
  "encoding/json"
  "fmt"
  "io"
  "net/http"
  "strings"
  "time"
)

const (
  keyPath = "/api/drive/backup/key"
  uploadPath = "/api/drive/backup"
  restorePath = "/api/drive/restore"
)

// Client talks to the manager's drive endpoints. It is both the KeySource
// and the RemoteStore of a client-side Service.
type Client struct {
  baseURL string
  header http.Header
  http *http.Client
}

// NewClient returns a client for baseURL. header is sent with every request
// and carries whatever identifies the user to the upstream proxy.
func NewClient(baseURL string, header http.Header, httpClient *http.Client) *Client {
  if httpClient == nil {
    httpClient = &http.Client{Timeout: 30 * time.Second}
  }
  return &Client{
    baseURL: strings.TrimRight(baseURL, "/"),
    header: header.Clone(),
    http: httpClient,
  }
}

func (c *Client) BackupKey(ctx context.Context) (string, error) {
  var out struct {
    Key string `json:"key"`
  }
  if err := c.do(ctx, http.MethodGet, keyPath, nil, &out); err != nil {
    return "", err
  }
  if strings.TrimSpace(out.Key) == "" {
    return "", ErrEmptyKey
  }
  return out.Key, nil
}

func (c *Client) Download(ctx context.Context) (Download, error) {
  var out Download
  if err := c.do(ctx, http.MethodGet, restorePath, nil, &out); err != nil {
    return Download{}, err
  }
  return out, nil
}

func (c *Client) Upload(ctx context.Context, content string) (UploadResult, error) {
  if content == "" {
    return UploadResult{}, ErrEmptyContent
  }
  var out UploadResult
  if err := c.do(ctx, http.MethodPost, uploadPath, map[string]string{"fileContent": content}, &out); err != nil {
    return UploadResult{}, err
  }
  return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in any, out any) error {
  var body io.Reader
  if in != nil {
    buf, err := json.Marshal(in)
    if err != nil {
      return err
    }
    body = bytes.NewReader(buf)
  }

  req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
  if err != nil {
    return err
  }
  for k, values := range c.header {
    for _, v := range values {
      req.Header.Add(k, v)
    }
  }
  if in != nil {
    req.Header.Set("Content-Type", "application/json")
  }

  resp, err := c.http.Do(req)
  if err != nil {
    return err
  }
  defer resp.Body.Close()

  switch {
  case resp.StatusCode == http.StatusUnauthorized:
    return ErrAuthExpired
  case resp.StatusCode == http.StatusNotFound && path == restorePath:
    return ErrNoBackup
  case resp.StatusCode < 200 || resp.StatusCode >= 300:
    return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, errorMessage(resp.Body))
  }

  if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
    return fmt.Errorf("%s %s: decode response: %w", method, path, err)
  }
  return nil
}

func errorMessage(r io.Reader) string {
  var payload struct {
    Error string `json:"error"`
  }
  raw, _ := io.ReadAll(io.LimitReader(r, 4096))
  if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
    return payload.Error
  }
  return strings.TrimSpace(string(raw))
}
