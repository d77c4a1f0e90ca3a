package lightning

import (
  "context"
  "crypto/sha256"
  "encoding/hex"
  "errors"
  "log"
  "strings"
  "sync"
  "time"

  "golang.org/x/sync/singleflight"
)

const defaultConnectTimeout = 60 * time.Second

var (
  ErrMissingMnemonic = errors.New("mnemonic required")
  ErrSessionLimit = errors.New("too many open lightning sessions")
)

type RegistryConfig struct {
  Network string
  APIKey string
  StorageDir string
  ConnectTimeout time.Duration
  // MaxSessions bounds the number of live SDK handles. Zero means no limit.
  MaxSessions int
}

type session struct {
  sdk SDK
  network string
  connectedAt time.Time
}

// Registry owns one SDK handle per mnemonic for the life of the process.
// Concurrent connects for the same mnemonic share one attempt; distinct
// mnemonics never observe each other's in-flight connect.
type Registry struct {
  connector Connector
  cfg RegistryConfig
  logger *log.Logger

  mu sync.Mutex
  sessions map[string]*session
  initDone bool

  inflight singleflight.Group
}

func NewRegistry(connector Connector, cfg RegistryConfig, logger *log.Logger) *Registry {
  if cfg.Network == "" {
    cfg.Network = NetworkMainnet
  }
  if cfg.StorageDir == "" {
    cfg.StorageDir = "./.data"
  }
  if cfg.ConnectTimeout <= 0 {
    cfg.ConnectTimeout = defaultConnectTimeout
  }
  return &Registry{
    connector: connector,
    cfg: cfg,
    logger: logger,
    sessions: map[string]*session{},
  }
}

func (r *Registry) Network() string {
  return r.cfg.Network
}

// Connect returns the SDK handle for mnemonic, connecting on first use.
func (r *Registry) Connect(ctx context.Context, mnemonic string) (SDK, error) {
  if strings.TrimSpace(mnemonic) == "" {
    return nil, ErrMissingMnemonic
  }
  key := sessionKey(mnemonic)
  if sdk := r.lookup(key); sdk != nil {
    return sdk, nil
  }

  ch := r.inflight.DoChan(key, func() (any, error) {
    if sdk := r.lookup(key); sdk != nil {
      return sdk, nil
    }
    // The attempt is shared, so it must outlive the caller that started it.
    connectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.ConnectTimeout)
    defer cancel()
    return r.connect(connectCtx, key, mnemonic)
  })

  select {
  case <-ctx.Done():
    return nil, ctx.Err()
  case res := <-ch:
    if res.Err != nil {
      return nil, res.Err
    }
    return res.Val.(SDK), nil
  }
}

func (r *Registry) connect(ctx context.Context, key, mnemonic string) (SDK, error) {
  if r.full() {
    r.logger.Printf("lightning: session limit %d reached, refusing %s", r.cfg.MaxSessions, fingerprint(key))
    return nil, ErrSessionLimit
  }
  if err := r.ensureInit(ctx); err != nil {
    r.logger.Printf("lightning: sdk init failed: %v", err)
    return nil, err
  }

  sdk, err := r.connector.Connect(ctx, ConnectRequest{
    Mnemonic: mnemonic,
    Network: r.cfg.Network,
    APIKey: r.cfg.APIKey,
    StorageDir: r.cfg.StorageDir,
  })
  if err != nil {
    r.logger.Printf("lightning: connect %s failed: %v", fingerprint(key), err)
    return nil, err
  }
  if sdk == nil {
    return nil, errors.New("sdk connector returned no handle")
  }

  r.mu.Lock()
  if r.cfg.MaxSessions > 0 && len(r.sessions) >= r.cfg.MaxSessions {
    r.mu.Unlock()
    closeSDK(sdk)
    return nil, ErrSessionLimit
  }
  r.sessions[key] = &session{sdk: sdk, network: r.cfg.Network, connectedAt: time.Now().UTC()}
  r.mu.Unlock()

  r.logger.Printf("lightning: sdk connected %s network=%s", fingerprint(key), r.cfg.Network)
  return sdk, nil
}

func (r *Registry) ensureInit(ctx context.Context) error {
  r.mu.Lock()
  done := r.initDone
  r.mu.Unlock()
  if done {
    return nil
  }

  if err := r.connector.Init(ctx); err != nil {
    return err
  }

  r.mu.Lock()
  r.initDone = true
  r.mu.Unlock()
  return nil
}

func (r *Registry) lookup(key string) SDK {
  r.mu.Lock()
  defer r.mu.Unlock()
  if s, ok := r.sessions[key]; ok {
    return s.sdk
  }
  return nil
}

func (r *Registry) full() bool {
  if r.cfg.MaxSessions <= 0 {
    return false
  }
  r.mu.Lock()
  defer r.mu.Unlock()
  return len(r.sessions) >= r.cfg.MaxSessions
}

// Close disconnects every session that supports it.
func (r *Registry) Close() {
  r.mu.Lock()
  sessions := r.sessions
  r.sessions = map[string]*session{}
  r.mu.Unlock()
  for _, s := range sessions {
    closeSDK(s.sdk)
  }
}

func closeSDK(sdk SDK) {
  if c, ok := sdk.(interface{ Close() error }); ok {
    _ = c.Close()
  }
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
  r.mu.Lock()
  defer r.mu.Unlock()
  return len(r.sessions)
}

func sessionKey(mnemonic string) string {
  sum := sha256.Sum256([]byte(mnemonic))
  return hex.EncodeToString(sum[:])
}

func fingerprint(key string) string {
  if len(key) > 8 {
    return key[:8]
  }
  return key
}

// WalletKey identifies a wallet without revealing its mnemonic. The activity
// journal is keyed by it.
func WalletKey(mnemonic string) string {
  return sessionKey(mnemonic)
}
