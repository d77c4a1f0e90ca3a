package sparkclient

import (
  "context"
  "crypto/x509"
  "encoding/json"
  "errors"
  "fmt"
  "log"
  "os"
  "strings"
  "sync"

  "dokwallet-manager/internal/config"
  "dokwallet-manager/internal/lightning"

  "google.golang.org/grpc"
  "google.golang.org/grpc/codes"
  "google.golang.org/grpc/credentials"
  "google.golang.org/grpc/credentials/insecure"
  "google.golang.org/grpc/status"
  "google.golang.org/protobuf/encoding/protojson"
  "google.golang.org/protobuf/types/known/structpb"
)

const (
  servicePrefix = "/spark.v1.SparkBridge/"
  maxGRPCMsgSize = 16 * 1024 * 1024
)

var (
  ErrUnauthenticated = errors.New("spark bridge rejected credentials")
  ErrBridgeUnavailable = errors.New("spark bridge unavailable")
)

// Client is the gRPC client of the Spark SDK bridge. One connection is shared
// by every wallet session.
type Client struct {
  cfg config.LightningConfig
  logger *log.Logger

  mu sync.Mutex
  conn *grpc.ClientConn
  dialOpts []grpc.DialOption
}

func New(cfg config.LightningConfig, logger *log.Logger) *Client {
  return &Client{cfg: cfg, logger: logger}
}

type tokenCredential struct {
  token string
  secure bool
}

func (t tokenCredential) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
  return map[string]string{"authorization": "Bearer " + t.token}, nil
}

func (t tokenCredential) RequireTransportSecurity() bool {
  return t.secure
}

func (c *Client) dial(ctx context.Context) (*grpc.ClientConn, error) {
  opts := []grpc.DialOption{
    grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxGRPCMsgSize)),
  }

  secure := strings.TrimSpace(c.cfg.TLSCertPath) != ""
  if secure {
    tlsCert, err := os.ReadFile(c.cfg.TLSCertPath)
    if err != nil {
      return nil, err
    }
    certPool := x509.NewCertPool()
    if ok := certPool.AppendCertsFromPEM(tlsCert); !ok {
      return nil, fmt.Errorf("failed to parse spark bridge TLS cert")
    }
    opts = append(opts, grpc.WithTransportCredentials(credentials.NewClientTLSFromCert(certPool, "")))
  } else {
    opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
  }

  if strings.TrimSpace(c.cfg.BridgeTokenPath) != "" {
    token, err := os.ReadFile(c.cfg.BridgeTokenPath)
    if err != nil {
      return nil, err
    }
    opts = append(opts, grpc.WithPerRPCCredentials(tokenCredential{
      token: strings.TrimSpace(string(token)),
      secure: secure,
    }))
  }

  opts = append(opts, c.dialOpts...)
  return grpc.DialContext(ctx, c.cfg.BridgeHost, opts...)
}

func (c *Client) connection(ctx context.Context) (*grpc.ClientConn, error) {
  c.mu.Lock()
  defer c.mu.Unlock()
  if c.conn != nil {
    return c.conn, nil
  }
  conn, err := c.dial(ctx)
  if err != nil {
    return nil, err
  }
  c.conn = conn
  c.logger.Printf("sparkclient: bridge connection opened host=%s", c.cfg.BridgeHost)
  return conn, nil
}

func (c *Client) Close() error {
  c.mu.Lock()
  defer c.mu.Unlock()
  if c.conn == nil {
    return nil
  }
  err := c.conn.Close()
  c.conn = nil
  return err
}

// invoke calls method with req encoded as a protobuf Struct and decodes the
// Struct reply into out.
func (c *Client) invoke(ctx context.Context, method string, req map[string]any, out any) error {
  conn, err := c.connection(ctx)
  if err != nil {
    return err
  }

  in, err := structpb.NewStruct(req)
  if err != nil {
    return fmt.Errorf("encode %s request: %w", method, err)
  }
  reply := &structpb.Struct{}
  if err := conn.Invoke(ctx, servicePrefix+method, in, reply); err != nil {
    return mapError(method, err)
  }
  if out == nil {
    return nil
  }

  raw, err := protojson.Marshal(reply)
  if err != nil {
    return fmt.Errorf("decode %s reply: %w", method, err)
  }
  if err := json.Unmarshal(raw, out); err != nil {
    return fmt.Errorf("decode %s reply: %w", method, err)
  }
  return nil
}

func mapError(method string, err error) error {
  st, ok := status.FromError(err)
  if !ok {
    return err
  }
  switch st.Code() {
  case codes.Unauthenticated, codes.PermissionDenied:
    return fmt.Errorf("%s: %w: %s", method, ErrUnauthenticated, st.Message())
  case codes.Unavailable:
    return fmt.Errorf("%s: %w: %s", method, ErrBridgeUnavailable, st.Message())
  case codes.DeadlineExceeded, codes.Canceled:
    return err
  }
  return fmt.Errorf("%s: %s", method, st.Message())
}

// Init registers the API key with the bridge runtime.
func (c *Client) Init(ctx context.Context) error {
  return c.invoke(ctx, "Init", map[string]any{"apiKey": c.cfg.APIKey}, nil)
}

func (c *Client) Connect(ctx context.Context, req lightning.ConnectRequest) (lightning.SDK, error) {
  var reply struct {
    SessionID string `json:"sessionId"`
  }
  err := c.invoke(ctx, "Connect", map[string]any{
    "mnemonic": req.Mnemonic,
    "network": req.Network,
    "apiKey": req.APIKey,
    "storageDir": req.StorageDir,
  }, &reply)
  if err != nil {
    return nil, err
  }
  if reply.SessionID == "" {
    return nil, errors.New("spark bridge returned an empty session id")
  }
  return &session{client: c, id: reply.SessionID}, nil
}
