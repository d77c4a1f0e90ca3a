package config

import (
  "fmt"
  "os"
  "strconv"
  "strings"

  "github.com/kelseyhightower/envconfig"
  "gopkg.in/yaml.v3"
)

const (
  TransportSDK = "sdk"
  TransportBridge = "bridge"
)

type Config struct {
  Server ServerConfig `yaml:"server"`
  Auth AuthConfig `yaml:"auth"`
  Lightning LightningConfig `yaml:"lightning"`
  Backup BackupConfig `yaml:"backup"`
  Postgres PostgresConfig `yaml:"postgres"`
}

type ServerConfig struct {
  Host    string `yaml:"host"`
  Port    int    `yaml:"port"`
  TLSCert string `yaml:"tls_cert"`
  TLSKey  string `yaml:"tls_key"`
}

type AuthConfig struct {
  EmailHeader string `yaml:"email_header"`
}

type LightningConfig struct {
  Sandbox bool `yaml:"sandbox"`
  APIKey string `yaml:"api_key"`
  // Transport is "sdk" (in-process Breez Spark SDK) or "bridge" (gRPC).
  Transport string `yaml:"transport"`
  MaxSessions int `yaml:"max_sessions"`
  StorageDir string `yaml:"storage_dir"`
  BridgeHost string `yaml:"bridge_host"`
  TLSCertPath string `yaml:"tls_cert_path"`
  BridgeTokenPath string `yaml:"bridge_token_path"`
  ConfirmIntervalMs int `yaml:"confirm_interval_ms"`
  ConfirmMaxRetries int `yaml:"confirm_max_retries"`
  IntentTTLSec int `yaml:"intent_ttl_sec"`
}

type BackupConfig struct {
  Secret string `yaml:"secret"`
  FileName string `yaml:"file_name"`
  StoreDir string `yaml:"store_dir"`
}

type PostgresConfig struct {
  DSN string `yaml:"dsn"`
}

// envOverlay holds the secrets that are usually injected by the service
// manager rather than written to config.yaml.
type envOverlay struct {
  APIKey string `envconfig:"BREEZ_API_KEY"`
  BackupSecret string `envconfig:"WALLET_BACKUP_SECRET"`
  PostgresDSN string `envconfig:"DOKWALLET_PG_DSN"`
  Sandbox string `envconfig:"DOKWALLET_SANDBOX"`
}

func (c *Config) Network() string {
  if c.Lightning.Sandbox {
    return "regtest"
  }
  return "mainnet"
}

func Load(path string) (*Config, error) {
  b, err := os.ReadFile(path)
  if err != nil {
    return nil, err
  }

  cfg, err := Parse(b)
  if err != nil {
    return nil, err
  }

  if cfg.Server.TLSCert == "" || cfg.Server.TLSKey == "" {
    return nil, fmt.Errorf("server TLS cert/key required")
  }

  return cfg, nil
}

// Parse decodes a config document, applies defaults and the environment
// overlay. It does not enforce the settings only the server needs.
func Parse(b []byte) (*Config, error) {
  var cfg Config
  if err := yaml.Unmarshal(b, &cfg); err != nil {
    return nil, err
  }

  if err := applyEnv(&cfg); err != nil {
    return nil, err
  }
  applyDefaults(&cfg)
  return &cfg, nil
}

func applyEnv(cfg *Config) error {
  var env envOverlay
  if err := envconfig.Process("", &env); err != nil {
    return fmt.Errorf("failed to process env: %w", err)
  }
  if v := strings.TrimSpace(env.APIKey); v != "" {
    cfg.Lightning.APIKey = v
  }
  if v := strings.TrimSpace(env.BackupSecret); v != "" {
    cfg.Backup.Secret = v
  }
  if v := strings.TrimSpace(env.PostgresDSN); v != "" {
    cfg.Postgres.DSN = v
  }
  if v := strings.TrimSpace(env.Sandbox); v != "" {
    parsed, err := strconv.ParseBool(v)
    if err != nil {
      return fmt.Errorf("invalid DOKWALLET_SANDBOX: %w", err)
    }
    cfg.Lightning.Sandbox = parsed
  }
  return nil
}

func applyDefaults(cfg *Config) {
  if cfg.Server.Host == "" {
    cfg.Server.Host = "127.0.0.1"
  }
  if cfg.Server.Port == 0 {
    cfg.Server.Port = 8443
  }
  if cfg.Auth.EmailHeader == "" {
    cfg.Auth.EmailHeader = "X-Forwarded-Email"
  }
  if cfg.Lightning.StorageDir == "" {
    cfg.Lightning.StorageDir = "./.data"
  }
  if cfg.Lightning.Transport == "" {
    cfg.Lightning.Transport = TransportSDK
  }
  if cfg.Lightning.MaxSessions <= 0 {
    cfg.Lightning.MaxSessions = 256
  }
  if cfg.Lightning.BridgeHost == "" {
    cfg.Lightning.BridgeHost = "127.0.0.1:10019"
  }
  if cfg.Lightning.ConfirmIntervalMs <= 0 {
    cfg.Lightning.ConfirmIntervalMs = 3000
  }
  if cfg.Lightning.ConfirmMaxRetries <= 0 {
    cfg.Lightning.ConfirmMaxRetries = 30
  }
  if cfg.Lightning.IntentTTLSec <= 0 {
    cfg.Lightning.IntentTTLSec = 600
  }
  if cfg.Backup.FileName == "" {
    cfg.Backup.FileName = "wallet_backup_encrypted.json"
  }
  if cfg.Backup.StoreDir == "" {
    cfg.Backup.StoreDir = "/var/lib/dokwallet/backups"
  }
}
