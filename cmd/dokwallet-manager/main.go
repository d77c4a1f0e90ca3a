package main

import (
  "context"
  "encoding/json"
  "flag"
  "log"
  "net/http"
  "os"
  "strings"
  "time"

  "dokwallet-manager/internal/backup"
  "dokwallet-manager/internal/breez"
  "dokwallet-manager/internal/config"
  "dokwallet-manager/internal/lightning"
  "dokwallet-manager/internal/server"
  "dokwallet-manager/internal/sparkclient"
  "dokwallet-manager/internal/store"

  "github.com/jackc/pgx/v5/pgxpool"
)

const defaultConfigPath = "/etc/dokwallet/config.yaml"

func main() {
  if len(os.Args) > 1 {
    switch os.Args[1] {
    case "serve":
      runServer(os.Args[2:])
      return
    case "backup-push":
      runBackupPush(os.Args[2:])
      return
    case "backup-pull":
      runBackupPull(os.Args[2:])
      return
    case "backup-decrypt":
      runBackupDecrypt(os.Args[2:])
      return
    }
  }

  runServer(os.Args[1:])
}

func runServer(args []string) {
  fs := flag.NewFlagSet("dokwallet-manager", flag.ExitOnError)
  configPath := fs.String("config", defaultConfigPath, "Path to config.yaml")
  _ = fs.Parse(args)

  cfg, err := config.Load(*configPath)
  if err != nil {
    log.Fatalf("config load failed: %v", err)
  }

  logger := log.New(os.Stdout, "", log.LstdFlags)
  opts := server.Options{}

  var journal *store.Journal
  if strings.TrimSpace(cfg.Postgres.DSN) != "" {
    ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
    if err != nil {
      cancel()
      logger.Fatalf("postgres connect failed: %v", err)
    }
    defer pool.Close()

    files := store.NewPostgresStore(pool)
    if err := files.EnsureSchema(ctx); err != nil {
      cancel()
      logger.Fatalf("store: schema failed: %v", err)
    }
    journal = store.NewJournal(pool)
    if err := journal.EnsureSchema(ctx); err != nil {
      cancel()
      logger.Fatalf("store: journal schema failed: %v", err)
    }
    cancel()
    opts.Files = files
    opts.Activity = journal
  } else {
    files, err := store.NewDirStore(cfg.Backup.StoreDir)
    if err != nil {
      logger.Fatalf("store: %v", err)
    }
    opts.Files = files
    logger.Printf("store: postgres not configured, backups kept in %s", cfg.Backup.StoreDir)
  }

  if strings.TrimSpace(cfg.Lightning.APIKey) == "" {
    logger.Printf("lightning: api key not configured, lightning endpoints disabled")
  } else {
    var connector lightning.Connector
    switch cfg.Lightning.Transport {
    case config.TransportSDK:
      connector = breez.New(cfg.Lightning, logger)
    case config.TransportBridge:
      bridge := sparkclient.New(cfg.Lightning, logger)
      defer bridge.Close()
      connector = bridge
    default:
      logger.Fatalf("lightning: unknown transport %q", cfg.Lightning.Transport)
    }

    registry := lightning.NewRegistry(connector, lightning.RegistryConfig{
      Network: cfg.Network(),
      APIKey: cfg.Lightning.APIKey,
      StorageDir: cfg.Lightning.StorageDir,
      MaxSessions: cfg.Lightning.MaxSessions,
    }, logger)
    defer registry.Close()
    svcOpts := lightning.ServiceOptions{
      IntentTTL: time.Duration(cfg.Lightning.IntentTTLSec) * time.Second,
      ConfirmInterval: time.Duration(cfg.Lightning.ConfirmIntervalMs) * time.Millisecond,
      ConfirmRetries: cfg.Lightning.ConfirmMaxRetries,
    }
    if journal != nil {
      svcOpts.Journal = journal
    }
    opts.Lightning = lightning.NewService(registry, svcOpts, logger)
    logger.Printf("lightning: network=%s transport=%s", cfg.Network(), cfg.Lightning.Transport)
  }

  srv := server.New(cfg, logger, opts)
  if err := srv.Run(); err != nil {
    logger.Fatalf("server exited: %v", err)
  }
}

type clientFlags struct {
  url *string
  email *string
  emailHeader *string
  timeout *time.Duration
}

func registerClientFlags(fs *flag.FlagSet) clientFlags {
  return clientFlags{
    url: fs.String("url", "https://127.0.0.1:8443", "Manager base URL"),
    email: fs.String("email", "", "Verified user email forwarded to the manager"),
    emailHeader: fs.String("email-header", "X-Forwarded-Email", "Header carrying the user email"),
    timeout: fs.Duration("timeout", 2*time.Minute, "Overall timeout"),
  }
}

func (f clientFlags) service(logger *log.Logger) *backup.Service {
  if strings.TrimSpace(*f.email) == "" {
    logger.Fatalf("--email is required")
  }
  header := http.Header{}
  header.Set(*f.emailHeader, *f.email)
  client := backup.NewClient(*f.url, header, nil)
  return backup.NewService(client, client, logger)
}

func runBackupPush(args []string) {
  fs := flag.NewFlagSet("backup-push", flag.ExitOnError)
  cf := registerClientFlags(fs)
  walletsPath := fs.String("wallets", "", "JSON file with {wallets, masterClientId}")
  _ = fs.Parse(args)

  logger := log.New(os.Stderr, "", log.LstdFlags)
  if strings.TrimSpace(*walletsPath) == "" {
    logger.Fatalf("backup-push failed: --wallets is required")
  }
  raw, err := os.ReadFile(*walletsPath)
  if err != nil {
    logger.Fatalf("backup-push failed: %v", err)
  }
  var input backup.Payload
  if err := json.Unmarshal(raw, &input); err != nil {
    logger.Fatalf("backup-push failed: invalid wallets file: %v", err)
  }

  ctx, cancel := context.WithTimeout(context.Background(), *cf.timeout)
  defer cancel()

  result, err := cf.service(logger).Backup(ctx, backup.Backup{
    Wallets: input.Wallets,
    MasterClientID: input.MasterClientID,
  })
  if err != nil {
    logger.Fatalf("backup-push failed: %v", err)
  }
  logger.Printf("backup: stored %d wallets file=%s", len(input.Wallets), result.FileID)
}

func runBackupPull(args []string) {
  fs := flag.NewFlagSet("backup-pull", flag.ExitOnError)
  cf := registerClientFlags(fs)
  outPath := fs.String("out", "", "Write the decrypted payload here instead of stdout")
  _ = fs.Parse(args)

  logger := log.New(os.Stderr, "", log.LstdFlags)
  ctx, cancel := context.WithTimeout(context.Background(), *cf.timeout)
  defer cancel()

  payload, err := cf.service(logger).Restore(ctx, "")
  if err != nil {
    logger.Fatalf("backup-pull failed: %v", err)
  }
  writePayload(logger, "backup-pull", payload, *outPath)
}

func runBackupDecrypt(args []string) {
  fs := flag.NewFlagSet("backup-decrypt", flag.ExitOnError)
  inPath := fs.String("in", "", "Exported backup envelope")
  key := fs.String("key", "", "Backup key (hex)")
  secret := fs.String("secret", "", "Server secret, used with --email when --key is not given")
  email := fs.String("email", "", "User email, used with --secret")
  outPath := fs.String("out", "", "Write the decrypted payload here instead of stdout")
  _ = fs.Parse(args)

  logger := log.New(os.Stderr, "", log.LstdFlags)
  if strings.TrimSpace(*inPath) == "" {
    logger.Fatalf("backup-decrypt failed: --in is required")
  }

  password := strings.TrimSpace(*key)
  if password == "" {
    if *secret == "" {
      *secret = os.Getenv("WALLET_BACKUP_SECRET")
    }
    derived, err := backup.UserKey(*secret, strings.TrimSpace(*email))
    if err != nil {
      logger.Fatalf("backup-decrypt failed: %v", err)
    }
    password = derived
  }

  raw, err := os.ReadFile(*inPath)
  if err != nil {
    logger.Fatalf("backup-decrypt failed: %v", err)
  }
  payload, err := backup.Open(string(raw), password)
  if err != nil {
    logger.Fatalf("backup-decrypt failed: %v", err)
  }
  writePayload(logger, "backup-decrypt", payload, *outPath)
}

func writePayload(logger *log.Logger, cmd string, payload backup.Payload, outPath string) {
  out, err := json.MarshalIndent(payload, "", "  ")
  if err != nil {
    logger.Fatalf("%s failed: %v", cmd, err)
  }
  out = append(out, '\n')
  if strings.TrimSpace(outPath) == "" {
    _, _ = os.Stdout.Write(out)
    return
  }
  if err := os.WriteFile(outPath, out, 0600); err != nil {
    logger.Fatalf("%s failed: %v", cmd, err)
  }
  logger.Printf("backup: wrote %d wallets to %s", len(payload.Wallets), outPath)
}
