package backup

import (
  "encoding/json"
  "fmt"
  "maps"
  "time"
)

const (
  PayloadVersion = 1
  isoLayout = "2006-01-02T15:04:05.000Z"
)

// WalletRecord is an opaque wallet entry. Only the merge keys are read; every
// other field round-trips untouched.
type WalletRecord map[string]any

func (w WalletRecord) ClientID() string {
  return w.str("clientId")
}

func (w WalletRecord) WalletName() string {
  return w.str("walletName")
}

func (w WalletRecord) ChainName() string {
  return w.str("chain_name")
}

func (w WalletRecord) str(key string) string {
  s, _ := w[key].(string)
  return s
}

// Payload is the decrypted content of a backup.
type Payload struct {
  Wallets []WalletRecord `json:"wallets"`
  MasterClientID string `json:"masterClientId,omitempty"`
  Timestamp string `json:"timestamp,omitempty"`
  Version int `json:"version,omitempty"`
}

func emptyPayload() Payload {
  return Payload{Wallets: []WalletRecord{}}
}

// Envelope is the file stored remotely. Data holds the output of Encrypt.
type Envelope struct {
  Data string `json:"data"`
  Timestamp string `json:"timestamp"`
  Version int `json:"version"`
}

func timestamp(t time.Time) string {
  return t.UTC().Format(isoLayout)
}

// Seal encrypts payload and wraps it in a serialized envelope.
func Seal(payload Payload, password string, now time.Time) (string, error) {
  ts := timestamp(now)
  payload.Timestamp = ts
  payload.Version = PayloadVersion
  if payload.Wallets == nil {
    payload.Wallets = []WalletRecord{}
  }

  data, err := Encrypt(payload, password)
  if err != nil {
    return "", err
  }
  raw, err := json.Marshal(Envelope{Data: data, Timestamp: ts, Version: PayloadVersion})
  if err != nil {
    return "", fmt.Errorf("marshal envelope: %w", err)
  }
  return string(raw), nil
}

// MergeWallets folds incoming into existing. A record matches on clientId,
// or on walletName and chain_name when no clientId matches. Matches are
// overlaid in place; the rest are appended in input order.
func MergeWallets(existing, incoming []WalletRecord) []WalletRecord {
  merged := make([]WalletRecord, 0, len(existing)+len(incoming))
  for _, w := range existing {
    merged = append(merged, maps.Clone(w))
  }

  for _, w := range incoming {
    idx := findWallet(merged, w)
    if idx < 0 {
      merged = append(merged, maps.Clone(w))
      continue
    }
    maps.Copy(merged[idx], w)
  }
  return merged
}

func findWallet(list []WalletRecord, w WalletRecord) int {
  if id := w.ClientID(); id != "" {
    for i, candidate := range list {
      if candidate.ClientID() == id {
        return i
      }
    }
  }
  name, chain := w.WalletName(), w.ChainName()
  if name == "" || chain == "" {
    return -1
  }
  for i, candidate := range list {
    if candidate.WalletName() == name && candidate.ChainName() == chain {
      return i
    }
  }
  return -1
}
