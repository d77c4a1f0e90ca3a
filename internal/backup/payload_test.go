package backup

import (
  "encoding/json"
  "testing"
  "time"

  "github.com/stretchr/testify/require"
)

func TestMergeWalletsReplacesByClientID(t *testing.T) {
  existing := []WalletRecord{
    {"clientId": "a", "walletName": "W1", "coins": []any{"btc"}},
    {"clientId": "z", "walletName": "Other"},
  }
  incoming := []WalletRecord{{"clientId": "a", "walletName": "W1-renamed"}}

  merged := MergeWallets(existing, incoming)
  require.Len(t, merged, 2)
  require.Equal(t, "W1-renamed", merged[0].WalletName())
  require.Equal(t, []any{"btc"}, merged[0]["coins"])
  require.Equal(t, "z", merged[1].ClientID())

  require.Equal(t, "W1", existing[0].WalletName())
}

func TestMergeWalletsFallsBackToNameAndChain(t *testing.T) {
  existing := []WalletRecord{
    {"walletName": "Main", "chain_name": "bitcoin", "phrase": "old"},
    {"walletName": "Main", "chain_name": "ethereum"},
  }
  incoming := []WalletRecord{
    {"walletName": "Main", "chain_name": "ethereum", "privateKey": "0xabc"},
    {"walletName": "Main", "chain_name": "tron"},
    {"walletName": "Fresh"},
  }

  merged := MergeWallets(existing, incoming)
  require.Len(t, merged, 4)
  require.Equal(t, "old", merged[0]["phrase"])
  require.Equal(t, "0xabc", merged[1]["privateKey"])
  require.Equal(t, "tron", merged[2].ChainName())
  require.Equal(t, "Fresh", merged[3].WalletName())
}

func TestMergeWalletsClientIDTakesPrecedence(t *testing.T) {
  existing := []WalletRecord{
    {"walletName": "Main", "chain_name": "bitcoin"},
    {"clientId": "c1", "walletName": "Savings", "chain_name": "bitcoin"},
  }
  incoming := []WalletRecord{{"clientId": "c1", "walletName": "Main", "chain_name": "bitcoin"}}

  merged := MergeWallets(existing, incoming)
  require.Len(t, merged, 2)
  require.Equal(t, "Main", merged[1].WalletName())
  require.Empty(t, merged[0].ClientID())
}

func TestMergeWalletsUnmatchedClientIDFallsBackToName(t *testing.T) {
  existing := []WalletRecord{{"walletName": "Main", "chain_name": "bitcoin"}}
  incoming := []WalletRecord{{"clientId": "new", "walletName": "Main", "chain_name": "bitcoin"}}

  merged := MergeWallets(existing, incoming)
  require.Len(t, merged, 1)
  require.Equal(t, "new", merged[0].ClientID())
}

func TestSealProducesEnvelope(t *testing.T) {
  now := time.Date(2026, 3, 4, 5, 6, 7, 8000000, time.UTC)
  content, err := Seal(Payload{MasterClientID: "m"}, "key", now)
  require.NoError(t, err)

  var env Envelope
  require.NoError(t, json.Unmarshal([]byte(content), &env))
  require.Equal(t, 1, env.Version)
  require.Equal(t, "2026-03-04T05:06:07.008Z", env.Timestamp)
  require.Regexp(t, `^v1-gcm:[A-Za-z0-9+/=]+$`, env.Data)

  payload, err := Open(content, "key")
  require.NoError(t, err)
  require.Equal(t, "m", payload.MasterClientID)
  require.Equal(t, 1, payload.Version)
  require.Equal(t, env.Timestamp, payload.Timestamp)
  require.NotNil(t, payload.Wallets)
  require.Empty(t, payload.Wallets)
}

func TestOpenLenientOnEmptyData(t *testing.T) {
  for _, content := range []string{"", "not json", `{"data":""}`, `{"timestamp":"x","version":1}`} {
    payload, err := Open(content, "key")
    require.NoError(t, err, content)
    require.Equal(t, []WalletRecord{}, payload.Wallets)
  }
}

func TestOpenSurfacesDecryptFailure(t *testing.T) {
  content, err := Seal(Payload{Wallets: []WalletRecord{{"clientId": "a"}}}, "key", time.Now())
  require.NoError(t, err)

  payload, err := Open(content, "other")
  require.ErrorIs(t, err, ErrUndecryptable)
  require.ErrorIs(t, err, ErrWrongPassword)
  require.Equal(t, []WalletRecord{}, payload.Wallets)

  payload, err = Open(`{"data":"garbage","version":1}`, "key")
  require.ErrorIs(t, err, ErrUndecryptable)
  require.ErrorIs(t, err, ErrUnsupportedFormat)
  require.Equal(t, []WalletRecord{}, payload.Wallets)
}
