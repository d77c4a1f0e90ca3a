package breez

import (
  "context"
  "errors"
  "fmt"
  "log"
  "os"

  "dokwallet-manager/internal/config"
  "dokwallet-manager/internal/lightning"

  "github.com/breez/breez-sdk-spark-go/breez_sdk_spark"
)

// wallet is the part of *breez_sdk_spark.BreezSdk a session drives.
type wallet interface {
  GetInfo(request breez_sdk_spark.GetInfoRequest) (breez_sdk_spark.GetInfoResponse, error)
  Parse(input string) (breez_sdk_spark.InputType, error)
  PrepareSendPayment(request breez_sdk_spark.PrepareSendPaymentRequest) (breez_sdk_spark.PrepareSendPaymentResponse, error)
  SendPayment(request breez_sdk_spark.SendPaymentRequest) (breez_sdk_spark.SendPaymentResponse, error)
  GetPayment(request breez_sdk_spark.GetPaymentRequest) (breez_sdk_spark.GetPaymentResponse, error)
  ListPayments(request breez_sdk_spark.ListPaymentsRequest) (breez_sdk_spark.ListPaymentsResponse, error)
  ReceivePayment(request breez_sdk_spark.ReceivePaymentRequest) (breez_sdk_spark.ReceivePaymentResponse, error)
  ListUnclaimedDeposits(request breez_sdk_spark.ListUnclaimedDepositsRequest) (breez_sdk_spark.ListUnclaimedDepositsResponse, error)
  ClaimDeposit(request breez_sdk_spark.ClaimDepositRequest) (breez_sdk_spark.ClaimDepositResponse, error)
  RefundDeposit(request breez_sdk_spark.RefundDepositRequest) (breez_sdk_spark.RefundDepositResponse, error)
  Disconnect() error
}

type buildFunc func(cfg breez_sdk_spark.Config, seed breez_sdk_spark.Seed, storageDir string) (wallet, error)

// Connector opens wallets with the Breez Spark SDK running in-process.
type Connector struct {
  cfg config.LightningConfig
  logger *log.Logger
  build buildFunc
}

func New(cfg config.LightningConfig, logger *log.Logger) *Connector {
  return &Connector{cfg: cfg, logger: logger, build: buildWallet}
}

func buildWallet(cfg breez_sdk_spark.Config, seed breez_sdk_spark.Seed, storageDir string) (wallet, error) {
  builder := breez_sdk_spark.NewSdkBuilder(cfg, seed)
  builder.WithDefaultStorage(storageDir)
  sdk, err := builder.Build()
  if err != nil {
    return nil, err
  }
  return sdk, nil
}

// Init prepares the SDK storage directory.
func (c *Connector) Init(ctx context.Context) error {
  if c.cfg.StorageDir == "" {
    return nil
  }
  if err := os.MkdirAll(c.cfg.StorageDir, 0o700); err != nil {
    return fmt.Errorf("breez: storage dir: %w", err)
  }
  return nil
}

func (c *Connector) Connect(ctx context.Context, req lightning.ConnectRequest) (lightning.SDK, error) {
  if req.Mnemonic == "" {
    return nil, lightning.ErrMissingMnemonic
  }

  sdkCfg := breez_sdk_spark.DefaultConfig(network(req.Network))
  if req.APIKey != "" {
    apiKey := req.APIKey
    sdkCfg.ApiKey = &apiKey
  }
  var seed breez_sdk_spark.Seed = breez_sdk_spark.SeedMnemonic{Mnemonic: req.Mnemonic}

  type result struct {
    w wallet
    err error
  }
  done := make(chan result, 1)
  go func() {
    w, err := c.build(sdkCfg, seed, req.StorageDir)
    done <- result{w: w, err: err}
  }()

  select {
  case <-ctx.Done():
    // The build cannot be interrupted; release the wallet once it lands.
    go func() {
      if res := <-done; res.err == nil && res.w != nil {
        _ = res.w.Disconnect()
      }
    }()
    return nil, ctx.Err()
  case res := <-done:
    if res.err != nil {
      return nil, fmt.Errorf("breez: connect: %w", res.err)
    }
    if res.w == nil {
      return nil, errors.New("breez: sdk builder returned no wallet")
    }
    return &session{w: res.w}, nil
  }
}

func network(name string) breez_sdk_spark.Network {
  if name == lightning.NetworkRegtest {
    return breez_sdk_spark.NetworkRegtest
  }
  return breez_sdk_spark.NetworkMainnet
}

// await runs a blocking SDK call and gives up waiting when ctx ends.
func await[T any](ctx context.Context, call func() (T, error)) (T, error) {
  var zero T
  if err := ctx.Err(); err != nil {
    return zero, err
  }

  type result struct {
    v T
    err error
  }
  done := make(chan result, 1)
  go func() {
    v, err := call()
    done <- result{v: v, err: err}
  }()

  select {
  case <-ctx.Done():
    return zero, ctx.Err()
  case res := <-done:
    return res.v, res.err
  }
}
