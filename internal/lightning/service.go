package lightning

import (
  "context"
  "errors"
  "fmt"
  "log"
  "strings"
  "sync"
  "time"

  "dokwallet-manager/internal/units"

  "github.com/btcsuite/btcd/btcutil"
  "github.com/btcsuite/btcd/chaincfg"
  "github.com/google/uuid"
  "github.com/lightningnetwork/lnd/ticker"
)

const (
  defaultIntentTTL = 10 * time.Minute
  defaultConfirmInterval = 3 * time.Second
  defaultConfirmRetries = 30
  transactionsPageSize = 20
  invoiceDescription = "Dokwallet Invoice"
)

// refundFeeFast is the fixed fee, in sats, paid by every refund.
const refundFeeFast int64 = 2000

var (
  ErrMissingPaymentRequest = errors.New("payment request required")
  ErrInvalidAmount = units.ErrInvalidAmount
  ErrNoPreparedPayment = errors.New("no prepared payment")
  ErrIntentMismatch = errors.New("prepared payment belongs to another wallet")
  ErrMissingPaymentID = errors.New("payment id required")
  ErrPaymentFailed = errors.New("payment failed")
  ErrInvalidDeposit = errors.New("deposit txid required")
  ErrInvalidRefundAddress = errors.New("invalid refund destination address")
)

// Journal records write-path outcomes. It is optional.
type Journal interface {
  Record(ctx context.Context, activity Activity) error
}

type Activity struct {
  Kind string `json:"kind"`
  Wallet string `json:"wallet"`
  Reference string `json:"reference,omitempty"`
  AmountSats int64 `json:"amount_sats"`
  FeeSats int64 `json:"fee_sats"`
  Status string `json:"status"`
  Detail string `json:"detail,omitempty"`
  OccurredAt time.Time `json:"occurred_at"`
}

type ServiceOptions struct {
  IntentTTL time.Duration
  ConfirmInterval time.Duration
  ConfirmRetries int
  Journal Journal
  // NewTicker overrides the confirmation poll timer.
  NewTicker func(time.Duration) ticker.Ticker
}

type Service struct {
  registry *Registry
  params *chaincfg.Params
  opts ServiceOptions
  logger *log.Logger
  now func() time.Time

  intentMu sync.Mutex
  intents map[string]*PaymentIntent
}

func NewService(registry *Registry, opts ServiceOptions, logger *log.Logger) *Service {
  if opts.IntentTTL <= 0 {
    opts.IntentTTL = defaultIntentTTL
  }
  if opts.ConfirmInterval <= 0 {
    opts.ConfirmInterval = defaultConfirmInterval
  }
  if opts.ConfirmRetries <= 0 {
    opts.ConfirmRetries = defaultConfirmRetries
  }
  if opts.NewTicker == nil {
    opts.NewTicker = func(interval time.Duration) ticker.Ticker {
      return ticker.New(interval)
    }
  }
  return &Service{
    registry: registry,
    params: chainParams(registry.Network()),
    opts: opts,
    logger: logger,
    now: time.Now,
    intents: map[string]*PaymentIntent{},
  }
}

func chainParams(network string) *chaincfg.Params {
  if network == NetworkRegtest {
    return &chaincfg.RegressionNetParams
  }
  return &chaincfg.MainNetParams
}

// PaymentFee is the fee quote of a prepared payment. Known is false when
// the destination kind carries no fee information.
type PaymentFee struct {
  Known bool `json:"known"`
  LightningFeeSats int64 `json:"lightning_fee_sats"`
  LightningFee string `json:"lightning_fee"`
  SparkFee string `json:"spark_fee"`
}

// PaymentIntent is a prepared outgoing payment. It is bound to the wallet
// that prepared it and is consumed by SendPayment.
type PaymentIntent struct {
  ID string
  PaymentRequest string
  AmountSats int64
  Method PaymentMethodKind
  Fee PaymentFee
  CreatedAt time.Time
  ExpiresAt time.Time

  walletKey string
  prepared PrepareSendResponse
}

func (s *Service) GetBalance(ctx context.Context, mnemonic string) (int64, error) {
  sdk, err := s.registry.Connect(ctx, mnemonic)
  if err != nil {
    return 0, err
  }
  info, err := sdk.GetInfo(ctx)
  if err != nil {
    return 0, err
  }
  return info.BalanceSats, nil
}

// PrepareSendPayment quotes a payment to paymentRequest. amount is a BTC
// display amount; an empty amount defers to the amount embedded in the
// request.
func (s *Service) PrepareSendPayment(ctx context.Context, mnemonic, paymentRequest, amount string) (*PaymentIntent, error) {
  paymentRequest = strings.TrimSpace(paymentRequest)
  if paymentRequest == "" {
    return nil, ErrMissingPaymentRequest
  }
  var amountSats int64
  if strings.TrimSpace(amount) != "" {
    parsed, err := units.BTCToSats(amount)
    if err != nil {
      return nil, err
    }
    amountSats = parsed
  }

  sdk, err := s.registry.Connect(ctx, mnemonic)
  if err != nil {
    return nil, err
  }

  resp, err := sdk.PrepareSendPayment(ctx, PrepareSendRequest{
    PaymentRequest: paymentRequest,
    AmountSats: amountSats,
  })
  if err != nil {
    s.logger.Printf("lightning: prepare payment failed: %v", err)
    return nil, err
  }

  now := s.now().UTC()
  intent := &PaymentIntent{
    ID: uuid.NewString(),
    PaymentRequest: paymentRequest,
    AmountSats: amountSats,
    Method: resp.Method.Kind,
    Fee: feeFromMethod(resp.Method),
    CreatedAt: now,
    ExpiresAt: now.Add(s.opts.IntentTTL),
    walletKey: sessionKey(mnemonic),
    prepared: resp,
  }

  s.intentMu.Lock()
  s.pruneIntentsLocked(now)
  s.intents[intent.ID] = intent
  s.intentMu.Unlock()

  return intent, nil
}

func feeFromMethod(method SendPaymentMethod) PaymentFee {
  var sats int64
  switch method.Kind {
  case MethodBitcoinAddress:
    if method.FeeQuote == nil {
      return PaymentFee{}
    }
    sats = method.FeeQuote.SpeedFast.UserFeeSat
  case MethodSparkAddress:
    sats = method.FeeSats
  case MethodBolt11Invoice:
    sats = method.LightningFeeSats
  default:
    return PaymentFee{}
  }
  return PaymentFee{
    Known: true,
    LightningFeeSats: sats,
    LightningFee: units.SatsToBTCString(sats),
  }
}

// SendPayment executes a prepared intent. The intent survives a failed
// connect and is consumed right before the SDK send so a retry can never
// replay it.
func (s *Service) SendPayment(ctx context.Context, mnemonic, intentID string) (string, error) {
  if _, err := s.claimIntent(mnemonic, intentID, false); err != nil {
    return "", err
  }

  sdk, err := s.registry.Connect(ctx, mnemonic)
  if err != nil {
    return "", err
  }

  intent, err := s.claimIntent(mnemonic, intentID, true)
  if err != nil {
    return "", err
  }

  payment, err := sdk.SendPayment(ctx, SendPaymentRequest{Prepared: intent.prepared})
  if err != nil {
    s.logger.Printf("lightning: send payment failed: %v", err)
    s.record(ctx, Activity{
      Kind: "send",
      Wallet: intent.walletKey,
      AmountSats: intent.AmountSats,
      FeeSats: intent.Fee.LightningFeeSats,
      Status: "error",
      Detail: err.Error(),
    })
    return "", err
  }

  s.record(ctx, Activity{
    Kind: "send",
    Wallet: intent.walletKey,
    Reference: payment.ID,
    AmountSats: intent.AmountSats,
    FeeSats: intent.Fee.LightningFeeSats,
    Status: string(payment.Status),
    Detail: string(intent.Method),
  })
  return payment.ID, nil
}

func (s *Service) claimIntent(mnemonic, intentID string, consume bool) (*PaymentIntent, error) {
  s.intentMu.Lock()
  defer s.intentMu.Unlock()

  intent, ok := s.intents[intentID]
  if !ok {
    return nil, ErrNoPreparedPayment
  }
  if !s.now().Before(intent.ExpiresAt) {
    delete(s.intents, intentID)
    return nil, ErrNoPreparedPayment
  }
  if intent.walletKey != sessionKey(mnemonic) {
    return nil, ErrIntentMismatch
  }
  if consume {
    delete(s.intents, intentID)
  }
  return intent, nil
}

func (s *Service) pruneIntentsLocked(now time.Time) {
  for id, intent := range s.intents {
    if !now.Before(intent.ExpiresAt) {
      delete(s.intents, id)
    }
  }
}

func (s *Service) ValidateDestination(ctx context.Context, address, mnemonic string) bool {
  if strings.TrimSpace(address) == "" {
    return false
  }
  sdk, err := s.registry.Connect(ctx, mnemonic)
  if err != nil {
    s.logger.Printf("lightning: validate destination: %v", err)
    return false
  }
  kind, err := sdk.Parse(ctx, strings.TrimSpace(address))
  if err != nil {
    return false
  }
  switch kind {
  case MethodBitcoinAddress, MethodSparkAddress, MethodBolt11Invoice:
    return true
  }
  return false
}

type ReceiveAddress struct {
  Address string `json:"address"`
  ReceiveFeeSats int64 `json:"receive_fee_sats"`
}

func (s *Service) ReceiveViaInvoice(ctx context.Context, mnemonic string) (ReceiveAddress, error) {
  return s.receive(ctx, mnemonic, ReceiveRequest{Kind: ReceiveBolt11Invoice, Description: invoiceDescription})
}

func (s *Service) ReceiveViaSparkAddress(ctx context.Context, mnemonic string) (ReceiveAddress, error) {
  return s.receive(ctx, mnemonic, ReceiveRequest{Kind: ReceiveSparkAddress})
}

func (s *Service) ReceiveViaOnchainAddress(ctx context.Context, mnemonic string) (ReceiveAddress, error) {
  return s.receive(ctx, mnemonic, ReceiveRequest{Kind: ReceiveBitcoinAddress})
}

func (s *Service) receive(ctx context.Context, mnemonic string, req ReceiveRequest) (ReceiveAddress, error) {
  sdk, err := s.registry.Connect(ctx, mnemonic)
  if err != nil {
    return ReceiveAddress{}, err
  }
  resp, err := sdk.ReceivePayment(ctx, req)
  if err != nil {
    s.logger.Printf("lightning: receive via %s failed: %v", req.Kind, err)
    return ReceiveAddress{}, err
  }
  return ReceiveAddress{Address: resp.PaymentRequest, ReceiveFeeSats: resp.FeeSats}, nil
}

type ClaimRequest struct {
  Txid string
  Vout uint32
  MaxFeeSats int64
}

type RefundRequest struct {
  Txid string
  Vout uint32
  DestinationAddress string
}

func (s *Service) ClaimDeposit(ctx context.Context, mnemonic string, req ClaimRequest) error {
  if strings.TrimSpace(req.Txid) == "" {
    return ErrInvalidDeposit
  }
  sdk, err := s.registry.Connect(ctx, mnemonic)
  if err != nil {
    return err
  }

  err = sdk.ClaimDeposit(ctx, ClaimDepositRequest{
    Txid: req.Txid,
    Vout: req.Vout,
    MaxFee: Fee{Kind: FeeFixed, AmountSats: req.MaxFeeSats},
  })
  s.recordDeposit(ctx, "claim", mnemonic, req.Txid, req.Vout, req.MaxFeeSats, err)
  if err != nil {
    s.logger.Printf("lightning: claim deposit %s:%d failed: %v", req.Txid, req.Vout, err)
    return err
  }
  return nil
}

func (s *Service) RefundDeposit(ctx context.Context, mnemonic string, req RefundRequest) error {
  if strings.TrimSpace(req.Txid) == "" {
    return ErrInvalidDeposit
  }
  destination := strings.TrimSpace(req.DestinationAddress)
  if !s.validBitcoinAddress(destination) {
    return ErrInvalidRefundAddress
  }
  sdk, err := s.registry.Connect(ctx, mnemonic)
  if err != nil {
    return err
  }

  _, err = sdk.RefundDeposit(ctx, RefundDepositRequest{
    Txid: req.Txid,
    Vout: req.Vout,
    DestinationAddress: destination,
    Fee: Fee{Kind: FeeFixed, AmountSats: refundFeeFast},
  })
  s.recordDeposit(ctx, "refund", mnemonic, req.Txid, req.Vout, refundFeeFast, err)
  if err != nil {
    s.logger.Printf("lightning: refund deposit %s:%d failed: %v", req.Txid, req.Vout, err)
    return err
  }
  return nil
}

func (s *Service) validBitcoinAddress(address string) bool {
  if address == "" {
    return false
  }
  decoded, err := btcutil.DecodeAddress(address, s.params)
  if err != nil {
    return false
  }
  return decoded.IsForNet(s.params)
}

func (s *Service) recordDeposit(ctx context.Context, kind, mnemonic, txid string, vout uint32, feeSats int64, err error) {
  activity := Activity{
    Kind: kind,
    Wallet: sessionKey(mnemonic),
    Reference: fmt.Sprintf("%s:%d", txid, vout),
    FeeSats: feeSats,
    Status: "ok",
  }
  if err != nil {
    activity.Status = "error"
    activity.Detail = err.Error()
  }
  s.record(ctx, activity)
}

func (s *Service) record(ctx context.Context, activity Activity) {
  if s.opts.Journal == nil {
    return
  }
  if activity.OccurredAt.IsZero() {
    activity.OccurredAt = s.now().UTC()
  }
  if err := s.opts.Journal.Record(ctx, activity); err != nil {
    s.logger.Printf("lightning: journal %s failed: %v", activity.Kind, err)
  }
}
