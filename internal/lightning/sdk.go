package lightning

import "context"

const (
  NetworkMainnet = "mainnet"
  NetworkRegtest = "regtest"
)

type PaymentMethodKind string

const (
  MethodBitcoinAddress PaymentMethodKind = "bitcoinAddress"
  MethodSparkAddress PaymentMethodKind = "sparkAddress"
  MethodBolt11Invoice PaymentMethodKind = "bolt11Invoice"
)

type PaymentStatus string

const (
  PaymentCompleted PaymentStatus = "completed"
  PaymentPending PaymentStatus = "pending"
  PaymentFailed PaymentStatus = "failed"
)

type PaymentType string

const (
  PaymentSend PaymentType = "send"
  PaymentReceive PaymentType = "receive"
)

type FeeKind string

const (
  FeeFixed FeeKind = "fixed"
  FeeRate FeeKind = "rate"
)

// ConnectRequest carries everything the SDK needs to open a wallet.
type ConnectRequest struct {
  Mnemonic string
  Network string
  APIKey string
  StorageDir string
}

// Connector opens SDK sessions. Init prepares the SDK runtime and may be
// called more than once.
type Connector interface {
  Init(ctx context.Context) error
  Connect(ctx context.Context, req ConnectRequest) (SDK, error)
}

// SDK is the per-wallet Lightning SDK handle. Amounts are satoshis.
type SDK interface {
  GetInfo(ctx context.Context) (Info, error)
  Parse(ctx context.Context, input string) (PaymentMethodKind, error)
  PrepareSendPayment(ctx context.Context, req PrepareSendRequest) (PrepareSendResponse, error)
  SendPayment(ctx context.Context, req SendPaymentRequest) (Payment, error)
  GetPayment(ctx context.Context, paymentID string) (Payment, error)
  ListPayments(ctx context.Context, req ListPaymentsRequest) ([]Payment, error)
  ReceivePayment(ctx context.Context, req ReceiveRequest) (ReceiveResponse, error)
  ListUnclaimedDeposits(ctx context.Context) ([]Deposit, error)
  ClaimDeposit(ctx context.Context, req ClaimDepositRequest) error
  RefundDeposit(ctx context.Context, req RefundDepositRequest) (string, error)
}

type Info struct {
  BalanceSats int64
}

type PrepareSendRequest struct {
  PaymentRequest string
  AmountSats int64
}

type SpeedFee struct {
  UserFeeSat int64
  L1BroadcastFeeSat int64
}

type OnchainFeeQuote struct {
  SpeedFast SpeedFee
  SpeedMedium SpeedFee
  SpeedSlow SpeedFee
}

type SendPaymentMethod struct {
  Kind PaymentMethodKind
  FeeQuote *OnchainFeeQuote
  FeeSats int64
  LightningFeeSats int64
}

type PrepareSendResponse struct {
  PaymentRequest string
  AmountSats int64
  Method SendPaymentMethod
  // Handle is the SDK's own prepared payment, handed back untouched on send.
  Handle any
}

type SendPaymentRequest struct {
  Prepared PrepareSendResponse
}

type PaymentDetails struct {
  TxID string
  PaymentHash string
  Preimage string
  DestinationPubkey string
}

type Payment struct {
  ID string
  Status PaymentStatus
  PaymentType PaymentType
  AmountSats int64
  FeesSats int64
  Timestamp int64
  Details PaymentDetails
}

type ListPaymentsRequest struct {
  Offset int
  Limit int
}

type ReceiveMethodKind string

const (
  ReceiveBolt11Invoice ReceiveMethodKind = "bolt11Invoice"
  ReceiveSparkAddress ReceiveMethodKind = "sparkAddress"
  ReceiveBitcoinAddress ReceiveMethodKind = "bitcoinAddress"
)

type ReceiveRequest struct {
  Kind ReceiveMethodKind
  Description string
}

type ReceiveResponse struct {
  PaymentRequest string
  FeeSats int64
}

type DepositClaimError struct {
  Kind string
  Message string
  RequiredFeeSats int64
}

type Deposit struct {
  Txid string
  Vout uint32
  AmountSats int64
  ClaimError *DepositClaimError
}

type Fee struct {
  Kind FeeKind
  AmountSats int64
}

type ClaimDepositRequest struct {
  Txid string
  Vout uint32
  MaxFee Fee
}

type RefundDepositRequest struct {
  Txid string
  Vout uint32
  DestinationAddress string
  Fee Fee
}
