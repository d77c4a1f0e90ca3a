package sparkclient

import (
  "encoding/json"
  "fmt"
  "strings"

  "dokwallet-manager/internal/lightning"
)

type wireSpeedFee struct {
  UserFeeSat int64 `json:"userFeeSat"`
  L1BroadcastFeeSat int64 `json:"l1BroadcastFeeSat"`
}

type wireFeeQuote struct {
  SpeedFast wireSpeedFee `json:"speedFast"`
  SpeedMedium wireSpeedFee `json:"speedMedium"`
  SpeedSlow wireSpeedFee `json:"speedSlow"`
}

type wireSendMethod struct {
  Type string `json:"type"`
  FeeQuote *wireFeeQuote `json:"feeQuote"`
  Fee int64 `json:"fee"`
  LightningFeeSats int64 `json:"lightningFeeSats"`
}

type wirePrepareResponse struct {
  PaymentRequest string `json:"paymentRequest"`
  Amount int64 `json:"amount"`
  PaymentMethod wireSendMethod `json:"paymentMethod"`
}

func decodePrepareResponse(reply map[string]any) (lightning.PrepareSendResponse, error) {
  raw, err := json.Marshal(reply)
  if err != nil {
    return lightning.PrepareSendResponse{}, fmt.Errorf("encode prepared payment: %w", err)
  }
  var wire wirePrepareResponse
  if err := json.Unmarshal(raw, &wire); err != nil {
    return lightning.PrepareSendResponse{}, fmt.Errorf("decode prepared payment: %w", err)
  }

  method := lightning.SendPaymentMethod{
    Kind: lightning.PaymentMethodKind(wire.PaymentMethod.Type),
    FeeSats: wire.PaymentMethod.Fee,
    LightningFeeSats: wire.PaymentMethod.LightningFeeSats,
  }
  if q := wire.PaymentMethod.FeeQuote; q != nil {
    method.FeeQuote = &lightning.OnchainFeeQuote{
      SpeedFast: lightning.SpeedFee(q.SpeedFast),
      SpeedMedium: lightning.SpeedFee(q.SpeedMedium),
      SpeedSlow: lightning.SpeedFee(q.SpeedSlow),
    }
  }
  return lightning.PrepareSendResponse{
    PaymentRequest: wire.PaymentRequest,
    AmountSats: wire.Amount,
    Method: method,
    Handle: reply,
  }, nil
}

type wirePaymentDetails struct {
  TxID string `json:"txId"`
  PaymentHash string `json:"paymentHash"`
  Preimage string `json:"preimage"`
  DestinationPubkey string `json:"destinationPubkey"`
}

type wirePayment struct {
  ID string `json:"id"`
  Status string `json:"status"`
  PaymentType string `json:"paymentType"`
  Amount int64 `json:"amount"`
  Fees int64 `json:"fees"`
  Timestamp int64 `json:"timestamp"`
  Details *wirePaymentDetails `json:"details"`
}

func (p wirePayment) toPayment() lightning.Payment {
  payment := lightning.Payment{
    ID: p.ID,
    Status: paymentStatus(p.Status),
    PaymentType: lightning.PaymentType(strings.ToLower(p.PaymentType)),
    AmountSats: p.Amount,
    FeesSats: p.Fees,
    Timestamp: p.Timestamp,
  }
  if p.Details != nil {
    payment.Details = lightning.PaymentDetails(*p.Details)
  }
  return payment
}

func paymentStatus(raw string) lightning.PaymentStatus {
  switch strings.ToLower(strings.TrimSpace(raw)) {
  case "completed", "complete", "succeeded":
    return lightning.PaymentCompleted
  case "failed":
    return lightning.PaymentFailed
  }
  return lightning.PaymentPending
}

type wireClaimError struct {
  Type string `json:"type"`
  Message string `json:"message"`
  RequiredFeeSats int64 `json:"requiredFeeSats"`
}

type wireDeposit struct {
  Txid string `json:"txid"`
  Vout uint32 `json:"vout"`
  AmountSats int64 `json:"amountSats"`
  ClaimError *wireClaimError `json:"claimError"`
}

func (d wireDeposit) toDeposit() lightning.Deposit {
  deposit := lightning.Deposit{
    Txid: d.Txid,
    Vout: d.Vout,
    AmountSats: d.AmountSats,
  }
  if d.ClaimError != nil {
    deposit.ClaimError = &lightning.DepositClaimError{
      Kind: d.ClaimError.Type,
      Message: d.ClaimError.Message,
      RequiredFeeSats: d.ClaimError.RequiredFeeSats,
    }
  }
  return deposit
}

func feeParam(fee lightning.Fee) map[string]any {
  return map[string]any{
    "type": string(fee.Kind),
    "amount": fee.AmountSats,
  }
}
