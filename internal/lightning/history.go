package lightning

import (
  "context"
  "strings"

  "dokwallet-manager/internal/units"
)

const (
  statusSuccess = "SUCCESS"
  statusPending = "Pending"
  linkLength = 13
)

type Transaction struct {
  ID string `json:"id"`
  Amount string `json:"amount"`
  AmountSats int64 `json:"amount_sats"`
  Link string `json:"link"`
  Status string `json:"status"`
  Date int64 `json:"date"`
  From string `json:"from"`
  To string `json:"to"`
  TotalCourse string `json:"totalCourse"`
  PaymentType string `json:"paymentType"`
}

// ListTransactions returns the most recent payments. The wallet's own spark
// address stands in for the local side of each payment: it is the sender of
// sends and the recipient of receives.
func (s *Service) ListTransactions(ctx context.Context, mnemonic string) ([]Transaction, error) {
  sdk, err := s.registry.Connect(ctx, mnemonic)
  if err != nil {
    return []Transaction{}, err
  }

  payments, err := sdk.ListPayments(ctx, ListPaymentsRequest{Limit: transactionsPageSize})
  if err != nil {
    return []Transaction{}, err
  }
  if len(payments) == 0 {
    return []Transaction{}, nil
  }

  own, err := sdk.ReceivePayment(ctx, ReceiveRequest{Kind: ReceiveSparkAddress})
  if err != nil {
    return []Transaction{}, err
  }

  items := make([]Transaction, 0, len(payments))
  for _, p := range payments {
    items = append(items, normalizePayment(p, own.PaymentRequest))
  }
  return items, nil
}

func normalizePayment(p Payment, ownAddress string) Transaction {
  tx := Transaction{
    ID: p.ID,
    Amount: units.SatsToBTCString(p.AmountSats),
    AmountSats: p.AmountSats,
    Link: paymentLink(p),
    Status: statusPending,
    Date: p.Timestamp * 1000,
    TotalCourse: "0$",
    PaymentType: string(p.PaymentType),
  }
  if strings.EqualFold(string(p.Status), string(PaymentCompleted)) {
    tx.Status = statusSuccess
  }
  if p.PaymentType == PaymentSend {
    tx.From = ownAddress
  } else {
    tx.To = ownAddress
  }
  return tx
}

func paymentLink(p Payment) string {
  hash := firstNonEmpty(p.Details.TxID, p.Details.PaymentHash, p.ID)
  if hash == "" {
    hash = "N/A"
  }
  if len(hash) > linkLength {
    hash = hash[:linkLength]
  }
  return hash + "..."
}

func firstNonEmpty(values ...string) string {
  for _, v := range values {
    if strings.TrimSpace(v) != "" {
      return v
    }
  }
  return ""
}

type UnclaimedDeposit struct {
  Txid string `json:"txid"`
  Vout uint32 `json:"vout"`
  AmountSats int64 `json:"amount_sats"`
  RequiredFeeSats int64 `json:"required_fee_sats"`
  Amount string `json:"amount"`
  Fees string `json:"fees"`
  ReceivedAmount string `json:"receivedAmount"`
  ClaimError string `json:"claim_error,omitempty"`
}

// ReceivedSats is what the wallet is credited after paying the claim fee.
func (d UnclaimedDeposit) ReceivedSats() int64 {
  received := d.AmountSats - d.RequiredFeeSats
  if received < 0 {
    return 0
  }
  return received
}

func (s *Service) ListUnclaimedDeposits(ctx context.Context, mnemonic string) ([]UnclaimedDeposit, error) {
  sdk, err := s.registry.Connect(ctx, mnemonic)
  if err != nil {
    return []UnclaimedDeposit{}, err
  }
  deposits, err := sdk.ListUnclaimedDeposits(ctx)
  if err != nil {
    return []UnclaimedDeposit{}, err
  }

  items := make([]UnclaimedDeposit, 0, len(deposits))
  for _, d := range deposits {
    items = append(items, normalizeDeposit(d))
  }
  return items, nil
}

func normalizeDeposit(d Deposit) UnclaimedDeposit {
  item := UnclaimedDeposit{
    Txid: d.Txid,
    Vout: d.Vout,
    AmountSats: d.AmountSats,
  }
  if d.ClaimError != nil {
    item.RequiredFeeSats = d.ClaimError.RequiredFeeSats
    item.ClaimError = firstNonEmpty(d.ClaimError.Message, d.ClaimError.Kind)
  }
  item.Amount = units.SatsToBTCString(item.AmountSats)
  item.Fees = units.SatsToBTCString(item.RequiredFeeSats)
  item.ReceivedAmount = units.SatsToBTCString(item.ReceivedSats())
  return item
}
