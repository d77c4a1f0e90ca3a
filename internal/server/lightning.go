package server

import (
  "context"
  "errors"
  "net/http"
  "strings"
  "time"

  "dokwallet-manager/internal/lightning"
  "dokwallet-manager/internal/units"
)

const (
  maxConfirmInterval = time.Minute
  maxConfirmRetries = 100
)

type walletRequest struct {
  Mnemonic string `json:"mnemonic"`
}

type prepareRequest struct {
  Mnemonic string `json:"mnemonic"`
  PaymentRequest string `json:"payment_request"`
  Amount string `json:"amount"`
}

type prepareResponse struct {
  IntentID string `json:"intent_id"`
  PaymentMethod string `json:"payment_method"`
  Fee string `json:"fee"`
  FeeKnown bool `json:"fee_known"`
  LightningFee string `json:"lightning_fee"`
  LightningFeeSats int64 `json:"lightning_fee_sats"`
  SparkFee string `json:"spark_fee"`
  EstimateGas int `json:"estimateGas"`
  FeesOptions []any `json:"feesOptions"`
  ExpiresAt time.Time `json:"expires_at"`
}

type sendRequest struct {
  Mnemonic string `json:"mnemonic"`
  IntentID string `json:"intent_id"`
}

type validateRequest struct {
  Mnemonic string `json:"mnemonic"`
  Address string `json:"address"`
}

type receiveRequest struct {
  Mnemonic string `json:"mnemonic"`
  Method string `json:"method"`
}

type confirmRequest struct {
  Mnemonic string `json:"mnemonic"`
  PaymentID string `json:"payment_id"`
  IntervalMs int `json:"interval_ms"`
  MaxRetries int `json:"max_retries"`
}

// claimRequest takes fees in the display units the deposits list returns.
type claimRequest struct {
  Mnemonic string `json:"mnemonic"`
  Txid string `json:"txid"`
  Vout uint32 `json:"vout"`
  Fees string `json:"fees"`
}

type refundRequest struct {
  Mnemonic string `json:"mnemonic"`
  Txid string `json:"txid"`
  Vout uint32 `json:"vout"`
  DestinationAddress string `json:"destination_address"`
}

type activityRequest struct {
  Mnemonic string `json:"mnemonic"`
  Limit int `json:"limit"`
}

func (s *Server) handleLightningBalance(w http.ResponseWriter, r *http.Request) {
  var req walletRequest
  if err := readJSON(r, &req); err != nil {
    writeError(w, http.StatusBadRequest, "invalid json")
    return
  }
  balance, err := s.lightning.GetBalance(r.Context(), req.Mnemonic)
  if err != nil {
    s.writeLightningError(w, err)
    return
  }
  writeJSON(w, http.StatusOK, map[string]any{
    "balance_sats": balance,
    "balance": units.SatsToBTCString(balance),
  })
}

func (s *Server) handleLightningPrepare(w http.ResponseWriter, r *http.Request) {
  var req prepareRequest
  if err := readJSON(r, &req); err != nil {
    writeError(w, http.StatusBadRequest, "invalid json")
    return
  }
  intent, err := s.lightning.PrepareSendPayment(r.Context(), req.Mnemonic, req.PaymentRequest, req.Amount)
  if err != nil {
    s.writeLightningError(w, err)
    return
  }
  writeJSON(w, http.StatusOK, prepareResponse{
    IntentID: intent.ID,
    PaymentMethod: string(intent.Method),
    Fee: intent.Fee.LightningFee,
    FeeKnown: intent.Fee.Known,
    LightningFee: intent.Fee.LightningFee,
    LightningFeeSats: intent.Fee.LightningFeeSats,
    SparkFee: intent.Fee.SparkFee,
    EstimateGas: 0,
    FeesOptions: []any{},
    ExpiresAt: intent.ExpiresAt,
  })
}

func (s *Server) handleLightningSend(w http.ResponseWriter, r *http.Request) {
  var req sendRequest
  if err := readJSON(r, &req); err != nil {
    writeError(w, http.StatusBadRequest, "invalid json")
    return
  }
  paymentID, err := s.lightning.SendPayment(r.Context(), req.Mnemonic, req.IntentID)
  if err != nil {
    s.writeLightningError(w, err)
    return
  }
  writeJSON(w, http.StatusOK, map[string]string{"payment_id": paymentID})
}

func (s *Server) handleLightningValidate(w http.ResponseWriter, r *http.Request) {
  var req validateRequest
  if err := readJSON(r, &req); err != nil {
    writeError(w, http.StatusBadRequest, "invalid json")
    return
  }
  valid := s.lightning.ValidateDestination(r.Context(), req.Address, req.Mnemonic)
  writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

func (s *Server) handleLightningReceive(w http.ResponseWriter, r *http.Request) {
  var req receiveRequest
  if err := readJSON(r, &req); err != nil {
    writeError(w, http.StatusBadRequest, "invalid json")
    return
  }

  var (
    addr lightning.ReceiveAddress
    err error
  )
  switch req.Method {
  case "", "bolt11":
    addr, err = s.lightning.ReceiveViaInvoice(r.Context(), req.Mnemonic)
  case "spark":
    addr, err = s.lightning.ReceiveViaSparkAddress(r.Context(), req.Mnemonic)
  case "onchain":
    addr, err = s.lightning.ReceiveViaOnchainAddress(r.Context(), req.Mnemonic)
  default:
    writeError(w, http.StatusBadRequest, "method must be bolt11, spark or onchain")
    return
  }
  if err != nil {
    s.writeLightningError(w, err)
    return
  }
  writeJSON(w, http.StatusOK, addr)
}

func (s *Server) handleLightningConfirm(w http.ResponseWriter, r *http.Request) {
  var req confirmRequest
  if err := readJSON(r, &req); err != nil {
    writeError(w, http.StatusBadRequest, "invalid json")
    return
  }
  interval := time.Duration(req.IntervalMs) * time.Millisecond
  if interval > maxConfirmInterval {
    interval = maxConfirmInterval
  }
  retries := req.MaxRetries
  if retries > maxConfirmRetries {
    retries = maxConfirmRetries
  }

  conf, err := s.lightning.WaitForConfirmation(r.Context(), req.Mnemonic, lightning.WaitRequest{
    PaymentID: req.PaymentID,
    Interval: interval,
    MaxRetries: retries,
  })
  if errors.Is(err, lightning.ErrPaymentFailed) {
    writeJSON(w, http.StatusOK, map[string]string{"status": "failed"})
    return
  }
  if err != nil {
    s.writeLightningError(w, err)
    return
  }
  writeJSON(w, http.StatusOK, conf)
}

func (s *Server) handleLightningTransactions(w http.ResponseWriter, r *http.Request) {
  var req walletRequest
  if err := readJSON(r, &req); err != nil {
    writeError(w, http.StatusBadRequest, "invalid json")
    return
  }
  items, err := s.lightning.ListTransactions(r.Context(), req.Mnemonic)
  s.writeList(w, "transactions", items, err)
}

func (s *Server) handleLightningDeposits(w http.ResponseWriter, r *http.Request) {
  var req walletRequest
  if err := readJSON(r, &req); err != nil {
    writeError(w, http.StatusBadRequest, "invalid json")
    return
  }
  items, err := s.lightning.ListUnclaimedDeposits(r.Context(), req.Mnemonic)
  s.writeList(w, "deposits", items, err)
}

// writeList answers read paths. SDK failures still yield 200 with an empty
// list and a warning; only invalid input is rejected.
func (s *Server) writeList(w http.ResponseWriter, what string, items any, err error) {
  if err == nil {
    writeJSON(w, http.StatusOK, map[string]any{"items": items})
    return
  }
  if errors.Is(err, lightning.ErrMissingMnemonic) {
    writeError(w, http.StatusBadRequest, err.Error())
    return
  }
  s.logger.Printf("lightning: list %s failed: %v", what, err)
  writeJSON(w, http.StatusOK, map[string]any{
    "items": items,
    "warning": "lightning " + what + " unavailable: " + err.Error(),
  })
}

func (s *Server) handleLightningClaim(w http.ResponseWriter, r *http.Request) {
  var req claimRequest
  if err := readJSON(r, &req); err != nil {
    writeError(w, http.StatusBadRequest, "invalid json")
    return
  }
  var feeSats int64
  if strings.TrimSpace(req.Fees) != "" {
    parsed, err := units.BTCToSats(req.Fees)
    if err != nil {
      writeError(w, http.StatusBadRequest, err.Error())
      return
    }
    feeSats = parsed
  }
  err := s.lightning.ClaimDeposit(r.Context(), req.Mnemonic, lightning.ClaimRequest{
    Txid: req.Txid,
    Vout: req.Vout,
    MaxFeeSats: feeSats,
  })
  if err != nil {
    s.writeLightningError(w, err)
    return
  }
  writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleLightningRefund(w http.ResponseWriter, r *http.Request) {
  var req refundRequest
  if err := readJSON(r, &req); err != nil {
    writeError(w, http.StatusBadRequest, "invalid json")
    return
  }
  err := s.lightning.RefundDeposit(r.Context(), req.Mnemonic, lightning.RefundRequest{
    Txid: req.Txid,
    Vout: req.Vout,
    DestinationAddress: req.DestinationAddress,
  })
  if err != nil {
    s.writeLightningError(w, err)
    return
  }
  writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleLightningActivity(w http.ResponseWriter, r *http.Request) {
  var req activityRequest
  if err := readJSON(r, &req); err != nil {
    writeError(w, http.StatusBadRequest, "invalid json")
    return
  }
  if req.Mnemonic == "" {
    writeError(w, http.StatusBadRequest, lightning.ErrMissingMnemonic.Error())
    return
  }
  if s.activity == nil {
    writeJSON(w, http.StatusOK, map[string]any{"items": []lightning.Activity{}})
    return
  }
  items, err := s.activity.List(r.Context(), lightning.WalletKey(req.Mnemonic), req.Limit)
  if err != nil {
    s.logger.Printf("lightning: activity list failed: %v", err)
    writeError(w, http.StatusInternalServerError, "activity unavailable")
    return
  }
  writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) writeLightningError(w http.ResponseWriter, err error) {
  switch {
  case errors.Is(err, lightning.ErrMissingMnemonic),
    errors.Is(err, lightning.ErrMissingPaymentRequest),
    errors.Is(err, lightning.ErrInvalidAmount),
    errors.Is(err, units.ErrAmountOverflow),
    errors.Is(err, lightning.ErrMissingPaymentID),
    errors.Is(err, lightning.ErrInvalidDeposit),
    errors.Is(err, lightning.ErrInvalidRefundAddress):
    writeError(w, http.StatusBadRequest, err.Error())
  case errors.Is(err, lightning.ErrSessionLimit):
    writeError(w, http.StatusServiceUnavailable, err.Error())
  case errors.Is(err, lightning.ErrNoPreparedPayment):
    writeError(w, http.StatusConflict, err.Error())
  case errors.Is(err, lightning.ErrIntentMismatch):
    writeError(w, http.StatusForbidden, err.Error())
  case errors.Is(err, context.DeadlineExceeded):
    writeError(w, http.StatusGatewayTimeout, "lightning request timed out")
  default:
    s.logger.Printf("lightning: request failed: %v", err)
    writeError(w, http.StatusBadGateway, err.Error())
  }
}
