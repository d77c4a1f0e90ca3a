package sparkclient

import (
  "context"
  "fmt"

  "dokwallet-manager/internal/lightning"
)

// session is one connected wallet on the bridge.
type session struct {
  client *Client
  id string
}

func (s *session) call(ctx context.Context, method string, req map[string]any, out any) error {
  if req == nil {
    req = map[string]any{}
  }
  req["sessionId"] = s.id
  return s.client.invoke(ctx, method, req, out)
}

func (s *session) GetInfo(ctx context.Context) (lightning.Info, error) {
  var reply struct {
    BalanceSats int64 `json:"balanceSats"`
  }
  if err := s.call(ctx, "GetInfo", nil, &reply); err != nil {
    return lightning.Info{}, err
  }
  return lightning.Info{BalanceSats: reply.BalanceSats}, nil
}

func (s *session) Parse(ctx context.Context, input string) (lightning.PaymentMethodKind, error) {
  var reply struct {
    Type string `json:"type"`
  }
  if err := s.call(ctx, "Parse", map[string]any{"input": input}, &reply); err != nil {
    return "", err
  }
  return lightning.PaymentMethodKind(reply.Type), nil
}

func (s *session) PrepareSendPayment(ctx context.Context, req lightning.PrepareSendRequest) (lightning.PrepareSendResponse, error) {
  params := map[string]any{"paymentRequest": req.PaymentRequest}
  if req.AmountSats > 0 {
    params["amount"] = req.AmountSats
  }

  var reply map[string]any
  if err := s.call(ctx, "PrepareSendPayment", params, &reply); err != nil {
    return lightning.PrepareSendResponse{}, err
  }
  return decodePrepareResponse(reply)
}

func (s *session) SendPayment(ctx context.Context, req lightning.SendPaymentRequest) (lightning.Payment, error) {
  prepared, ok := req.Prepared.Handle.(map[string]any)
  if !ok {
    return lightning.Payment{}, fmt.Errorf("prepared payment was not issued by the spark bridge")
  }

  var reply struct {
    Payment wirePayment `json:"payment"`
  }
  if err := s.call(ctx, "SendPayment", map[string]any{"prepareResponse": prepared}, &reply); err != nil {
    return lightning.Payment{}, err
  }
  return reply.Payment.toPayment(), nil
}

func (s *session) GetPayment(ctx context.Context, paymentID string) (lightning.Payment, error) {
  var reply struct {
    Payment wirePayment `json:"payment"`
  }
  if err := s.call(ctx, "GetPayment", map[string]any{"paymentId": paymentID}, &reply); err != nil {
    return lightning.Payment{}, err
  }
  return reply.Payment.toPayment(), nil
}

func (s *session) ListPayments(ctx context.Context, req lightning.ListPaymentsRequest) ([]lightning.Payment, error) {
  var reply struct {
    Payments []wirePayment `json:"payments"`
  }
  err := s.call(ctx, "ListPayments", map[string]any{
    "offset": req.Offset,
    "limit": req.Limit,
  }, &reply)
  if err != nil {
    return nil, err
  }
  payments := make([]lightning.Payment, 0, len(reply.Payments))
  for _, p := range reply.Payments {
    payments = append(payments, p.toPayment())
  }
  return payments, nil
}

func (s *session) ReceivePayment(ctx context.Context, req lightning.ReceiveRequest) (lightning.ReceiveResponse, error) {
  method := map[string]any{"type": string(req.Kind)}
  if req.Description != "" {
    method["description"] = req.Description
  }

  var reply struct {
    PaymentRequest string `json:"paymentRequest"`
    Fee int64 `json:"fee"`
  }
  if err := s.call(ctx, "ReceivePayment", map[string]any{"paymentMethod": method}, &reply); err != nil {
    return lightning.ReceiveResponse{}, err
  }
  return lightning.ReceiveResponse{PaymentRequest: reply.PaymentRequest, FeeSats: reply.Fee}, nil
}

func (s *session) ListUnclaimedDeposits(ctx context.Context) ([]lightning.Deposit, error) {
  var reply struct {
    Deposits []wireDeposit `json:"deposits"`
  }
  if err := s.call(ctx, "ListUnclaimedDeposits", nil, &reply); err != nil {
    return nil, err
  }
  deposits := make([]lightning.Deposit, 0, len(reply.Deposits))
  for _, d := range reply.Deposits {
    deposits = append(deposits, d.toDeposit())
  }
  return deposits, nil
}

func (s *session) ClaimDeposit(ctx context.Context, req lightning.ClaimDepositRequest) error {
  return s.call(ctx, "ClaimDeposit", map[string]any{
    "txid": req.Txid,
    "vout": req.Vout,
    "maxFee": feeParam(req.MaxFee),
  }, nil)
}

func (s *session) RefundDeposit(ctx context.Context, req lightning.RefundDepositRequest) (string, error) {
  var reply struct {
    TxID string `json:"txId"`
  }
  err := s.call(ctx, "RefundDeposit", map[string]any{
    "txid": req.Txid,
    "vout": req.Vout,
    "destinationAddress": req.DestinationAddress,
    "fee": feeParam(req.Fee),
  }, &reply)
  if err != nil {
    return "", err
  }
  return reply.TxID, nil
}
