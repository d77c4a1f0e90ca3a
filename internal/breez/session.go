package breez

import (
  "context"
  "errors"

  "dokwallet-manager/internal/lightning"

  "github.com/breez/breez-sdk-spark-go/breez_sdk_spark"
)

var errForeignPrepared = errors.New("breez: prepared payment was not issued by this sdk")

// session adapts one connected BreezSdk to lightning.SDK.
type session struct {
  w wallet
}

func (s *session) Close() error {
  return s.w.Disconnect()
}

func (s *session) GetInfo(ctx context.Context) (lightning.Info, error) {
  ensureSynced := false
  resp, err := await(ctx, func() (breez_sdk_spark.GetInfoResponse, error) {
    resp, err := s.w.GetInfo(breez_sdk_spark.GetInfoRequest{EnsureSynced: &ensureSynced})
    if err != nil {
      return resp, err
    }
    return resp, nil
  })
  if err != nil {
    return lightning.Info{}, err
  }
  return lightning.Info{BalanceSats: int64(resp.BalanceSats)}, nil
}

func (s *session) Parse(ctx context.Context, input string) (lightning.PaymentMethodKind, error) {
  parsed, err := await(ctx, func() (breez_sdk_spark.InputType, error) {
    parsed, err := s.w.Parse(input)
    if err != nil {
      return nil, err
    }
    return parsed, nil
  })
  if err != nil {
    return "", err
  }
  return inputKind(parsed), nil
}

func (s *session) PrepareSendPayment(ctx context.Context, req lightning.PrepareSendRequest) (lightning.PrepareSendResponse, error) {
  sdkReq := breez_sdk_spark.PrepareSendPaymentRequest{PaymentRequest: req.PaymentRequest}
  if req.AmountSats > 0 {
    amount := satsOut(req.AmountSats)
    sdkReq.AmountSats = &amount
  }

  resp, err := await(ctx, func() (breez_sdk_spark.PrepareSendPaymentResponse, error) {
    resp, err := s.w.PrepareSendPayment(sdkReq)
    if err != nil {
      return resp, err
    }
    return resp, nil
  })
  if err != nil {
    return lightning.PrepareSendResponse{}, err
  }
  return prepareResponse(req.PaymentRequest, resp), nil
}

func (s *session) SendPayment(ctx context.Context, req lightning.SendPaymentRequest) (lightning.Payment, error) {
  prepared, ok := req.Prepared.Handle.(breez_sdk_spark.PrepareSendPaymentResponse)
  if !ok {
    return lightning.Payment{}, errForeignPrepared
  }

  resp, err := await(ctx, func() (breez_sdk_spark.SendPaymentResponse, error) {
    resp, err := s.w.SendPayment(breez_sdk_spark.SendPaymentRequest{PrepareResponse: prepared})
    if err != nil {
      return resp, err
    }
    return resp, nil
  })
  if err != nil {
    return lightning.Payment{}, err
  }
  return payment(resp.Payment), nil
}

func (s *session) GetPayment(ctx context.Context, paymentID string) (lightning.Payment, error) {
  resp, err := await(ctx, func() (breez_sdk_spark.GetPaymentResponse, error) {
    resp, err := s.w.GetPayment(breez_sdk_spark.GetPaymentRequest{PaymentId: paymentID})
    if err != nil {
      return resp, err
    }
    return resp, nil
  })
  if err != nil {
    return lightning.Payment{}, err
  }
  return payment(resp.Payment), nil
}

func (s *session) ListPayments(ctx context.Context, req lightning.ListPaymentsRequest) ([]lightning.Payment, error) {
  offset := uint32(max(req.Offset, 0))
  limit := uint32(max(req.Limit, 0))
  resp, err := await(ctx, func() (breez_sdk_spark.ListPaymentsResponse, error) {
    resp, err := s.w.ListPayments(breez_sdk_spark.ListPaymentsRequest{Offset: &offset, Limit: &limit})
    if err != nil {
      return resp, err
    }
    return resp, nil
  })
  if err != nil {
    return nil, err
  }

  payments := make([]lightning.Payment, 0, len(resp.Payments))
  for _, p := range resp.Payments {
    payments = append(payments, payment(p))
  }
  return payments, nil
}

func (s *session) ReceivePayment(ctx context.Context, req lightning.ReceiveRequest) (lightning.ReceiveResponse, error) {
  method, err := receiveMethod(req)
  if err != nil {
    return lightning.ReceiveResponse{}, err
  }

  resp, err := await(ctx, func() (breez_sdk_spark.ReceivePaymentResponse, error) {
    resp, err := s.w.ReceivePayment(breez_sdk_spark.ReceivePaymentRequest{PaymentMethod: method})
    if err != nil {
      return resp, err
    }
    return resp, nil
  })
  if err != nil {
    return lightning.ReceiveResponse{}, err
  }
  return lightning.ReceiveResponse{
    PaymentRequest: resp.PaymentRequest,
    FeeSats: int64(resp.FeeSats),
  }, nil
}

func (s *session) ListUnclaimedDeposits(ctx context.Context) ([]lightning.Deposit, error) {
  resp, err := await(ctx, func() (breez_sdk_spark.ListUnclaimedDepositsResponse, error) {
    resp, err := s.w.ListUnclaimedDeposits(breez_sdk_spark.ListUnclaimedDepositsRequest{})
    if err != nil {
      return resp, err
    }
    return resp, nil
  })
  if err != nil {
    return nil, err
  }

  deposits := make([]lightning.Deposit, 0, len(resp.Deposits))
  for _, d := range resp.Deposits {
    deposits = append(deposits, deposit(d))
  }
  return deposits, nil
}

func (s *session) ClaimDeposit(ctx context.Context, req lightning.ClaimDepositRequest) error {
  maxFee := fee(req.MaxFee)
  _, err := await(ctx, func() (breez_sdk_spark.ClaimDepositResponse, error) {
    resp, err := s.w.ClaimDeposit(breez_sdk_spark.ClaimDepositRequest{
      Txid: req.Txid,
      Vout: req.Vout,
      MaxFee: &maxFee,
    })
    if err != nil {
      return resp, err
    }
    return resp, nil
  })
  return err
}

func (s *session) RefundDeposit(ctx context.Context, req lightning.RefundDepositRequest) (string, error) {
  resp, err := await(ctx, func() (breez_sdk_spark.RefundDepositResponse, error) {
    resp, err := s.w.RefundDeposit(breez_sdk_spark.RefundDepositRequest{
      Txid: req.Txid,
      Vout: req.Vout,
      DestinationAddress: req.DestinationAddress,
      Fee: fee(req.Fee),
    })
    if err != nil {
      return resp, err
    }
    return resp, nil
  })
  if err != nil {
    return "", err
  }
  return resp.TxId, nil
}
