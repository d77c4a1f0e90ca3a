package breez

import (
  "fmt"

  "dokwallet-manager/internal/lightning"

  "github.com/breez/breez-sdk-spark-go/breez_sdk_spark"
)

const unsupportedInput lightning.PaymentMethodKind = "unsupported"

func inputKind(input breez_sdk_spark.InputType) lightning.PaymentMethodKind {
  switch input.(type) {
  case breez_sdk_spark.InputTypeBitcoinAddress:
    return lightning.MethodBitcoinAddress
  case breez_sdk_spark.InputTypeSparkAddress:
    return lightning.MethodSparkAddress
  case breez_sdk_spark.InputTypeBolt11Invoice:
    return lightning.MethodBolt11Invoice
  }
  return unsupportedInput
}

func prepareResponse(paymentRequest string, resp breez_sdk_spark.PrepareSendPaymentResponse) lightning.PrepareSendResponse {
  out := lightning.PrepareSendResponse{
    PaymentRequest: paymentRequest,
    AmountSats: satsIn(resp.AmountSats),
    Handle: resp,
  }

  switch m := resp.PaymentMethod.(type) {
  case breez_sdk_spark.SendPaymentMethodBitcoinAddress:
    out.Method = lightning.SendPaymentMethod{
      Kind: lightning.MethodBitcoinAddress,
      FeeQuote: &lightning.OnchainFeeQuote{
        SpeedFast: speedFee(m.FeeQuote.SpeedFast),
        SpeedMedium: speedFee(m.FeeQuote.SpeedMedium),
        SpeedSlow: speedFee(m.FeeQuote.SpeedSlow),
      },
    }
  case breez_sdk_spark.SendPaymentMethodSparkAddress:
    out.Method = lightning.SendPaymentMethod{
      Kind: lightning.MethodSparkAddress,
      FeeSats: satsIn(m.Fee),
    }
  case breez_sdk_spark.SendPaymentMethodBolt11Invoice:
    out.Method = lightning.SendPaymentMethod{
      Kind: lightning.MethodBolt11Invoice,
      LightningFeeSats: satsIn(m.LightningFeeSats),
    }
  default:
    out.Method = lightning.SendPaymentMethod{Kind: unsupportedInput}
  }
  return out
}

func speedFee(q breez_sdk_spark.SendOnchainSpeedFeeQuote) lightning.SpeedFee {
  return lightning.SpeedFee{
    UserFeeSat: satsIn(q.UserFeeSat),
    L1BroadcastFeeSat: satsIn(q.L1BroadcastFeeSat),
  }
}

func payment(p breez_sdk_spark.Payment) lightning.Payment {
  out := lightning.Payment{
    ID: p.Id,
    Status: lightning.PaymentPending,
    PaymentType: lightning.PaymentReceive,
    AmountSats: satsIn(p.Amount),
    FeesSats: satsIn(p.Fees),
    Timestamp: int64(p.Timestamp),
  }
  switch p.Status {
  case breez_sdk_spark.PaymentStatusCompleted:
    out.Status = lightning.PaymentCompleted
  case breez_sdk_spark.PaymentStatusFailed:
    out.Status = lightning.PaymentFailed
  }
  if p.PaymentType == breez_sdk_spark.PaymentTypeSend {
    out.PaymentType = lightning.PaymentSend
  }

  if p.Details == nil {
    return out
  }
  switch d := (*p.Details).(type) {
  case breez_sdk_spark.PaymentDetailsLightning:
    out.Details.PaymentHash = d.PaymentHash
    out.Details.DestinationPubkey = d.DestinationPubkey
    if d.Preimage != nil {
      out.Details.Preimage = *d.Preimage
    }
  case breez_sdk_spark.PaymentDetailsDeposit:
    out.Details.TxID = d.TxId
  case breez_sdk_spark.PaymentDetailsWithdraw:
    out.Details.TxID = d.TxId
  }
  return out
}

func receiveMethod(req lightning.ReceiveRequest) (breez_sdk_spark.ReceivePaymentMethod, error) {
  switch req.Kind {
  case lightning.ReceiveBolt11Invoice:
    return breez_sdk_spark.ReceivePaymentMethodBolt11Invoice{Description: req.Description}, nil
  case lightning.ReceiveSparkAddress:
    return breez_sdk_spark.ReceivePaymentMethodSparkAddress{}, nil
  case lightning.ReceiveBitcoinAddress:
    return breez_sdk_spark.ReceivePaymentMethodBitcoinAddress{}, nil
  }
  return nil, fmt.Errorf("breez: unsupported receive method %q", req.Kind)
}

func deposit(d breez_sdk_spark.DepositInfo) lightning.Deposit {
  out := lightning.Deposit{
    Txid: d.Txid,
    Vout: d.Vout,
    AmountSats: satsIn(d.AmountSats),
  }
  if d.ClaimError == nil {
    return out
  }
  switch e := (*d.ClaimError).(type) {
  case breez_sdk_spark.DepositClaimErrorDepositClaimFeeExceeded:
    out.ClaimError = &lightning.DepositClaimError{
      Kind: "maxDepositClaimFeeExceeded",
      RequiredFeeSats: satsIn(e.ActualFee),
    }
  case breez_sdk_spark.DepositClaimErrorMissingUtxo:
    out.ClaimError = &lightning.DepositClaimError{Kind: "missingUtxo"}
  case breez_sdk_spark.DepositClaimErrorGeneric:
    out.ClaimError = &lightning.DepositClaimError{Kind: "generic", Message: e.Message}
  default:
    out.ClaimError = &lightning.DepositClaimError{Kind: "unknown"}
  }
  return out
}

func fee(f lightning.Fee) breez_sdk_spark.Fee {
  if f.Kind == lightning.FeeRate {
    return breez_sdk_spark.FeeRate{SatPerVbyte: satsOut(f.AmountSats)}
  }
  return breez_sdk_spark.FeeFixed{Amount: satsOut(f.AmountSats)}
}

func satsIn(v uint64) int64 {
  if v > 1<<63-1 {
    return 1<<63 - 1
  }
  return int64(v)
}

func satsOut(v int64) uint64 {
  if v < 0 {
    return 0
  }
  return uint64(v)
}
