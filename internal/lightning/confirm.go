package lightning

import (
  "context"
  "errors"
  "time"

  "github.com/lightningnetwork/lnd/ticker"
)

type ConfirmationStatus string

const (
  ConfirmationCompleted ConfirmationStatus = "completed"
  // ConfirmationPending means the retry budget ran out before the payment
  // reached a terminal state. It is not a failure.
  ConfirmationPending ConfirmationStatus = "pending"
)

type WaitRequest struct {
  PaymentID string
  Interval time.Duration
  MaxRetries int
}

type Confirmation struct {
  Status ConfirmationStatus `json:"status"`
  Payment *Payment `json:"payment,omitempty"`
}

// WaitForConfirmation polls the payment status once per interval, at most
// MaxRetries times. The wait is bounded by MaxRetries x Interval.
func (s *Service) WaitForConfirmation(ctx context.Context, mnemonic string, req WaitRequest) (Confirmation, error) {
  if req.PaymentID == "" {
    return Confirmation{}, ErrMissingPaymentID
  }
  if req.Interval <= 0 {
    req.Interval = s.opts.ConfirmInterval
  }
  if req.MaxRetries <= 0 {
    req.MaxRetries = s.opts.ConfirmRetries
  }

  sdk, err := s.registry.Connect(ctx, mnemonic)
  if err != nil {
    return Confirmation{}, err
  }

  conf, err := pollPayment(ctx, sdk, req, s.opts.NewTicker(req.Interval))
  if err != nil && !errors.Is(err, ErrPaymentFailed) {
    s.logger.Printf("lightning: confirmation poll for %s stopped: %v", req.PaymentID, err)
  }
  return conf, err
}

func pollPayment(ctx context.Context, sdk SDK, req WaitRequest, t ticker.Ticker) (Confirmation, error) {
  t.Resume()
  defer t.Stop()

  for attempt := 1; ; attempt++ {
    select {
    case <-ctx.Done():
      return Confirmation{}, ctx.Err()
    case <-t.Ticks():
    }

    payment, err := sdk.GetPayment(ctx, req.PaymentID)
    if err != nil {
      return Confirmation{}, err
    }
    switch payment.Status {
    case PaymentCompleted:
      return Confirmation{Status: ConfirmationCompleted, Payment: &payment}, nil
    case PaymentFailed:
      return Confirmation{}, ErrPaymentFailed
    }
    if attempt >= req.MaxRetries {
      return Confirmation{Status: ConfirmationPending}, nil
    }
  }
}
