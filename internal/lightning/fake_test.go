package lightning

import (
  "context"
  "errors"
  "io"
  "log"
  "sync"
)

var errFake = errors.New("fake sdk failure")

type fakeConnector struct {
  mu sync.Mutex
  inits int
  connects int
  initErrs []error
  connectErrs []error
  gate chan struct{}
  sdks map[string]*fakeSDK
}

func newFakeConnector() *fakeConnector {
  return &fakeConnector{sdks: map[string]*fakeSDK{}}
}

func (c *fakeConnector) Init(ctx context.Context) error {
  c.mu.Lock()
  defer c.mu.Unlock()
  c.inits++
  if len(c.initErrs) > 0 {
    err := c.initErrs[0]
    c.initErrs = c.initErrs[1:]
    return err
  }
  return nil
}

func (c *fakeConnector) Connect(ctx context.Context, req ConnectRequest) (SDK, error) {
  c.mu.Lock()
  c.connects++
  gate := c.gate
  var err error
  if len(c.connectErrs) > 0 {
    err = c.connectErrs[0]
    c.connectErrs = c.connectErrs[1:]
  }
  c.mu.Unlock()

  if gate != nil {
    <-gate
  }
  if err != nil {
    return nil, err
  }

  c.mu.Lock()
  defer c.mu.Unlock()
  sdk, ok := c.sdks[req.Mnemonic]
  if !ok {
    sdk = newFakeSDK()
    c.sdks[req.Mnemonic] = sdk
  }
  sdk.connectReq = req
  return sdk, nil
}

func (c *fakeConnector) connectCount() int {
  c.mu.Lock()
  defer c.mu.Unlock()
  return c.connects
}

func (c *fakeConnector) initCount() int {
  c.mu.Lock()
  defer c.mu.Unlock()
  return c.inits
}

// sdkFor pre-registers the handle that Connect returns for mnemonic.
func (c *fakeConnector) sdkFor(mnemonic string) *fakeSDK {
  c.mu.Lock()
  defer c.mu.Unlock()
  sdk, ok := c.sdks[mnemonic]
  if !ok {
    sdk = newFakeSDK()
    c.sdks[mnemonic] = sdk
  }
  return sdk
}

type fakeSDK struct {
  mu sync.Mutex
  connectReq ConnectRequest

  balance int64
  parseKinds map[string]PaymentMethodKind
  prepareResp PrepareSendResponse
  prepareErr error
  prepareCalls []PrepareSendRequest
  sendCalls []SendPaymentRequest
  sendErr error
  statuses []PaymentStatus
  getErr error
  getCalls int
  payments []Payment
  listErr error
  receiveCalls []ReceiveRequest
  receiveErr error
  deposits []Deposit
  depositsErr error
  claims []ClaimDepositRequest
  claimErr error
  refunds []RefundDepositRequest
}

func newFakeSDK() *fakeSDK {
  return &fakeSDK{parseKinds: map[string]PaymentMethodKind{}}
}

func (f *fakeSDK) GetInfo(ctx context.Context) (Info, error) {
  return Info{BalanceSats: f.balance}, nil
}

func (f *fakeSDK) Parse(ctx context.Context, input string) (PaymentMethodKind, error) {
  kind, ok := f.parseKinds[input]
  if !ok {
    return "", errors.New("unrecognized input")
  }
  return kind, nil
}

func (f *fakeSDK) PrepareSendPayment(ctx context.Context, req PrepareSendRequest) (PrepareSendResponse, error) {
  f.mu.Lock()
  defer f.mu.Unlock()
  f.prepareCalls = append(f.prepareCalls, req)
  if f.prepareErr != nil {
    return PrepareSendResponse{}, f.prepareErr
  }
  resp := f.prepareResp
  resp.PaymentRequest = req.PaymentRequest
  resp.AmountSats = req.AmountSats
  return resp, nil
}

func (f *fakeSDK) SendPayment(ctx context.Context, req SendPaymentRequest) (Payment, error) {
  f.mu.Lock()
  defer f.mu.Unlock()
  f.sendCalls = append(f.sendCalls, req)
  if f.sendErr != nil {
    return Payment{}, f.sendErr
  }
  return Payment{ID: "pay-1", Status: PaymentPending}, nil
}

func (f *fakeSDK) GetPayment(ctx context.Context, paymentID string) (Payment, error) {
  f.mu.Lock()
  defer f.mu.Unlock()
  f.getCalls++
  if f.getErr != nil {
    return Payment{}, f.getErr
  }
  status := PaymentPending
  if len(f.statuses) > 0 {
    status = f.statuses[0]
    f.statuses = f.statuses[1:]
  }
  return Payment{ID: paymentID, Status: status}, nil
}

func (f *fakeSDK) ListPayments(ctx context.Context, req ListPaymentsRequest) ([]Payment, error) {
  if f.listErr != nil {
    return nil, f.listErr
  }
  return f.payments, nil
}

func (f *fakeSDK) ReceivePayment(ctx context.Context, req ReceiveRequest) (ReceiveResponse, error) {
  f.mu.Lock()
  defer f.mu.Unlock()
  f.receiveCalls = append(f.receiveCalls, req)
  if f.receiveErr != nil {
    return ReceiveResponse{}, f.receiveErr
  }
  return ReceiveResponse{PaymentRequest: "addr-" + string(req.Kind), FeeSats: 3}, nil
}

func (f *fakeSDK) ListUnclaimedDeposits(ctx context.Context) ([]Deposit, error) {
  return f.deposits, f.depositsErr
}

func (f *fakeSDK) ClaimDeposit(ctx context.Context, req ClaimDepositRequest) error {
  f.mu.Lock()
  defer f.mu.Unlock()
  f.claims = append(f.claims, req)
  return f.claimErr
}

func (f *fakeSDK) RefundDeposit(ctx context.Context, req RefundDepositRequest) (string, error) {
  f.mu.Lock()
  defer f.mu.Unlock()
  f.refunds = append(f.refunds, req)
  return "refund-txid", nil
}

func (f *fakeSDK) getCount() int {
  f.mu.Lock()
  defer f.mu.Unlock()
  return f.getCalls
}

type memoryJournal struct {
  mu sync.Mutex
  items []Activity
}

func (j *memoryJournal) Record(ctx context.Context, activity Activity) error {
  j.mu.Lock()
  defer j.mu.Unlock()
  j.items = append(j.items, activity)
  return nil
}

func testLogger() *log.Logger {
  return log.New(io.Discard, "", 0)
}

func newTestService(conn *fakeConnector, network string, opts ServiceOptions) *Service {
  reg := NewRegistry(conn, RegistryConfig{Network: network, APIKey: "key"}, testLogger())
  return NewService(reg, opts, testLogger())
}
