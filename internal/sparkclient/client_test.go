package sparkclient

import (
  "context"
  "io"
  "log"
  "net"
  "sync"
  "testing"

  "dokwallet-manager/internal/config"
  "dokwallet-manager/internal/lightning"

  "github.com/stretchr/testify/require"
  "google.golang.org/grpc"
  "google.golang.org/grpc/codes"
  "google.golang.org/grpc/status"
  "google.golang.org/grpc/test/bufconn"
  "google.golang.org/protobuf/types/known/structpb"
)

type fakeBridge struct {
  mu sync.Mutex
  calls map[string][]map[string]any
  replies map[string]map[string]any
  errs map[string]error
}

func (b *fakeBridge) handle(srv any, stream grpc.ServerStream) error {
  method, _ := grpc.MethodFromServerStream(stream)
  in := &structpb.Struct{}
  if err := stream.RecvMsg(in); err != nil {
    return err
  }

  b.mu.Lock()
  b.calls[method] = append(b.calls[method], in.AsMap())
  reply := b.replies[method]
  err := b.errs[method]
  b.mu.Unlock()

  if err != nil {
    return err
  }
  out, err := structpb.NewStruct(reply)
  if err != nil {
    return err
  }
  return stream.SendMsg(out)
}

func (b *fakeBridge) lastCall(t *testing.T, method string) map[string]any {
  t.Helper()
  b.mu.Lock()
  defer b.mu.Unlock()
  calls := b.calls[servicePrefix+method]
  require.NotEmpty(t, calls, method)
  return calls[len(calls)-1]
}

func startBridge(t *testing.T) (*fakeBridge, *Client) {
  t.Helper()
  bridge := &fakeBridge{
    calls: map[string][]map[string]any{},
    replies: map[string]map[string]any{},
    errs: map[string]error{},
  }
  lis := bufconn.Listen(1 << 20)
  srv := grpc.NewServer(grpc.UnknownServiceHandler(bridge.handle))
  go srv.Serve(lis)
  t.Cleanup(srv.Stop)

  client := New(config.LightningConfig{BridgeHost: "bufnet", APIKey: "api-key"}, log.New(io.Discard, "", 0))
  client.dialOpts = []grpc.DialOption{
    grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
      return lis.DialContext(ctx)
    }),
  }
  t.Cleanup(func() { client.Close() })
  return bridge, client
}

func (b *fakeBridge) reply(method string, v map[string]any) {
  b.mu.Lock()
  defer b.mu.Unlock()
  b.replies[servicePrefix+method] = v
}

func (b *fakeBridge) fail(method string, err error) {
  b.mu.Lock()
  defer b.mu.Unlock()
  b.errs[servicePrefix+method] = err
}

func connectSession(t *testing.T, bridge *fakeBridge, client *Client) lightning.SDK {
  t.Helper()
  bridge.reply("Connect", map[string]any{"sessionId": "s-1"})
  sdk, err := client.Connect(context.Background(), lightning.ConnectRequest{
    Mnemonic: "abandon words",
    Network: lightning.NetworkRegtest,
    APIKey: "api-key",
    StorageDir: "./.data",
  })
  require.NoError(t, err)
  return sdk
}

func TestInitSendsAPIKey(t *testing.T) {
  bridge, client := startBridge(t)
  require.NoError(t, client.Init(context.Background()))
  require.Equal(t, "api-key", bridge.lastCall(t, "Init")["apiKey"])
}

func TestConnectRequiresSessionID(t *testing.T) {
  bridge, client := startBridge(t)
  bridge.reply("Connect", map[string]any{})
  _, err := client.Connect(context.Background(), lightning.ConnectRequest{Mnemonic: "m"})
  require.Error(t, err)
}

func TestPrepareAndSendForwardsPreparedPayload(t *testing.T) {
  bridge, client := startBridge(t)
  sdk := connectSession(t, bridge, client)
  require.Equal(t, lightning.NetworkRegtest, bridge.lastCall(t, "Connect")["network"])

  bridge.reply("PrepareSendPayment", map[string]any{
    "paymentRequest": "bc1qdest",
    "amount": 150000,
    "paymentMethod": map[string]any{
      "type": "bitcoinAddress",
      "feeQuote": map[string]any{
        "speedFast": map[string]any{"userFeeSat": 1500, "l1BroadcastFeeSat": 300},
        "speedMedium": map[string]any{"userFeeSat": 900},
        "speedSlow": map[string]any{"userFeeSat": 400},
      },
    },
  })
  prepared, err := sdk.PrepareSendPayment(context.Background(), lightning.PrepareSendRequest{PaymentRequest: "bc1qdest", AmountSats: 150000})
  require.NoError(t, err)
  require.Equal(t, lightning.MethodBitcoinAddress, prepared.Method.Kind)
  require.Equal(t, int64(1500), prepared.Method.FeeQuote.SpeedFast.UserFeeSat)
  require.Equal(t, int64(300), prepared.Method.FeeQuote.SpeedFast.L1BroadcastFeeSat)
  require.Equal(t, int64(150000), prepared.AmountSats)

  call := bridge.lastCall(t, "PrepareSendPayment")
  require.Equal(t, "s-1", call["sessionId"])
  require.Equal(t, float64(150000), call["amount"])

  bridge.reply("SendPayment", map[string]any{
    "payment": map[string]any{"id": "p-7", "status": "Pending", "paymentType": "Send", "amount": 150000},
  })
  payment, err := sdk.SendPayment(context.Background(), lightning.SendPaymentRequest{Prepared: prepared})
  require.NoError(t, err)
  require.Equal(t, "p-7", payment.ID)
  require.Equal(t, lightning.PaymentPending, payment.Status)
  require.Equal(t, lightning.PaymentSend, payment.PaymentType)

  forwarded := bridge.lastCall(t, "SendPayment")["prepareResponse"].(map[string]any)
  require.Equal(t, "bc1qdest", forwarded["paymentRequest"])
  require.Contains(t, forwarded, "paymentMethod")
}

func TestPrepareOmitsZeroAmount(t *testing.T) {
  bridge, client := startBridge(t)
  sdk := connectSession(t, bridge, client)
  bridge.reply("PrepareSendPayment", map[string]any{
    "paymentMethod": map[string]any{"type": "bolt11Invoice", "lightningFeeSats": 4},
  })

  prepared, err := sdk.PrepareSendPayment(context.Background(), lightning.PrepareSendRequest{PaymentRequest: "lnbc1"})
  require.NoError(t, err)
  require.Equal(t, int64(4), prepared.Method.LightningFeeSats)
  require.Nil(t, prepared.Method.FeeQuote)
  require.NotContains(t, bridge.lastCall(t, "PrepareSendPayment"), "amount")
}

func TestListPaymentsAndDeposits(t *testing.T) {
  bridge, client := startBridge(t)
  sdk := connectSession(t, bridge, client)

  bridge.reply("ListPayments", map[string]any{
    "payments": []any{
      map[string]any{
        "id": "p-1",
        "status": "completed",
        "paymentType": "receive",
        "amount": 2100,
        "fees": 1,
        "timestamp": 1700000000,
        "details": map[string]any{"paymentHash": "hash-1"},
      },
    },
  })
  payments, err := sdk.ListPayments(context.Background(), lightning.ListPaymentsRequest{Limit: 20})
  require.NoError(t, err)
  require.Len(t, payments, 1)
  require.Equal(t, lightning.PaymentCompleted, payments[0].Status)
  require.Equal(t, lightning.PaymentReceive, payments[0].PaymentType)
  require.Equal(t, int64(1700000000), payments[0].Timestamp)
  require.Equal(t, "hash-1", payments[0].Details.PaymentHash)
  require.Equal(t, float64(20), bridge.lastCall(t, "ListPayments")["limit"])

  bridge.reply("ListUnclaimedDeposits", map[string]any{
    "deposits": []any{
      map[string]any{
        "txid": "abc",
        "vout": 1,
        "amountSats": 100000,
        "claimError": map[string]any{"type": "maxDepositClaimFeeExceeded", "requiredFeeSats": 1500},
      },
      map[string]any{"txid": "def", "vout": 0, "amountSats": 5000},
    },
  })
  deposits, err := sdk.ListUnclaimedDeposits(context.Background())
  require.NoError(t, err)
  require.Len(t, deposits, 2)
  require.Equal(t, uint32(1), deposits[0].Vout)
  require.Equal(t, int64(1500), deposits[0].ClaimError.RequiredFeeSats)
  require.Nil(t, deposits[1].ClaimError)
}

func TestClaimAndRefundParams(t *testing.T) {
  bridge, client := startBridge(t)
  sdk := connectSession(t, bridge, client)

  require.NoError(t, sdk.ClaimDeposit(context.Background(), lightning.ClaimDepositRequest{
    Txid: "abc",
    Vout: 1,
    MaxFee: lightning.Fee{Kind: lightning.FeeFixed, AmountSats: 1500},
  }))
  claim := bridge.lastCall(t, "ClaimDeposit")
  require.Equal(t, map[string]any{"type": "fixed", "amount": float64(1500)}, claim["maxFee"])

  bridge.reply("RefundDeposit", map[string]any{"txId": "refund-1"})
  txid, err := sdk.RefundDeposit(context.Background(), lightning.RefundDepositRequest{
    Txid: "abc",
    DestinationAddress: "bcrt1qdest",
    Fee: lightning.Fee{Kind: lightning.FeeFixed, AmountSats: 2000},
  })
  require.NoError(t, err)
  require.Equal(t, "refund-1", txid)
  require.Equal(t, "bcrt1qdest", bridge.lastCall(t, "RefundDeposit")["destinationAddress"])
}

func TestReceiveAndParse(t *testing.T) {
  bridge, client := startBridge(t)
  sdk := connectSession(t, bridge, client)

  bridge.reply("ReceivePayment", map[string]any{"paymentRequest": "lnbcrt1", "fee": 2})
  resp, err := sdk.ReceivePayment(context.Background(), lightning.ReceiveRequest{Kind: lightning.ReceiveBolt11Invoice, Description: "Dokwallet Invoice"})
  require.NoError(t, err)
  require.Equal(t, lightning.ReceiveResponse{PaymentRequest: "lnbcrt1", FeeSats: 2}, resp)
  method := bridge.lastCall(t, "ReceivePayment")["paymentMethod"].(map[string]any)
  require.Equal(t, "bolt11Invoice", method["type"])
  require.Equal(t, "Dokwallet Invoice", method["description"])

  bridge.reply("Parse", map[string]any{"type": "sparkAddress"})
  kind, err := sdk.Parse(context.Background(), "sp1xyz")
  require.NoError(t, err)
  require.Equal(t, lightning.MethodSparkAddress, kind)

  bridge.reply("GetInfo", map[string]any{"balanceSats": 777})
  info, err := sdk.GetInfo(context.Background())
  require.NoError(t, err)
  require.Equal(t, int64(777), info.BalanceSats)
}

func TestErrorMapping(t *testing.T) {
  bridge, client := startBridge(t)
  sdk := connectSession(t, bridge, client)

  bridge.fail("GetPayment", status.Error(codes.Unauthenticated, "bad token"))
  _, err := sdk.GetPayment(context.Background(), "p-1")
  require.ErrorIs(t, err, ErrUnauthenticated)

  bridge.fail("GetInfo", status.Error(codes.Unavailable, "restarting"))
  _, err = sdk.GetInfo(context.Background())
  require.ErrorIs(t, err, ErrBridgeUnavailable)

  bridge.fail("ClaimDeposit", status.Error(codes.FailedPrecondition, "fee too high"))
  err = sdk.ClaimDeposit(context.Background(), lightning.ClaimDepositRequest{Txid: "abc"})
  require.ErrorContains(t, err, "fee too high")
}

func TestPaymentStatus(t *testing.T) {
  require.Equal(t, lightning.PaymentCompleted, paymentStatus("Completed"))
  require.Equal(t, lightning.PaymentFailed, paymentStatus("FAILED"))
  require.Equal(t, lightning.PaymentPending, paymentStatus("pending"))
  require.Equal(t, lightning.PaymentPending, paymentStatus(""))
}
