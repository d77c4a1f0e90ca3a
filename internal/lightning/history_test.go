package lightning

import (
  "context"
  "testing"

  "github.com/stretchr/testify/require"
)

func TestListTransactionsNormalizesPayments(t *testing.T) {
  conn := newFakeConnector()
  sdk := conn.sdkFor(testMnemonic)
  sdk.payments = []Payment{
    {
      ID: "payment-identifier-0001",
      Status: PaymentCompleted,
      PaymentType: PaymentSend,
      AmountSats: 150000,
      Timestamp: 1700000000,
      Details: PaymentDetails{TxID: "f4184fc596403b9d638783cf57adfe4c75c605f6356fbc91338530e9831e9e16"},
    },
    {
      ID: "short",
      Status: PaymentPending,
      PaymentType: PaymentReceive,
      AmountSats: 1,
      Timestamp: 1700000100,
    },
  }
  svc := newTestService(conn, NetworkMainnet, ServiceOptions{})

  items, err := svc.ListTransactions(context.Background(), testMnemonic)
  require.NoError(t, err)
  require.Len(t, items, 2)

  sent := items[0]
  require.Equal(t, "0.0015", sent.Amount)
  require.Equal(t, "SUCCESS", sent.Status)
  require.Equal(t, "f4184fc596403...", sent.Link)
  require.Equal(t, int64(1700000000000), sent.Date)
  require.Equal(t, "addr-sparkAddress", sent.From)
  require.Empty(t, sent.To)
  require.Equal(t, "0$", sent.TotalCourse)

  received := items[1]
  require.Equal(t, "Pending", received.Status)
  require.Equal(t, "short...", received.Link)
  require.Equal(t, "0.00000001", received.Amount)
  require.Equal(t, "addr-sparkAddress", received.To)
  require.Empty(t, received.From)

  require.Len(t, sdk.receiveCalls, 1)
}

func TestListTransactionsEmptySkipsAddressLookup(t *testing.T) {
  conn := newFakeConnector()
  sdk := conn.sdkFor(testMnemonic)
  svc := newTestService(conn, NetworkMainnet, ServiceOptions{})

  items, err := svc.ListTransactions(context.Background(), testMnemonic)
  require.NoError(t, err)
  require.NotNil(t, items)
  require.Empty(t, items)
  require.Empty(t, sdk.receiveCalls)
}

func TestListTransactionsErrorReturnsEmptySlice(t *testing.T) {
  conn := newFakeConnector()
  conn.sdkFor(testMnemonic).listErr = errFake
  svc := newTestService(conn, NetworkMainnet, ServiceOptions{})

  items, err := svc.ListTransactions(context.Background(), testMnemonic)
  require.ErrorIs(t, err, errFake)
  require.NotNil(t, items)
  require.Empty(t, items)
}

func TestPaymentLinkFallbacks(t *testing.T) {
  require.Equal(t, "hash-value...", paymentLink(Payment{ID: "id", Details: PaymentDetails{PaymentHash: "hash-value"}}))
  require.Equal(t, "id...", paymentLink(Payment{ID: "id"}))
  require.Equal(t, "N/A...", paymentLink(Payment{}))
}

func TestListUnclaimedDepositsComputesReceivedAmount(t *testing.T) {
  conn := newFakeConnector()
  conn.sdkFor(testMnemonic).deposits = []Deposit{
    {
      Txid: "abc",
      Vout: 0,
      AmountSats: 100000,
      ClaimError: &DepositClaimError{Kind: "maxDepositClaimFeeExceeded", RequiredFeeSats: 1500},
    },
    {Txid: "def", Vout: 1, AmountSats: 800, ClaimError: &DepositClaimError{Kind: "maxDepositClaimFeeExceeded", RequiredFeeSats: 1500}},
    {Txid: "ghi", Vout: 2, AmountSats: 5000},
  }
  svc := newTestService(conn, NetworkMainnet, ServiceOptions{})

  items, err := svc.ListUnclaimedDeposits(context.Background(), testMnemonic)
  require.NoError(t, err)
  require.Len(t, items, 3)

  first := items[0]
  require.Equal(t, int64(98500), first.ReceivedSats())
  require.Equal(t, "0.001", first.Amount)
  require.Equal(t, "0.000015", first.Fees)
  require.Equal(t, "0.000985", first.ReceivedAmount)
  require.Equal(t, "maxDepositClaimFeeExceeded", first.ClaimError)

  require.Equal(t, int64(0), items[1].ReceivedSats())
  require.Equal(t, "0", items[1].ReceivedAmount)

  require.Equal(t, int64(5000), items[2].ReceivedSats())
  require.Equal(t, "0", items[2].Fees)
  require.Empty(t, items[2].ClaimError)
}

func TestListUnclaimedDepositsErrorReturnsEmptySlice(t *testing.T) {
  conn := newFakeConnector()
  conn.sdkFor(testMnemonic).depositsErr = errFake
  svc := newTestService(conn, NetworkMainnet, ServiceOptions{})

  items, err := svc.ListUnclaimedDeposits(context.Background(), testMnemonic)
  require.ErrorIs(t, err, errFake)
  require.NotNil(t, items)
}
