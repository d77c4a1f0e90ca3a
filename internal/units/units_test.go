package units

import (
  "errors"
  "testing"

  "github.com/stretchr/testify/require"
)

func TestBTCToSats(t *testing.T) {
  cases := []struct {
    in string
    want int64
  }{
    {"0", 0},
    {"1", 100000000},
    {"0.0015", 150000},
    {"0.00098500", 98500},
    {"21000000", 2100000000000000},
    {"0.00000001", 1},
    {" 2.5 ", 250000000},
  }
  for _, tc := range cases {
    got, err := BTCToSats(tc.in)
    require.NoError(t, err, tc.in)
    require.Equal(t, tc.want, got, tc.in)
  }
}

func TestBTCToSatsRejectsMalformed(t *testing.T) {
  for _, in := range []string{"", "-1", "1e5", "0.", ".5", "abc", "1,5", "0.000000019", "1.000000000"} {
    _, err := BTCToSats(in)
    require.True(t, errors.Is(err, ErrInvalidAmount), in)
  }

  _, err := BTCToSats("999999999999999")
  require.ErrorIs(t, err, ErrAmountOverflow)
}

func TestSatsToBTCString(t *testing.T) {
  require.Equal(t, "0.001", SatsToBTCString(100000))
  require.Equal(t, "0.000015", SatsToBTCString(1500))
  require.Equal(t, "0.000985", SatsToBTCString(98500))
  require.Equal(t, "0", SatsToBTCString(0))
  require.Equal(t, "1", SatsToBTCString(100000000))
  require.Equal(t, "-0.00000001", SatsToBTCString(-1))
}
