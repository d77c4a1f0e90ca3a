package units

import (
  "errors"
  "fmt"
  "math"
  "regexp"
  "strconv"
  "strings"
)

// BitcoinDecimals is the precision used for every amount crossing the
// Lightning SDK boundary.
const BitcoinDecimals = 8

var (
  ErrInvalidAmount = errors.New("invalid decimal amount")
  ErrAmountOverflow = errors.New("amount out of range")
)

var decimalPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ToSmallest converts a display amount such as "0.0015" to its integer
// representation at the given precision. Amounts finer than the precision
// are rejected.
func ToSmallest(amount string, decimals int) (int64, error) {
  value := strings.TrimSpace(amount)
  if !decimalPattern.MatchString(value) {
    return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
  }

  intPart, fracPart, _ := strings.Cut(value, ".")
  if len(fracPart) > decimals {
    return 0, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, amount, decimals)
  }
  fracPart += strings.Repeat("0", decimals-len(fracPart))

  digits := strings.TrimLeft(intPart+fracPart, "0")
  if digits == "" {
    return 0, nil
  }
  parsed, err := strconv.ParseInt(digits, 10, 64)
  if err != nil {
    return 0, ErrAmountOverflow
  }
  return parsed, nil
}

// FormatSmallest is the inverse of ToSmallest. Trailing zeros are trimmed.
func FormatSmallest(value int64, decimals int) string {
  if value == math.MinInt64 {
    return FormatSmallest(value+1, decimals)
  }
  sign := ""
  if value < 0 {
    sign = "-"
    value = -value
  }
  raw := strconv.FormatInt(value, 10)
  if decimals <= 0 {
    return sign + raw
  }
  if len(raw) <= decimals {
    raw = strings.Repeat("0", decimals-len(raw)+1) + raw
  }
  intPart := raw[:len(raw)-decimals]
  fracPart := strings.TrimRight(raw[len(raw)-decimals:], "0")
  if fracPart == "" {
    return sign + intPart
  }
  return sign + intPart + "." + fracPart
}

func BTCToSats(amount string) (int64, error) {
  return ToSmallest(amount, BitcoinDecimals)
}

func SatsToBTCString(sats int64) string {
  return FormatSmallest(sats, BitcoinDecimals)
}
