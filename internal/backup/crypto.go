package backup

import (
  "crypto/aes"
  "crypto/cipher"
  "crypto/rand"
  "crypto/sha256"
  "encoding/base64"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "strings"

  "golang.org/x/crypto/pbkdf2"
)

// VersionPrefix marks the only envelope layout this package reads and writes:
// base64(salt || iv || ciphertext+tag).
const VersionPrefix = "v1-gcm:"

const (
  pbkdf2Iterations = 100000
  keyLen = 32
  saltLen = 16
  ivLen = 12
  tagLen = 16
  minPayloadLen = saltLen + ivLen + tagLen
)

var (
  ErrUnsupportedFormat = errors.New("unsupported backup format")
  ErrTooShort = errors.New("encrypted backup is too short")
  ErrWrongPassword = errors.New("failed to decrypt wallet backup: invalid password or corrupted file")
)

// DeriveKey stretches password into an AES-256 key with PBKDF2-SHA256.
func DeriveKey(password string, salt []byte) []byte {
  return pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keyLen, sha256.New)
}

// Encrypt serializes v as compact JSON and seals it under a key derived from
// password. Every call draws a fresh salt and iv.
func Encrypt(v any, password string) (string, error) {
  plaintext, err := json.Marshal(v)
  if err != nil {
    return "", fmt.Errorf("marshal backup payload: %w", err)
  }
  defer clear(plaintext)

  buf := make([]byte, saltLen+ivLen, saltLen+ivLen+len(plaintext)+tagLen)
  if _, err := io.ReadFull(rand.Reader, buf); err != nil {
    return "", fmt.Errorf("generate salt and iv: %w", err)
  }
  salt, iv := buf[:saltLen], buf[saltLen:]

  aead, err := newAEAD(password, salt)
  if err != nil {
    return "", err
  }
  sealed := aead.Seal(buf, iv, plaintext, nil)
  return VersionPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens an envelope produced by Encrypt and unmarshals the payload
// into dst.
func Decrypt(data, password string, dst any) error {
  encoded, ok := strings.CutPrefix(data, VersionPrefix)
  if !ok {
    return ErrUnsupportedFormat
  }
  raw, err := base64.StdEncoding.DecodeString(encoded)
  if err != nil {
    return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
  }
  if len(raw) < minPayloadLen {
    return ErrTooShort
  }

  salt, iv, ciphertext := raw[:saltLen], raw[saltLen:saltLen+ivLen], raw[saltLen+ivLen:]
  aead, err := newAEAD(password, salt)
  if err != nil {
    return err
  }
  plaintext, err := aead.Open(nil, iv, ciphertext, nil)
  if err != nil {
    return ErrWrongPassword
  }
  defer clear(plaintext)

  if err := json.Unmarshal(plaintext, dst); err != nil {
    return fmt.Errorf("decode backup payload: %w", err)
  }
  return nil
}

func newAEAD(password string, salt []byte) (cipher.AEAD, error) {
  key := DeriveKey(password, salt)
  defer clear(key)

  block, err := aes.NewCipher(key)
  if err != nil {
    return nil, fmt.Errorf("create cipher: %w", err)
  }
  aead, err := cipher.NewGCM(block)
  if err != nil {
    return nil, fmt.Errorf("create gcm: %w", err)
  }
  return aead, nil
}
