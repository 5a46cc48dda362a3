package upload

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DefaultCredentialTTL matches the provider's maximum signature lifetime.
const DefaultCredentialTTL = 30 * time.Minute

var (
	ErrInvalidSignature = errors.New("upload: invalid signature")
	ErrExpiredToken     = errors.New("upload: credentials expired")
)

// HMACSigner issues ImageKit-style upload credentials: a random token, an
// expiry in unix seconds, and hex(HMAC-SHA1(privateKey, token+expire)).
type HMACSigner struct {
	publicKey  string
	privateKey []byte
	ttl        time.Duration
	now        func() time.Time
}

// NewHMACSigner returns a signer. ttl <= 0 uses DefaultCredentialTTL.
func NewHMACSigner(publicKey, privateKey string, ttl time.Duration) (*HMACSigner, error) {
	if privateKey == "" {
		return nil, errors.New("upload: private key is required")
	}
	if ttl <= 0 {
		ttl = DefaultCredentialTTL
	}
	return &HMACSigner{publicKey: publicKey, privateKey: []byte(privateKey), ttl: ttl, now: time.Now}, nil
}

// Issue implements Issuer.
func (s *HMACSigner) Issue(ctx context.Context) (Credentials, error) {
	if err := ctx.Err(); err != nil {
		return Credentials{}, err
	}
	token := uuid.NewString()
	expire := s.now().Add(s.ttl).Unix()
	return Credentials{
		Token:     token,
		Expire:    expire,
		Signature: s.sign(token, expire),
		PublicKey: s.publicKey,
	}, nil
}

// Verify checks the signature and expiry of credentials issued by this signer.
func (s *HMACSigner) Verify(c Credentials) error {
	expected := s.sign(c.Token, c.Expire)
	if !hmac.Equal([]byte(expected), []byte(c.Signature)) {
		return ErrInvalidSignature
	}
	if s.now().Unix() > c.Expire {
		return ErrExpiredToken
	}
	return nil
}

func (s *HMACSigner) sign(token string, expire int64) string {
	mac := hmac.New(sha1.New, s.privateKey)
	mac.Write([]byte(token + strconv.FormatInt(expire, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

var _ Issuer = (*HMACSigner)(nil)
