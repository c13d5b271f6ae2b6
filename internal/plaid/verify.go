package plaid

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/baely/walletsync/internal/common/errors"
)

// KeyFetcher resolves a webhook signing key by id.
type KeyFetcher interface {
	WebhookVerificationKeyGet(ctx context.Context, keyID string) (*JWK, error)
}

// Verifier checks the Plaid-Verification JWT sent with every webhook.
type Verifier struct {
	keys   KeyFetcher
	maxAge time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]*ecdsa.PublicKey
}

// NewVerifier creates a Verifier that fetches keys through keys and caches them.
func NewVerifier(keys KeyFetcher) *Verifier {
	return &Verifier{
		keys:   keys,
		maxAge: 5 * time.Minute,
		now:    time.Now,
		cache:  make(map[string]*ecdsa.PublicKey),
	}
}

// Verify checks the token signature, its age and that it was issued for body.
func (v *Verifier) Verify(ctx context.Context, body []byte, token string) error {
	if token == "" {
		return errors.Wrap(errors.ErrUnauthorized, "missing verification header")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)

	claims := jwt.MapClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid")
		}
		return v.key(ctx, kid)
	})
	if err != nil {
		return errors.Wrap(errors.ErrUnauthorized, "webhook token: %v", err)
	}

	iat, err := claims.GetIssuedAt()
	if err != nil || iat == nil {
		return errors.Wrap(errors.ErrUnauthorized, "webhook token has no iat")
	}
	if v.now().Sub(iat.Time) > v.maxAge {
		return errors.Wrap(errors.ErrUnauthorized, "webhook token older than %s", v.maxAge)
	}

	claimed, _ := claims["request_body_sha256"].(string)
	sum := sha256.Sum256(body)
	if subtle.ConstantTimeCompare([]byte(claimed), []byte(hex.EncodeToString(sum[:]))) != 1 {
		return errors.Wrap(errors.ErrUnauthorized, "webhook body hash mismatch")
	}

	return nil
}

func (v *Verifier) key(ctx context.Context, kid string) (*ecdsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if key, ok := v.cache[kid]; ok {
		return key, nil
	}

	jwk, err := v.keys.WebhookVerificationKeyGet(ctx, kid)
	if err != nil {
		return nil, errors.Wrap(err, "fetch key %s", kid)
	}
	if jwk.ExpiredAt != nil {
		return nil, fmt.Errorf("key %s expired", kid)
	}

	key, err := jwk.PublicKey()
	if err != nil {
		return nil, err
	}
	v.cache[kid] = key
	return key, nil
}

// PublicKey converts an EC P-256 JWK into an ecdsa public key.
func (k *JWK) PublicKey() (*ecdsa.PublicKey, error) {
	if k.Kty != "EC" || k.Crv != "P-256" {
		return nil, fmt.Errorf("unsupported key %s/%s", k.Kty, k.Crv)
	}
	x, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil {
		return nil, errors.Wrap(err, "decode x")
	}
	y, err := base64.RawURLEncoding.DecodeString(k.Y)
	if err != nil {
		return nil, errors.Wrap(err, "decode y")
	}
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}, nil
}
