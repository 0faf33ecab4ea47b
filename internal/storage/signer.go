package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const signedURLIssuer = "interior-ledger/files"

// URLSigner issues and checks HS256 tokens naming a single object.
type URLSigner struct {
	secret []byte
	now    func() time.Time
}

type objectClaims struct {
	jwt.RegisteredClaims
	Bucket string `json:"bkt"`
	Path   string `json:"path"`
}

func NewURLSigner(secret string, now func() time.Time) *URLSigner {
	if now == nil {
		now = time.Now
	}
	return &URLSigner{secret: []byte(secret), now: now}
}

func (s *URLSigner) Sign(bucket, objectPath string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("ttl must be positive")
	}
	now := s.now()
	claims := objectClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    signedURLIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Bucket: bucket,
		Path:   objectPath,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign object url: %w", err)
	}
	return token, nil
}

// Verify returns the bucket and path a token was issued for.
func (s *URLSigner) Verify(token string) (string, string, error) {
	var claims objectClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(signedURLIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Bucket == "" || claims.Path == "" {
		return "", "", ErrInvalidToken
	}
	return claims.Bucket, claims.Path, nil
}
