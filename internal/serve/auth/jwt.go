package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwtgo "github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken is returned for tokens that fail signature or claim
// validation, including expired ones.
var ErrInvalidToken = errors.New("invalid token")

// JWTManagerInterface is what the authentication middleware consumes: it
// turns a bearer token into the user id it was issued for.
type JWTManagerInterface interface {
	SubjectFromToken(ctx context.Context, tokenString string) (string, error)
}

// JWTManager validates ES256 tokens against the configured public key. The
// private key is only set on the issuing side (the auth CLI); the server
// never signs.
type JWTManager struct {
	publicKey  string
	privateKey string
}

var _ JWTManagerInterface = (*JWTManager)(nil)

// NewJWTManager builds a verifying manager. The public key PEM is parsed up
// front so a malformed key fails at startup rather than on the first request.
func NewJWTManager(publicKey string) (*JWTManager, error) {
	if _, err := jwtgo.ParseECPublicKeyFromPEM([]byte(publicKey)); err != nil {
		return nil, fmt.Errorf("parsing EC256 public key: %w", err)
	}
	return &JWTManager{publicKey: publicKey}, nil
}

// NewSigningJWTManager builds an issuing manager from a private key PEM. It
// backs the `auth issue-token` command.
func NewSigningJWTManager(privateKey string) (*JWTManager, error) {
	if _, err := jwtgo.ParseECPrivateKeyFromPEM([]byte(privateKey)); err != nil {
		return nil, fmt.Errorf("parsing EC256 private key: %w", err)
	}
	return &JWTManager{privateKey: privateKey}, nil
}

// GenerateToken signs a token whose subject is the user id. Tokens carry no
// role claims: the admin flag is resolved from the user row on every request,
// so a leaked signing key cannot mint admin access beyond what the database
// says.
func (m *JWTManager) GenerateToken(ctx context.Context, userID string, expiresAt time.Time) (string, error) {
	esPrivateKey, err := jwtgo.ParseECPrivateKeyFromPEM([]byte(m.privateKey))
	if err != nil {
		return "", fmt.Errorf("parsing EC256 private key: %w", err)
	}

	c := jwtgo.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwtgo.NewNumericDate(time.Now()),
		ExpiresAt: jwtgo.NewNumericDate(expiresAt),
	}

	token := jwtgo.NewWithClaims(jwtgo.SigningMethodES256, c)
	tokenString, err := token.SignedString(esPrivateKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return tokenString, nil
}

// SubjectFromToken parses and validates the token, returning its subject.
func (m *JWTManager) SubjectFromToken(_ context.Context, tokenString string) (string, error) {
	c := &jwtgo.RegisteredClaims{}
	token, err := jwtgo.ParseWithClaims(tokenString, c, func(t *jwtgo.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtgo.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}

		esPublicKey, err := jwtgo.ParseECPublicKeyFromPEM([]byte(m.publicKey))
		if err != nil {
			return nil, fmt.Errorf("parsing EC256 public key: %w", err)
		}

		return esPublicKey, nil
	})
	if err != nil {
		vErr := &jwtgo.ValidationError{}
		if !errors.As(err, &vErr) {
			return "", fmt.Errorf("parsing token: %w", err)
		}
		if vErr.Errors == jwtgo.ValidationErrorUnverifiable {
			return "", fmt.Errorf("invalid key: %w", err)
		}

		return "", ErrInvalidToken
	}

	if !token.Valid || c.Subject == "" {
		return "", ErrInvalidToken
	}

	return c.Subject, nil
}
