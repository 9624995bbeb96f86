package auth

import (
	"strconv"
	"time"

	"github.com/SIRI-bit-tech/courier-web/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Role values carried in access tokens.
const (
	RoleCustomer = "customer"
	RoleDriver   = "driver"
	RoleAdmin    = "admin"
)

type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller. The user id always comes from the
// token's subject claim, never from a lookup of "some" user.
type Principal struct {
	UserID uint64
	Role   string
}

func (p *Principal) CanUpdateStatus() bool {
	return p != nil && (p.Role == RoleDriver || p.Role == RoleAdmin)
}

// TokenService validates HS256 access tokens issued by the account system.
type TokenService struct {
	signingKey []byte
}

func NewTokenService(signingKey string) *TokenService {
	return &TokenService{signingKey: []byte(signingKey)}
}

// Issue mints a token for tests and local tooling; the account system is the
// normal issuer.
func (s *TokenService) Issue(userID uint64, role string, ttl time.Duration) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	return tok.SignedString(s.signingKey)
}

// Validate parses the token and returns the principal from its subject claim.
func (s *TokenService) Validate(tokenString string) (*Principal, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, errors.Wrap(models.ErrAuthorization, err.Error())
	}
	if !parsed.Valid {
		return nil, errors.Wrap(models.ErrAuthorization, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, errors.Wrap(models.ErrAuthorization, "missing subject claim")
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, errors.Wrap(models.ErrAuthorization, "bad subject claim")
	}

	return &Principal{UserID: userID, Role: claims.Role}, nil
}
