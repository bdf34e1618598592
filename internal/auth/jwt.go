package auth

import (
	"errors"
	"time"

	"factory-backend/internal/config"
	"factory-backend/internal/timeutil"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in tokens issued by the identity service
const (
	RolePlanner  = "planner"
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

type Claims struct {
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token may run privileged operations
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

type JWTManager struct {
	secret          []byte
	issuer          string
	expirationHours int
}

func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{
		secret:          []byte(cfg.JWT.Secret),
		issuer:          cfg.JWT.Issuer,
		expirationHours: cfg.JWT.ExpirationHours,
	}
}

// GenerateToken signs a token for a user. Login lives in the identity
// service; this is used by tooling and tests that need a valid bearer token.
func (j *JWTManager) GenerateToken(userID int, email, role string) (string, error) {
	now := timeutil.Now()
	hours := j.expirationHours
	if hours <= 0 {
		hours = 24
	}

	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(hours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateToken verifies a JWT token and returns the claims
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return j.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	if j.issuer != "" && claims.Issuer != j.issuer {
		return nil, errors.New("unexpected token issuer")
	}

	return claims, nil
}
