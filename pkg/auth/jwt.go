package auth

import (
	"time"

	"github.com/freitasmatheusrn/catalog-reconciler/pkg/rest"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// JWTCustomClaims identifies the calling system (SAP middleware, an
// operator script) rather than a person.
type JWTCustomClaims struct {
	Service string `json:"service"`
	jwt.RegisteredClaims
}

// NewClaims builds claims for service. A tokenExp of 0 issues a token
// without expiry.
func NewClaims(service string, tokenExp int) *JWTCustomClaims {
	now := time.Now()
	claims := &JWTCustomClaims{
		Service: service,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  service,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if tokenExp > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(time.Second * time.Duration(tokenExp)))
	}
	return claims
}

func GenerateJWT(claims *JWTCustomClaims, jwtSecret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		return "", err
	}
	return t, nil
}

func GetClaims(c echo.Context) (*JWTCustomClaims, *rest.ApiErr) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return nil, rest.NewUnauthorizedRequestError("token inválido")
	}

	claims, ok := token.Claims.(*JWTCustomClaims)
	if !ok {
		return nil, rest.NewUnauthorizedRequestError("claims inválidas")
	}
	return claims, nil
}

// GetService returns the calling service name from a validated token.
func GetService(c echo.Context) (string, *rest.ApiErr) {
	claims, apiErr := GetClaims(c)
	if apiErr != nil {
		return "", apiErr
	}
	if claims.Service == "" {
		return "", rest.NewUnauthorizedRequestError("claims inválidas")
	}
	return claims.Service, nil
}
