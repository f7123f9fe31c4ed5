package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func TestGenerateJWT_RoundTrip(t *testing.T) {
	signed, err := GenerateJWT(NewClaims("sap", 60), "secret")
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	token, err := jwt.ParseWithClaims(signed, new(JWTCustomClaims), func(*jwt.Token) (any, error) {
		return []byte("secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.Set("user", token)

	service, apiErr := GetService(c)
	if apiErr != nil || service != "sap" {
		t.Errorf("service = %q, err = %v", service, apiErr)
	}
}

func TestNewClaims_NoExpiry(t *testing.T) {
	if c := NewClaims("ops", 0); c.ExpiresAt != nil {
		t.Errorf("expires at = %v", c.ExpiresAt)
	}
}

func TestGetService_MissingToken(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if _, apiErr := GetService(c); apiErr == nil || apiErr.Code != http.StatusUnauthorized {
		t.Errorf("err = %v", apiErr)
	}
}
