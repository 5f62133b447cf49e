package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-shared-secret"

func signedServiceToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": subject})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func protectedEcho(t *testing.T) http.Handler {
	return ServiceAuthMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callerID, ok := GetCallerID(r.Context())
		if !ok {
			t.Fatal("caller id missing from context")
		}
		w.Write([]byte(callerID))
	}))
}

func TestServiceAuthMiddlewareAcceptsValidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/distributions", nil)
	req.Header.Set("Authorization", "Bearer "+signedServiceToken(t, testSecret, "platform-gateway"))
	rec := httptest.NewRecorder()

	protectedEcho(t).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "platform-gateway" {
		t.Fatalf("expected caller id in context, got %q", rec.Body.String())
	}
}

func TestServiceAuthMiddlewareRejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not bearer", header: "Basic abc"},
		{name: "wrong secret", header: "Bearer " + signedServiceToken(t, "other-secret", "platform-gateway")},
		{name: "garbage token", header: "Bearer not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/distributions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			protectedEcho(t).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestServiceAuthMiddlewareRequiresSubject(t *testing.T) {
	token := jwt.New(jwt.SigningMethodHS256)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/distributions", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()

	protectedEcho(t).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing sub claim, got %d", rec.Code)
	}
}
