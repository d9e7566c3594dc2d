package hubauth

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type mockJWKSServer struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	kid        string
}

func newMockJWKSServer() (*mockJWKSServer, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return &mockJWKSServer{privateKey: privateKey, publicKey: &privateKey.PublicKey, kid: "test-key-id"}, nil
}

func (m *mockJWKSServer) issueToken(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = m.kid
	return token.SignedString(m.privateKey)
}

func validatorWithMockJWKS(t *testing.T, cfg JWTCfg, server *mockJWKSServer) *JWTValidator {
	t.Helper()
	return &JWTValidator{
		cfg: cfg,
		jwks: &jwksCache{
			keys:      map[string]*rsa.PublicKey{server.kid: server.publicKey},
			lastFetch: time.Now(),
			cacheTTL:  time.Hour,
		},
	}
}

func TestValidate_DCR_SkipsAudienceValidation(t *testing.T) {
	server, err := newMockJWKSServer()
	if err != nil {
		t.Fatalf("failed to create mock JWKS server: %v", err)
	}

	cfg := JWTCfg{
		Issuer:            "https://example-tenant.authkit.app",
		AcceptedAudiences: []string{},
	}
	v := validatorWithMockJWKS(t, cfg, server)

	claims := jwt.MapClaims{
		"sub": "user_01KAHS4J1W6TT5390SR3918ZPF",
		"iss": "https://example-tenant.authkit.app",
		"aud": "client_01KABXHNQ09QGWEX4APPYG2AH5",
		"org_id": "org_01TENANT",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	tokenString, err := server.issueToken(claims)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	identity, err := v.Validate(tokenString)
	if err != nil {
		t.Fatalf("expected token to be accepted in DCR mode, got error: %v", err)
	}
	if identity.Subject != "user_01KAHS4J1W6TT5390SR3918ZPF" {
		t.Errorf("expected subject=%s, got %s", "user_01KAHS4J1W6TT5390SR3918ZPF", identity.Subject)
	}
	if identity.OrgID != "org_01TENANT" {
		t.Errorf("expected orgId=%s, got %s", "org_01TENANT", identity.OrgID)
	}
}

func TestValidate_RejectsWrongIssuer(t *testing.T) {
	server, err := newMockJWKSServer()
	if err != nil {
		t.Fatalf("failed to create mock JWKS server: %v", err)
	}

	v := validatorWithMockJWKS(t, JWTCfg{Issuer: "https://expected.authkit.app"}, server)

	claims := jwt.MapClaims{
		"sub": "user_123",
		"iss": "https://attacker.example",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	tokenString, err := server.issueToken(claims)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	if _, err := v.Validate(tokenString); err == nil {
		t.Fatal("expected issuer mismatch to be rejected")
	}
}

func TestValidate_HS256BackendToken(t *testing.T) {
	v := &JWTValidator{cfg: JWTCfg{HS256Secret: "shared-secret"}}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        "agent-service",
		"iss":        "agent-hub",
		"token_type": "backend",
		"exp":        time.Now().Add(time.Hour).Unix(),
	})
	tokenString, err := token.SignedString([]byte("shared-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	identity, err := v.Validate(tokenString)
	if err != nil {
		t.Fatalf("expected backend token to validate, got: %v", err)
	}
	if identity.Subject != "agent-service" {
		t.Errorf("expected subject=agent-service, got %s", identity.Subject)
	}
}

func TestValidate_EmptyTokenRejected(t *testing.T) {
	v := &JWTValidator{cfg: JWTCfg{}}
	if _, err := v.Validate(""); err == nil {
		t.Fatal("expected empty token to be rejected")
	}
}
