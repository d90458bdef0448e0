package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func generateRSAKeyPair(t testing.TB) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate key pair: %v", err)
	}
	return privateKey, &privateKey.PublicKey
}

func createJWKS(t testing.TB, publicKey *rsa.PublicKey) jwk.Set {
	t.Helper()

	key, err := jwk.FromRaw(publicKey)
	if err != nil {
		t.Fatalf("Failed to wrap public key: %v", err)
	}
	if err := key.Set(jwk.KeyIDKey, "test-key-id"); err != nil {
		t.Fatalf("Failed to set key id: %v", err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
		t.Fatalf("Failed to set algorithm: %v", err)
	}

	keyset := jwk.NewSet()
	if err := keyset.AddKey(key); err != nil {
		t.Fatalf("Failed to add key: %v", err)
	}
	return keyset
}

func createTestJWT(t testing.TB, privateKey *rsa.PrivateKey, issuer, audience, subject string, claims map[string]any) string {
	t.Helper()

	token := jwt.New()
	must := func(key string, value any) {
		if err := token.Set(key, value); err != nil {
			t.Fatalf("Failed to set %s claim: %v", key, err)
		}
	}
	must(jwt.IssuerKey, issuer)
	must(jwt.AudienceKey, audience)
	must(jwt.SubjectKey, subject)
	must(jwt.IssuedAtKey, time.Now())
	must(jwt.ExpirationKey, time.Now().Add(time.Hour))
	for key, value := range claims {
		must(key, value)
	}

	key, err := jwk.FromRaw(privateKey)
	if err != nil {
		t.Fatalf("Failed to wrap private key: %v", err)
	}
	if err := key.Set(jwk.KeyIDKey, "test-key-id"); err != nil {
		t.Fatalf("Failed to set key id: %v", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, key))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return string(signed)
}

func setupTestValidator(t testing.TB) (*JWTValidator, *rsa.PrivateKey, string, string) {
	t.Helper()

	privateKey, publicKey := generateRSAKeyPair(t)
	keyset := createJWKS(t, publicKey)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/jwks.json" {
			http.NotFound(w, r)
			return
		}

		keysetJSON, err := json.Marshal(keyset)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(keysetJSON)
	}))
	t.Cleanup(server.Close)

	issuer := "https://test-issuer.com"
	audience := "quoter-api"

	validator, err := NewJWTValidator(server.URL+"/.well-known/jwks.json", issuer, audience)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	return validator, privateKey, issuer, audience
}
