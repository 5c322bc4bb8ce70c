package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testKey = []byte("test-signing-key")

func sign(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestJWTAuthenticator(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	a := NewJWTAuthenticator(JWTConfig{
		Issuer:   "partsource-test",
		Audience: "partsource",
		Now:      func() time.Time { return now },
	}, NewStaticKeyProvider(testKey))
	ctx := context.Background()

	good := jwt.MapClaims{
		"sub":   "alice",
		"iss":   "partsource-test",
		"aud":   "partsource",
		"roles": []any{"operator", "reader"},
		"exp":   now.Add(time.Hour).Unix(),
	}

	t.Run("valid", func(t *testing.T) {
		res, err := a.Authenticate(ctx, header("Authorization", "Bearer "+sign(t, good, jwt.SigningMethodHS256, testKey)))
		if err != nil || !res.Authenticated {
			t.Fatalf("Authenticate() = %+v, %v", res, err)
		}
		id := res.Identity
		if id.Principal != "alice" || !id.HasRole("operator") || id.Method != MethodJWT {
			t.Errorf("Identity = %+v", id)
		}
		if !id.ExpiresAt.Equal(now.Add(time.Hour)) {
			t.Errorf("ExpiresAt = %v", id.ExpiresAt)
		}
	})

	failures := []struct {
		name    string
		mutate  func(jwt.MapClaims)
		key     []byte
		wantErr error
	}{
		{"expired", func(c jwt.MapClaims) { c["exp"] = now.Add(-time.Minute).Unix() }, testKey, ErrTokenExpired},
		{"wrong issuer", func(c jwt.MapClaims) { c["iss"] = "other" }, testKey, ErrInvalidCredentials},
		{"wrong audience", func(c jwt.MapClaims) { c["aud"] = "other" }, testKey, ErrInvalidCredentials},
		{"bad signature", func(jwt.MapClaims) {}, []byte("other-key"), ErrInvalidCredentials},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			claims := jwt.MapClaims{}
			for k, v := range good {
				claims[k] = v
			}
			tt.mutate(claims)
			res, err := a.Authenticate(ctx, header("Authorization", "Bearer "+sign(t, claims, jwt.SigningMethodHS256, tt.key)))
			if err != nil {
				t.Fatal(err)
			}
			if res.Authenticated || !errors.Is(res.Error, tt.wantErr) {
				t.Errorf("result = %+v, want %v", res, tt.wantErr)
			}
		})
	}

	t.Run("malformed", func(t *testing.T) {
		res, _ := a.Authenticate(ctx, header("Authorization", "Bearer not.a.jwt"))
		if res.Authenticated || !errors.Is(res.Error, ErrTokenMalformed) {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if a.Supports(ctx, header("Authorization", "Basic abc")) {
			t.Error("Supports() should ignore non-bearer schemes")
		}
		res, _ := a.Authenticate(ctx, header())
		if res.Authenticated || !errors.Is(res.Error, ErrMissingCredentials) {
			t.Errorf("result = %+v", res)
		}
	})
}

func TestJWTAuthenticator_StringRoles(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{RolesClaim: "scope"}, NewStaticKeyProvider(testKey))
	tok := sign(t, jwt.MapClaims{"sub": "svc", "scope": "reader operator"}, jwt.SigningMethodHS256, testKey)

	res, err := a.Authenticate(context.Background(), header("Authorization", "bearer "+tok))
	if err != nil || !res.Authenticated {
		t.Fatalf("Authenticate() = %+v, %v", res, err)
	}
	if !res.Identity.HasRole("operator") {
		t.Errorf("Roles = %v", res.Identity.Roles)
	}
}

func TestStaticKeyProvider_Empty(t *testing.T) {
	if _, err := NewStaticKeyProvider(nil).GetKey(context.Background(), ""); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("GetKey() error = %v", err)
	}
}
