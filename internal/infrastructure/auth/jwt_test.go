package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iho/khata/internal/domain"
	"github.com/iho/khata/internal/infrastructure/auth"
)

func TestJWTManagerGenerateAndVerify(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("super-secret", time.Minute)
	actor := domain.Actor{UserID: "user-123", ShopID: "shop-1", Role: domain.RoleStaff}

	token, err := manager.Generate(actor)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	claims, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("expected token to verify, got %v", err)
	}

	if claims.Actor() != actor {
		t.Fatalf("expected claims to match actor, got %+v", claims)
	}
}

func TestJWTManagerGenerateRequiresShop(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("secret", time.Minute)
	if _, err := manager.Generate(domain.Actor{UserID: "u", Role: domain.RoleOwner}); !errors.Is(err, domain.ErrMissingShop) {
		t.Fatalf("expected ErrMissingShop, got %v", err)
	}
	if _, err := manager.Generate(domain.Actor{UserID: "u", ShopID: "s", Role: "root"}); !errors.Is(err, domain.ErrInsufficientRole) {
		t.Fatalf("expected ErrInsufficientRole, got %v", err)
	}
}

func TestJWTManagerVerifyErrors(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("secret", time.Minute)

	sign := func(claims auth.Claims, method jwt.SigningMethod, key any) string {
		t.Helper()
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return token
	}

	expired := sign(auth.Claims{
		UserID: "u", ShopID: "shop-1", Role: domain.RoleViewer,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	}, jwt.SigningMethodHS256, []byte("secret"))

	noShop := sign(auth.Claims{
		UserID: "u", Role: domain.RoleViewer,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
	}, jwt.SigningMethodHS256, []byte("secret"))

	otherKey := sign(auth.Claims{
		UserID: "u", ShopID: "shop-1", Role: domain.RoleViewer,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
	}, jwt.SigningMethodHS256, []byte("other"))

	unsigned := sign(auth.Claims{UserID: "u", ShopID: "shop-1", Role: domain.RoleOwner}, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"expired", expired, domain.ErrExpiredToken},
		{"missing shop", noShop, domain.ErrInvalidToken},
		{"wrong key", otherKey, domain.ErrInvalidToken},
		{"alg none", unsigned, domain.ErrInvalidToken},
		{"garbage", "not-a-token", domain.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := manager.Verify(tt.token); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
