package jwtutil

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndParse(t *testing.T) {
	token, err := GenerateToken("secret-a", time.Hour, 42)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := ParseToken("secret-a", token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	id, err := claims.UserID()
	if err != nil || id != 42 {
		t.Fatalf("UserID = %d, %v; want 42", id, err)
	}
	if claims.Subject != "42" {
		t.Errorf("subject = %q, want decimal string", claims.Subject)
	}
}

func TestParseRejects(t *testing.T) {
	valid, _ := GenerateToken("secret-a", time.Hour, 7)
	expired, _ := GenerateToken("secret-a", -time.Minute, 7)

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{"wrong secret", "secret-b", valid},
		{"expired", "secret-a", expired},
		{"garbage", "secret-a", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.secret, tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}
