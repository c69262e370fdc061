package auth

import (
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestAccessToken_RoundTrip(t *testing.T) {
	token, err := NewAccessToken("user-1", "pub@x.com", RolePublisher, testSecret, time.Minute)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}

	claims, err := Parse(token, testSecret)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Sub != "user-1" || claims.Email != "pub@x.com" || claims.Role != RolePublisher {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParse_Rejects(t *testing.T) {
	valid, _ := NewAccessToken("user-1", "pub@x.com", RolePublisher, testSecret, time.Minute)
	expired, _ := NewAccessToken("user-1", "pub@x.com", RolePublisher, testSecret, -time.Minute)
	badRole, _ := NewAccessToken("user-1", "pub@x.com", Role("superuser"), testSecret, time.Minute)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "other-secret"},
		{"expired", expired, testSecret},
		{"unknown role", badRole, testSecret},
		{"garbage", "not-a-token", testSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.token, tt.secret); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestAllows(t *testing.T) {
	tests := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RolePublisher, CapViewStalls, true},
		{RolePublisher, CapReserveStalls, true},
		{RolePublisher, CapManageReservations, false},
		{RoleAdmin, CapReserveStalls, true},
		{RoleAdmin, CapManageReservations, true},
		{Role("guest"), CapViewStalls, false},
	}

	for _, tt := range tests {
		if got := Allows(tt.role, tt.cap); got != tt.want {
			t.Errorf("Allows(%s, %s) = %v, want %v", tt.role, tt.cap, got, tt.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole(" Admin "); !ok || r != RoleAdmin {
		t.Errorf("ParseRole(Admin) = %q, %v", r, ok)
	}
	if _, ok := ParseRole("rider"); ok {
		t.Error("rider should not parse")
	}
}
