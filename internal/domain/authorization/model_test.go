package authorization

import (
	"reflect"
	"testing"
	"time"
)

func TestAuthorization_State(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name      string
		active    bool
		revokedAt *time.Time
		want      State
	}{
		{"active", true, nil, StateActive},
		{"superseded", false, nil, StateSuperseded},
		{"revoked", false, &now, StateRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Authorization{IsActive: tt.active, RevokedAt: tt.revokedAt}
			if got := a.State(); got != tt.want {
				t.Errorf("State() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeScopes(t *testing.T) {
	tests := []struct {
		name   string
		scopes []string
		want   []string
	}{
		{"deduplicates", []string{"openid", "openid", "email"}, []string{"openid", "email"}},
		{"drops empty and whitespace", []string{"openid", "", "  ", "email"}, []string{"openid", "email"}},
		{"preserves order", []string{"email", "openid"}, []string{"email", "openid"}},
		{"empty input", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeScopes(tt.scopes); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalizeScopes(%v) = %v, want %v", tt.scopes, got, tt.want)
			}
		})
	}
}

func TestHasAddedScopes(t *testing.T) {
	tests := []struct {
		name      string
		existing  []string
		requested []string
		want      bool
	}{
		{"new scope", []string{"openid"}, []string{"openid", "email"}, true},
		{"same scopes", []string{"openid", "email"}, []string{"email", "openid"}, false},
		{"subset is not an addition", []string{"openid", "email"}, []string{"openid"}, false},
		{"first grant", nil, []string{"openid"}, true},
		{"empty request", []string{"openid"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasAddedScopes(tt.existing, tt.requested); got != tt.want {
				t.Errorf("hasAddedScopes(%v, %v) = %v, want %v", tt.existing, tt.requested, got, tt.want)
			}
		})
	}
}

func TestGrantNotification_IsNewGrant(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		token string
		want  bool
	}{
		{"fresh consent", "code-1", "", true},
		{"token exchange", "code-1", "at-1", false},
		{"refresh", "", "at-1", false},
		{"empty notification", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := GrantNotification{AuthorizationCode: tt.code, AccessToken: tt.token}
			if got := n.IsNewGrant(); got != tt.want {
				t.Errorf("IsNewGrant() = %v, want %v", got, tt.want)
			}
		})
	}
}
