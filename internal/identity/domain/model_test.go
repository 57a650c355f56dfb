package domain

import (
	"context"
	"testing"
)

func TestOrganizationSuspended(t *testing.T) {
	cases := []struct {
		name string
		org  *Organization
		want bool
	}{
		{name: "nil", org: nil, want: false},
		{name: "no metadata", org: &Organization{ID: "org_1"}, want: false},
		{name: "active", org: &Organization{PublicMetadata: map[string]any{"status": "active"}}, want: false},
		{name: "suspended", org: &Organization{PublicMetadata: map[string]any{"status": "suspended"}}, want: true},
		{name: "suspended mixed case", org: &Organization{PublicMetadata: map[string]any{"status": " Suspended "}}, want: true},
		{name: "non string", org: &Organization{PublicMetadata: map[string]any{"status": true}}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.org.Suspended(); got != tc.want {
				t.Fatalf("Suspended() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSessionIsAdmin(t *testing.T) {
	for role, want := range map[string]bool{
		"org:admin":  true,
		"admin":      true,
		"org:member": false,
		"":           false,
	} {
		if got := (Session{OrgRole: role}).IsAdmin(); got != want {
			t.Fatalf("IsAdmin(%q) = %v, want %v", role, got, want)
		}
	}
}

func TestSessionContextRoundTrip(t *testing.T) {
	if _, ok := SessionFromContext(context.Background()); ok {
		t.Fatalf("expected no session")
	}
	ctx := WithSession(context.Background(), Session{UserID: "user_1", OrgID: "org_1"})
	s, ok := SessionFromContext(ctx)
	if !ok || s.OrgID != "org_1" {
		t.Fatalf("unexpected session %+v", s)
	}
}
