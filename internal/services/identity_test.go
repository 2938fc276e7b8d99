package services

import "testing"

func TestNormalizeClaimValue(t *testing.T) {
	cases := []struct {
		name      string
		claimType string
		value     string
		want      string
		wantErr   bool
	}{
		{name: "email lowered", claimType: "email", value: " Jane.Doe@Example.COM ", want: "jane.doe@example.com"},
		{name: "phone keeps leading plus", claimType: "phone", value: "+1 (415) 555-0134", want: "+14155550134"},
		{name: "phone strips interior plus", claimType: "phone", value: "415+555+0134", want: "4155550134"},
		{name: "phone without digits", claimType: "phone", value: "ext.", wantErr: true},
		{name: "name collapses whitespace", claimType: "name", value: "  Jane   DOE ", want: "jane doe"},
		{name: "handle lowered", claimType: "handle", value: "@JaneD", want: "@janed"},
		{name: "domain strips www", claimType: "domain", value: "WWW.Example.com", want: "example.com"},
		{name: "domain strips scheme and slash", claimType: "domain", value: "https://www.example.com/", want: "example.com"},
		{name: "domain strips plain http", claimType: "domain", value: "http://example.com", want: "example.com"},
		{name: "domain reduced to nothing", claimType: "domain", value: "https://", wantErr: true},
		{name: "alias collapses whitespace", claimType: "alias", value: "  The   Client ", want: "the client"},
		{name: "external id kept verbatim", claimType: "external_id", value: "JIRA-1042", want: "JIRA-1042"},
		{name: "empty value", claimType: "email", value: "   ", wantErr: true},
		{name: "unknown type", claimType: "ssn", value: "123", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeClaimValue(tc.claimType, tc.value)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("NormalizeClaimValue(%q, %q): expected error, got %q", tc.claimType, tc.value, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeClaimValue(%q, %q): %v", tc.claimType, tc.value, err)
			}
			if got != tc.want {
				t.Fatalf("NormalizeClaimValue(%q, %q): want=%q got=%q", tc.claimType, tc.value, tc.want, got)
			}
		})
	}
}

func TestNormalizeClaimValueIdempotent(t *testing.T) {
	for _, pair := range [][2]string{
		{"email", "Jane.Doe@Example.com"},
		{"phone", "+1 415 555 0134"},
		{"name", "  Jane  Doe "},
		{"domain", "https://www.example.com/"},
		{"alias", "  The  Client "},
	} {
		once, err := NormalizeClaimValue(pair[0], pair[1])
		if err != nil {
			t.Fatalf("first pass %q: %v", pair[1], err)
		}
		twice, err := NormalizeClaimValue(pair[0], once)
		if err != nil {
			t.Fatalf("second pass %q: %v", once, err)
		}
		if once != twice {
			t.Fatalf("normalization not idempotent for %q: %q != %q", pair[1], once, twice)
		}
	}
}

func TestEmailDomain(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"jane@acme.io", "acme.io"},
		{"weird@user@acme.io", "acme.io"},
		{"noat", ""},
		{"trailing@", ""},
	}
	for _, tc := range cases {
		if got := emailDomain(tc.in); got != tc.want {
			t.Fatalf("emailDomain(%q): want=%q got=%q", tc.in, tc.want, got)
		}
	}
}
