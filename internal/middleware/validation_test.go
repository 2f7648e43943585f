package middleware

import (
	"strings"
	"testing"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"valid", "prov-123", "prov-123", false},
		{"valid with dots", "npi.1234567890", "npi.1234567890", false},
		{"trims whitespace", "  plan_A  ", "plan_A", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"too long", strings.Repeat("a", 65), "", true},
		{"invalid chars", "prov/123", "", true},
		{"sql injection attempt", "x'; DROP TABLE--", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := ValidateID(tt.input, "providerId", MaxProviderIDLen)
			if (msg != "") != tt.wantErr {
				t.Fatalf("ValidateID(%q) error = %q, wantErr %v", tt.input, msg, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ValidateID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateIDPerFieldLimit(t *testing.T) {
	// The limit is the caller's, not a global: an ID over the supplied
	// bound fails even if it would fit another field's bound.
	id := strings.Repeat("a", 20)
	if _, msg := ValidateID(id, "shortId", 10); msg == "" {
		t.Error("ID over the per-field limit should fail")
	}
	if got, msg := ValidateID(id, "longId", 64); msg != "" || got != id {
		t.Errorf("ID within the per-field limit rejected: %q / %q", got, msg)
	}
	if _, msg := ValidateID(id, "shortId", 10); !strings.Contains(msg, "10") {
		t.Errorf("error message should name the limit, got %q", msg)
	}
}

func TestValidateOptionalID(t *testing.T) {
	if got, msg := ValidateOptionalID("", "locationId", MaxLocationIDLen); got != "" || msg != "" {
		t.Errorf("empty optional ID should pass, got %q / %q", got, msg)
	}
	if _, msg := ValidateOptionalID("bad id", "locationId", MaxLocationIDLen); msg == "" {
		t.Error("invalid optional ID should fail")
	}
	if _, msg := ValidateOptionalID(strings.Repeat("a", MaxLocationIDLen+1), "locationId", MaxLocationIDLen); msg == "" {
		t.Error("overlong optional ID should fail")
	}
}

func TestValidateBotToken(t *testing.T) {
	if got, msg := ValidateBotToken("  tok  "); msg != "" || got != "tok" {
		t.Errorf("token should be trimmed, got %q / %q", got, msg)
	}
	if got, msg := ValidateBotToken(""); msg != "" || got != "" {
		t.Errorf("empty token is allowed at validation, got %q / %q", got, msg)
	}
	if _, msg := ValidateBotToken(strings.Repeat("x", MaxBotTokenLen+1)); msg == "" {
		t.Error("token over the limit should fail")
	}
}

func TestValidateClaimID(t *testing.T) {
	valid := "550e8400-e29b-41d4-a716-446655440000"
	if got, msg := ValidateClaimID(valid); msg != "" || got != valid {
		t.Errorf("valid UUID rejected: %q / %q", got, msg)
	}
	if got, msg := ValidateClaimID(strings.ToUpper(valid)); msg != "" || got != valid {
		t.Errorf("uppercase UUID should normalize: %q / %q", got, msg)
	}
	for _, bad := range []string{"", "not-a-uuid", "550e8400e29b41d4a716446655440000"} {
		if _, msg := ValidateClaimID(bad); msg == "" {
			t.Errorf("ValidateClaimID(%q) should fail", bad)
		}
	}
}

func TestValidateClaimValue(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"ACCEPTED", "ACCEPTED", false},
		{"NOT_ACCEPTED", "NOT_ACCEPTED", false},
		{"accepted", "ACCEPTED", false},
		{" not_accepted ", "NOT_ACCEPTED", false},
		{"", "", true},
		{"MAYBE", "", true},
	}
	for _, tt := range tests {
		got, msg := ValidateClaimValue(tt.input)
		if (msg != "") != tt.wantErr {
			t.Errorf("ValidateClaimValue(%q) error = %q, wantErr %v", tt.input, msg, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ValidateClaimValue(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidateSource(t *testing.T) {
	if got, msg := ValidateSource(""); got != "" || msg != "" {
		t.Errorf("empty source should pass through, got %q / %q", got, msg)
	}
	if got, msg := ValidateSource("crowdsource"); msg != "" || got != "CROWDSOURCE" {
		t.Errorf("source should normalize to upper: %q / %q", got, msg)
	}
	if _, msg := ValidateSource("GOSSIP"); msg == "" {
		t.Error("unknown source should fail")
	}
}

func TestValidateDirection(t *testing.T) {
	for _, ok := range []string{"up", "down", " UP "} {
		if _, msg := ValidateDirection(ok); msg != "" {
			t.Errorf("ValidateDirection(%q) unexpected error %q", ok, msg)
		}
	}
	for _, bad := range []string{"", "sideways", "upvote"} {
		if _, msg := ValidateDirection(bad); msg == "" {
			t.Errorf("ValidateDirection(%q) should fail", bad)
		}
	}
}

func TestValidateContact(t *testing.T) {
	if got := ValidateContact("  a@b.com  "); got != "a@b.com" {
		t.Errorf("contact should be trimmed, got %q", got)
	}
	long := strings.Repeat("x", MaxContactLen+50)
	if got := ValidateContact(long); len(got) != MaxContactLen {
		t.Errorf("contact should be truncated to %d, got %d", MaxContactLen, len(got))
	}
}
