package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCodecRoundTrip(t *testing.T) {
	codec, err := NewCodec("test-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	orgID := int64(7)
	cases := []struct {
		name  string
		claim Claim
	}{
		{name: "user claim", claim: Claim{SubjectID: 42}},
		{name: "member claim", claim: Claim{SubjectID: 42, OrganizationID: &orgID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := codec.Issue(tc.claim)
			if err != nil {
				t.Fatalf("Issue: %v", err)
			}
			got, err := codec.Verify(token)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if got.SubjectID != tc.claim.SubjectID {
				t.Fatalf("subject mismatch: got %d want %d", got.SubjectID, tc.claim.SubjectID)
			}
			if (got.OrganizationID == nil) != (tc.claim.OrganizationID == nil) {
				t.Fatalf("organization presence mismatch")
			}
			if got.OrganizationID != nil && *got.OrganizationID != *tc.claim.OrganizationID {
				t.Fatalf("organization mismatch: got %d want %d", *got.OrganizationID, *tc.claim.OrganizationID)
			}
		})
	}
}

func TestCodecRejectsTamperedToken(t *testing.T) {
	codec, err := NewCodec("test-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	token, err := codec.Issue(Claim{SubjectID: 42})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Flip one byte in the payload segment.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d segments", len(parts))
	}
	payload := []byte(parts[1])
	if payload[3] == 'A' {
		payload[3] = 'B'
	} else {
		payload[3] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := codec.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestCodecRejectsExpiredToken(t *testing.T) {
	issued := time.Now().Add(-48 * time.Hour)
	past, err := NewCodec("test-secret", WithClock(func() time.Time { return issued }))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	token, err := past.Issue(Claim{SubjectID: 42})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	codec, err := NewCodec("test-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	if _, err := codec.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestCodecRejectsWrongSecret(t *testing.T) {
	issuerCodec, err := NewCodec("secret-a")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	token, err := issuerCodec.Issue(Claim{SubjectID: 42})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	verifier, err := NewCodec("secret-b")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestCodecRejectsMalformedClaims(t *testing.T) {
	codec, err := NewCodec("test-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	cases := []struct {
		name  string
		claim Claim
	}{
		{name: "zero subject", claim: Claim{}},
		{name: "negative subject", claim: Claim{SubjectID: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := codec.Issue(tc.claim); err == nil {
				t.Fatalf("expected issue failure")
			}
		})
	}

	if _, err := codec.Verify(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty token, got %v", err)
	}
	if _, err := codec.Verify("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage token, got %v", err)
	}
}
