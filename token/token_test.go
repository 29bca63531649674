package token

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestExpired(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	tests := []struct {
		name      string
		expiresAt int64
		want      bool
	}{
		{"before expiry", now.UnixMilli() + 1, false},
		{"exactly at expiry", now.UnixMilli(), true},
		{"past expiry", now.UnixMilli() - 1, true},
		{"long before expiry", now.Add(time.Hour).UnixMilli(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := TokenSet{AccessToken: "at", ExpiresAt: tt.expiresAt}
			if got := ts.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUsable(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	tests := []struct {
		name string
		set  TokenSet
		want bool
	}{
		{
			name: "healthy unexpired token",
			set:  TokenSet{AccessToken: "at", ExpiresAt: now.Add(time.Minute).UnixMilli()},
			want: true,
		},
		{
			name: "errored set is never usable",
			set:  TokenSet{AccessToken: "at", ExpiresAt: now.Add(time.Minute).UnixMilli(), Error: ErrorRefreshAccessToken},
			want: false,
		},
		{
			name: "missing access token",
			set:  TokenSet{ExpiresAt: now.Add(time.Minute).UnixMilli()},
			want: false,
		},
		{
			name: "just past expiry within clock skew grace",
			set:  TokenSet{AccessToken: "at", ExpiresAt: now.Add(-2 * time.Second).UnixMilli()},
			want: true,
		},
		{
			name: "past expiry beyond grace",
			set:  TokenSet{AccessToken: "at", ExpiresAt: now.Add(-time.Minute).UnixMilli()},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.Usable(now); got != tt.want {
				t.Errorf("Usable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsZero(t *testing.T) {
	if !(TokenSet{}).IsZero() {
		t.Error("IsZero() = false for zero set")
	}
	if (TokenSet{AccessToken: "at"}).IsZero() {
		t.Error("IsZero() = true for non-zero set")
	}
	if (TokenSet{Error: ErrorRefreshAccessToken}).IsZero() {
		t.Error("IsZero() = true for errored set")
	}
}

func TestWithError(t *testing.T) {
	orig := TokenSet{
		IDToken:      "id",
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    42,
	}

	errored := orig.WithError(ErrorRefreshAccessToken)

	if errored.Error != ErrorRefreshAccessToken {
		t.Errorf("Error = %q, want %q", errored.Error, ErrorRefreshAccessToken)
	}
	// All other fields are preserved.
	if errored.IDToken != orig.IDToken || errored.AccessToken != orig.AccessToken ||
		errored.RefreshToken != orig.RefreshToken || errored.ExpiresAt != orig.ExpiresAt {
		t.Errorf("WithError() altered token fields: %+v", errored)
	}
	// The receiver is untouched.
	if orig.Error != ErrorNone {
		t.Error("WithError() mutated the receiver")
	}
}

func TestProject(t *testing.T) {
	tests := []struct {
		name string
		set  TokenSet
		want Session
	}{
		{
			name: "full set",
			set: TokenSet{
				IDToken:      "id",
				AccessToken:  "at",
				RefreshToken: "rt",
				ExpiresAt:    42,
			},
			want: Session{IDToken: "id", AccessToken: "at"},
		},
		{
			name: "errored set",
			set: TokenSet{
				AccessToken:  "at",
				RefreshToken: "rt",
				Error:        ErrorRefreshAccessToken,
			},
			want: Session{AccessToken: "at", Error: string(ErrorRefreshAccessToken)},
		},
		{
			name: "zero set",
			set:  TokenSet{},
			want: Session{},
		},
		{
			name: "refresh token only",
			set:  TokenSet{RefreshToken: "rt"},
			want: Session{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Project(tt.set); got != tt.want {
				t.Errorf("Project() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestProjectionNeverSerializesRefreshToken(t *testing.T) {
	set := TokenSet{
		IDToken:      "id-token-value",
		AccessToken:  "access-token-value",
		RefreshToken: "super-secret-refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour).UnixMilli(),
		Error:        ErrorRefreshAccessToken,
	}

	data, err := json.Marshal(Project(set))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	body := string(data)
	if strings.Contains(body, set.RefreshToken) {
		t.Errorf("projection JSON contains the refresh token value: %s", body)
	}
	if strings.Contains(strings.ToLower(body), "refresh") {
		t.Errorf("projection JSON contains a refresh-related key: %s", body)
	}
}
