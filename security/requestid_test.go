package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateRequestID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if !requestIDPattern.MatchString(id) {
			t.Fatalf("generated request ID %q does not match the accepted pattern", id)
		}
		if seen[id] {
			t.Fatalf("duplicate request ID generated: %q", id)
		}
		seen[id] = true
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if got := GetRequestID(ctx); got != "" {
		t.Errorf("GetRequestID on empty context = %q, want empty", got)
	}

	ctx = WithRequestID(ctx, "req-123")
	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("GetRequestID() = %q, want %q", got, "req-123")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		preserve bool
	}{
		{name: "no incoming ID"},
		{name: "valid incoming ID preserved", incoming: "upstream-id_42", preserve: true},
		{name: "ID with CRLF replaced", incoming: "bad\r\nid"},
		{name: "ID with spaces replaced", incoming: "bad id"},
		{name: "overlong ID replaced", incoming: strings.Repeat("a", 129)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctxID string
			handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctxID = GetRequestID(r.Context())
			}))

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				r.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			headerID := w.Header().Get(RequestIDHeader)
			if headerID == "" {
				t.Fatal("response is missing the request ID header")
			}
			if headerID != ctxID {
				t.Errorf("header ID %q does not match context ID %q", headerID, ctxID)
			}
			if !requestIDPattern.MatchString(headerID) {
				t.Errorf("propagated request ID %q does not match the accepted pattern", headerID)
			}

			if tt.preserve {
				if headerID != tt.incoming {
					t.Errorf("valid upstream ID %q was replaced with %q", tt.incoming, headerID)
				}
			} else if tt.incoming != "" && headerID == tt.incoming {
				t.Errorf("malformed upstream ID %q was not replaced", tt.incoming)
			}
		})
	}
}
