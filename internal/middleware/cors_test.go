package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{name: "listed origin", allowed: []string{"https://app.example"}, origin: "https://app.example", want: "https://app.example"},
		{name: "unlisted origin", allowed: []string{"https://app.example"}, origin: "https://evil.example", want: ""},
		{name: "wildcard", allowed: []string{"*"}, origin: "https://any.example", want: "https://any.example"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := CORS(tc.allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			req := httptest.NewRequest(http.MethodOptions, "/api/usage", nil)
			req.Header.Set("Origin", tc.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusNoContent {
				t.Fatalf("preflight status = %d", rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.want {
				t.Fatalf("allow origin = %q, want %q", got, tc.want)
			}
		})
	}
}
