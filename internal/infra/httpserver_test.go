package infra

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestHTTPServerShutdownBeforeStart(t *testing.T) {
	cfg := &Config{Port: "0"}
	srv := NewHTTPServer(cfg, nil, zerolog.Nop())
	if srv.Addr() != ":0" {
		t.Fatalf("Addr = %q", srv.Addr())
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
	// A server that was shut down reports a clean stop.
	if err := srv.Start(); err != nil {
		t.Fatalf("Start after Shutdown = %v, want nil", err)
	}
}
