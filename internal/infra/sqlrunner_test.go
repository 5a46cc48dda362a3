package infra

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestExtractMarker(t *testing.T) {
	query := "\n--sql 0b4fd0a5-5c8b-4a55-9e0c-3a1b3d7a9e11\nSELECT 1\n"
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		t.Fatalf("extractMarker returned error: %v", err)
	}
	if marker != "0b4fd0a5-5c8b-4a55-9e0c-3a1b3d7a9e11" {
		t.Fatalf("marker = %q", marker)
	}
	if trimmed != "SELECT 1" {
		t.Fatalf("trimmed = %q", trimmed)
	}
}

func TestExtractMarkerRejectsMissingMarker(t *testing.T) {
	for _, q := range []string{"SELECT 1", "--sql not-a-uuid\nSELECT 1", ""} {
		if _, _, err := extractMarker(q); err == nil {
			t.Fatalf("expected error for %q", q)
		}
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)) {
		t.Fatal("wrapped ErrNoRows not detected")
	}
	if IsNoRows(fmt.Errorf("boom")) {
		t.Fatal("unexpected match")
	}
}
