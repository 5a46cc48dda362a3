package main

import (
	"testing"

	"lumina/internal/catalog"
)

func TestEffectIDs(t *testing.T) {
	cat := catalog.Default()
	tests := []struct {
		name    string
		raw     string
		prompts map[string]string
		want    int
		wantErr bool
	}{
		{name: "plain effects", raw: "e-bgremove, e-upscale", want: 2},
		{name: "prompt effect with prompt", raw: "e-edit", prompts: map[string]string{"e-edit": "remove the hat"}, want: 1},
		{name: "prompt effect without prompt", raw: "e-edit", wantErr: true},
		{name: "unknown effect", raw: "e-nope", wantErr: true},
		{name: "empty", raw: " , ", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ids, err := effectIDs(cat, tc.raw, tc.prompts)
			if (err != nil) != tc.wantErr {
				t.Fatalf("effectIDs error = %v, wantErr %v", err, tc.wantErr)
			}
			if len(ids) != tc.want {
				t.Fatalf("ids = %v", ids)
			}
		})
	}
}

func TestPromptFlags(t *testing.T) {
	p := promptFlags{}
	if err := p.Set("e-edit= remove the hat "); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if p["e-edit"] != "remove the hat" {
		t.Fatalf("prompt = %q", p["e-edit"])
	}
	if err := p.Set("no-separator"); err == nil {
		t.Fatal("expected error")
	}
}
