package transform

import (
	"math/rand"
	"strings"
	"testing"

	"lumina/internal/catalog"
)

const base = "https://ik.imagekit.io/lumina/lumina-uploads/cat.jpg"

func TestFragment(t *testing.T) {
	cat := catalog.Default()
	tests := []struct {
		name   string
		id     string
		prompt string
		want   string
	}{
		{name: "plain effect", id: "e-bgremove", want: "e-bgremove"},
		{name: "plain effect ignores prompt", id: "e-upscale", prompt: "bigger", want: "e-upscale"},
		{name: "prompt effect without prompt", id: "e-edit", want: "e-edit"},
		{name: "edit with prompt", id: "e-edit", prompt: "remove the hat", want: "e-edit:remove%20the%20hat"},
		{name: "changebg uses dash template", id: "e-changebg", prompt: "beach", want: "e-changebg-prompt-beach"},
		{name: "genfill", id: "bg-genfill", prompt: "sky & sea", want: "bg-genfill:sky%20%26%20sea"},
		{name: "unknown id", id: "e-nope", prompt: "x", want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Fragment(cat, tc.id, tc.prompt); got != tc.want {
				t.Fatalf("Fragment(%q, %q) = %q, want %q", tc.id, tc.prompt, got, tc.want)
			}
		})
	}
}

func TestEncodeComponentMatchesBrowser(t *testing.T) {
	tests := map[string]string{
		"remove the hat":   "remove%20the%20hat",
		"a+b=c":            "a%2Bb%3Dc",
		"it's (fine)!*~._": "it's%20(fine)!*~._",
		"café":             "caf%C3%A9",
		"a,b/c?d":          "a%2Cb%2Fc%3Fd",
	}
	for in, want := range tests {
		if got := EncodeComponent(in); got != want {
			t.Fatalf("EncodeComponent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCombineJoinsInInsertionOrder(t *testing.T) {
	cat := catalog.Default()
	var set EffectSet
	set.Add("e-upscale")
	set.Add("e-bgremove")
	set.Add("e-dropshadow")

	got := Combine(cat, base, set.IDs(), nil)
	want := base + "?tr=e-upscale,e-bgremove,e-dropshadow"
	if got != want {
		t.Fatalf("Combine() = %q, want %q", got, want)
	}
}

func TestCombineOnlyUsesFreshPrompts(t *testing.T) {
	cat := catalog.Default()
	ids := []string{"e-changebg", "e-edit"}
	got := Combine(cat, base, ids, map[string]string{"e-edit": "remove the hat"})
	want := base + "?tr=e-changebg,e-edit:remove%20the%20hat"
	if got != want {
		t.Fatalf("Combine() = %q, want %q", got, want)
	}
}

func TestCombineSkipsUnknownAndEmpty(t *testing.T) {
	cat := catalog.Default()
	if got := Combine(cat, base, nil, nil); got != base {
		t.Fatalf("empty set = %q, want base", got)
	}
	if got := Combine(cat, base, []string{"e-nope"}, nil); got != base {
		t.Fatalf("unknown only = %q, want base", got)
	}
	got := Combine(cat, base, []string{"e-nope", "e-retouch"}, nil)
	if got != base+"?tr=e-retouch" {
		t.Fatalf("mixed = %q", got)
	}
	if got := Combine(cat, base+"?v=2", []string{"e-retouch"}, nil); got != base+"?v=2&tr=e-retouch" {
		t.Fatalf("existing query = %q", got)
	}
}

// Random toggle sequences over prompt-less effects: the fragment chain must
// always equal the set ids in insertion order.
func TestToggleSequencesMatchSetOrder(t *testing.T) {
	cat := catalog.Default()
	var plain []string
	for _, e := range cat.Effects() {
		if !e.AcceptsPrompt {
			plain = append(plain, e.ID)
		}
	}
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 50; run++ {
		var set EffectSet
		var model []string
		for step := 0; step < 30; step++ {
			id := plain[rng.Intn(len(plain))]
			if set.Toggle(id) {
				model = append(model, id)
			} else {
				model = removeString(model, id)
			}
			got := Fragments(cat, set.IDs(), nil)
			if strings.Join(got, ",") != strings.Join(model, ",") {
				t.Fatalf("run %d step %d: fragments %v, want %v", run, step, got, model)
			}
		}
	}
}

func TestToggleRoundTripRestoresURL(t *testing.T) {
	cat := catalog.Default()
	var set EffectSet
	set.Add("e-bgremove")
	set.Add("e-retouch")
	before := Combine(cat, base, set.IDs(), nil)

	set.Toggle("e-upscale")
	if Combine(cat, base, set.IDs(), nil) == before {
		t.Fatalf("toggle on did not change url")
	}
	set.Toggle("e-upscale")
	if after := Combine(cat, base, set.IDs(), nil); after != before {
		t.Fatalf("round trip = %q, want %q", after, before)
	}
}

func TestEffectSet(t *testing.T) {
	var set EffectSet
	if !set.Add("a") || set.Add("a") {
		t.Fatalf("Add should insert once")
	}
	set.Add("b")
	set.Add("c")
	ids := set.IDs()
	ids[0] = "mutated"
	if set.IDs()[0] != "a" {
		t.Fatalf("IDs must return a copy")
	}
	if !set.Remove("b") || set.Remove("b") {
		t.Fatalf("Remove should delete once")
	}
	if got := strings.Join(set.IDs(), ","); got != "a,c" {
		t.Fatalf("order after remove = %q", got)
	}
	set.Clear()
	if set.Len() != 0 || set.Has("a") {
		t.Fatalf("Clear left %v", set.IDs())
	}
}

func TestKeyIsStable(t *testing.T) {
	a := Key(base + "?tr=e-bgremove")
	if a != Key(base+"?tr=e-bgremove") {
		t.Fatalf("Key not deterministic")
	}
	if a == Key(base+"?tr=e-retouch") {
		t.Fatalf("Key collision for different urls")
	}
	if len(a) != 16 {
		t.Fatalf("Key length = %d", len(a))
	}
}

func removeString(in []string, v string) []string {
	out := in[:0:0]
	for _, s := range in {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
