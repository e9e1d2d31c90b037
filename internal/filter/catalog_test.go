package filter

import (
	"errors"
	"testing"
)

func TestLoad_BuiltinCatalogs(t *testing.T) {
	for _, mode := range []Mode{ModeCity, ModeHome} {
		c, err := Load(mode)
		if err != nil {
			t.Fatalf("Load(%s): %v", mode, err)
		}
		if c.Mode() != mode {
			t.Errorf("expected mode %s, got %s", mode, c.Mode())
		}
		if len(c.Defaults()) == 0 {
			t.Errorf("%s catalog should have default filters", mode)
		}
	}
}

func TestLoad_CityHasThreeDefaults(t *testing.T) {
	c := MustLoad(ModeCity)
	if got := len(c.Defaults()); got != 3 {
		t.Errorf("expected 3 city defaults, got %d", got)
	}
}

func TestLoad_HomeFiltersAreCategorised(t *testing.T) {
	for _, o := range MustLoad(ModeHome).Options() {
		if o.Category == "" {
			t.Errorf("home filter %q has no category", o.ID)
		}
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"city": ModeCity, "HOME": ModeHome, " Home ": ModeHome} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v; expected %q", in, got, err, want)
		}
	}
	if _, err := ParseMode("garden"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := map[string]string{
		"empty":            "[]",
		"missing id":       "- prompt: a\n",
		"duplicate id":     "- {id: a, prompt: x}\n- {id: a, prompt: y}\n",
		"missing prompt":   "- {id: a}\n",
		"duplicate prompt": "- {id: a, prompt: same}\n- {id: b, prompt: ' same '}\n",
		"unknown category": "- {id: a, prompt: x, category: garage}\n",
		"not a list":       "id: a\n",
	}
	for name, doc := range tests {
		if _, err := Parse(ModeCity, []byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestResolve_CatalogOrderAndDedup(t *testing.T) {
	c, err := Parse(ModeCity, []byte("- {id: a, prompt: A}\n- {id: b, prompt: B}\n- {id: c, prompt: C}\n"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := c.Resolve([]string{"c", "a", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("expected [a c], got %+v", got)
	}

	if _, err := c.Resolve([]string{"a", "zzz"}); !errors.Is(err, ErrUnknownFilter) {
		t.Errorf("expected ErrUnknownFilter, got %v", err)
	}
}

func TestOptions_ReturnsCopy(t *testing.T) {
	c := MustLoad(ModeCity)
	opts := c.Options()
	opts[0].PromptFragment = "tampered"
	if again, _ := c.Lookup(opts[0].ID); again.PromptFragment == "tampered" {
		t.Error("mutating Options() result must not change the catalog")
	}
}
