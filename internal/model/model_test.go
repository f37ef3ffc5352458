package model

import (
	"encoding/json"
	"testing"
)

func TestScriptMapOrderRoundTrip(t *testing.T) {
	raw := `{"Part I Section A":"script a","1":"first","Part II":"script b","2":"second"}`

	var m ScriptMap
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	wantKeys := []string{"Part I Section A", "1", "Part II", "2"}
	if len(m) != len(wantKeys) {
		t.Fatalf("expected %d entries, got %d", len(wantKeys), len(m))
	}
	for i, k := range wantKeys {
		if m[i].Key != k {
			t.Errorf("entry %d: expected key %q, got %q", i, k, m[i].Key)
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != raw {
		t.Errorf("round trip changed order:\n in: %s\nout: %s", raw, out)
	}
}

func TestScriptMapGetSet(t *testing.T) {
	var m ScriptMap
	if _, ok := m.Get("missing"); ok {
		t.Error("Get on empty map should report not found")
	}

	m.Set("a", "one")
	m.Set("b", "two")
	m.Set("a", "replaced")

	if len(m) != 2 {
		t.Fatalf("expected 2 entries after duplicate Set, got %d", len(m))
	}
	if m[0].Key != "a" || m[0].Text != "replaced" {
		t.Errorf("expected first entry a=replaced, got %s=%s", m[0].Key, m[0].Text)
	}
	if v, ok := m.Get("b"); !ok || v != "two" {
		t.Errorf("Get(b) = %q, %v", v, ok)
	}
}

func TestScriptMapUnmarshalRejectsNonObject(t *testing.T) {
	var m ScriptMap
	if err := json.Unmarshal([]byte(`["not","an","object"]`), &m); err == nil {
		t.Error("expected error for JSON array")
	}
}

func TestScriptMapUnmarshalNull(t *testing.T) {
	m := ScriptMap{{Key: "stale", Text: "x"}}
	if err := json.Unmarshal([]byte(`null`), &m); err != nil {
		t.Fatalf("Unmarshal null: %v", err)
	}
	if m != nil {
		t.Errorf("expected nil map after null, got %v", m)
	}
}

func TestExamDataClone(t *testing.T) {
	orig := ExamData{
		ID:    "test-1",
		Title: "Test 1",
		Sections: []ExamSection{
			{
				ID:            "s1",
				Title:         "Part I",
				SharedOptions: []Option{{Label: "A", Text: "alpha"}},
				Questions: []Question{
					{ID: "q1", Number: 1, Options: []Option{{Label: "A", Text: "yes"}}},
				},
			},
		},
	}

	clone := orig.Clone()
	clone.Sections[0].Title = "changed"
	clone.Sections[0].Questions[0].CorrectAnswer = "A"
	clone.Sections[0].Questions[0].Options[0].Text = "no"
	clone.Sections[0].SharedOptions[0].Text = "beta"

	if orig.Sections[0].Title != "Part I" {
		t.Error("clone shares section slice with original")
	}
	if orig.Sections[0].Questions[0].CorrectAnswer != "" {
		t.Error("clone shares question slice with original")
	}
	if orig.Sections[0].Questions[0].Options[0].Text != "yes" {
		t.Error("clone shares question options with original")
	}
	if orig.Sections[0].SharedOptions[0].Text != "alpha" {
		t.Error("clone shares shared options with original")
	}
}
