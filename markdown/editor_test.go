package markdown

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestInsertActions(t *testing.T) {
	tests := []struct {
		action   Action
		text     string
		sel      Selection
		wantText string
		wantSel  Selection
	}{
		{ActionBold, "", Selection{0, 0}, "**bold text**", Selection{2, 11}},
		{ActionBold, "the brave hobbit", Selection{4, 9}, "the **brave** hobbit", Selection{6, 11}},
		{ActionItalic, "x", Selection{1, 1}, "x*italic text*", Selection{2, 13}},
		{ActionHeading, "", Selection{0, 0}, "## heading", Selection{3, 10}},
		{ActionHeading, "Title", Selection{0, 5}, "## Title", Selection{3, 8}},
		{ActionQuote, "wise words", Selection{0, 10}, "> wise words", Selection{2, 12}},
		{ActionList, "", Selection{0, 0}, "- list item", Selection{2, 11}},
		{ActionLink, "go home", Selection{3, 7}, "go [home](url)", Selection{4, 8}},
		{ActionLink, "", Selection{0, 0}, "[link text](url)", Selection{1, 10}},
		{ActionImage, "", Selection{0, 0}, "![alt text](image-url)", Selection{2, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			gotText, gotSel := Insert(tt.text, tt.sel, tt.action)
			if gotText != tt.wantText {
				t.Errorf("text = %q, want %q", gotText, tt.wantText)
			}
			if gotSel != tt.wantSel {
				t.Errorf("selection = %+v, want %+v", gotSel, tt.wantSel)
			}
		})
	}
}

func TestInsertReselectsChosenText(t *testing.T) {
	for _, a := range Actions() {
		for _, tc := range []struct {
			text string
			sel  Selection
		}{
			{"", Selection{}},
			{"hello world", Selection{6, 11}},
			{"hello world", Selection{5, 5}},
		} {
			got, sel := Insert(tc.text, tc.sel, a)
			runes := []rune(got)
			chosen := string(runes[sel.Start:sel.End])
			want := string([]rune(tc.text)[tc.sel.Start:tc.sel.End])
			if want == "" {
				want = a.Placeholder()
			}
			if chosen != want {
				t.Errorf("%s on %q: reselected %q, want %q", a, tc.text, chosen, want)
			}
		}
	}
}

func TestInsertPreservesSurroundingText(t *testing.T) {
	text := "Bilbo's eleventy-first birthday"
	for _, a := range Actions() {
		got, _ := Insert(text, Selection{8, 16}, a)
		if !strings.HasPrefix(got, "Bilbo's "+a.Prefix()) {
			t.Errorf("%s: prefix lost in %q", a, got)
		}
		if !strings.HasSuffix(got, a.Suffix()+"-first birthday") {
			t.Errorf("%s: suffix lost in %q", a, got)
		}
	}
}

func TestInsertClampsAndOrdersSelection(t *testing.T) {
	got, sel := Insert("abc", Selection{Start: 5, End: -2}, ActionBold)
	if got != "**abc**" {
		t.Errorf("text = %q, want **abc**", got)
	}
	if sel != (Selection{2, 5}) {
		t.Errorf("selection = %+v", sel)
	}
}

func TestInsertUsesRuneOffsets(t *testing.T) {
	got, sel := Insert("Éowyn rides", Selection{0, 5}, ActionItalic)
	if got != "*Éowyn* rides" {
		t.Errorf("text = %q", got)
	}
	if sel != (Selection{1, 6}) {
		t.Errorf("selection = %+v, want {1 6}", sel)
	}
}

func TestInsertIsReentrant(t *testing.T) {
	text, sel := "", Selection{}
	text, sel = Insert(text, sel, ActionBold)
	text, sel = Insert(text, sel, ActionItalic)
	if text != "***bold text***" {
		t.Errorf("text = %q", text)
	}
	if got := string([]rune(text)[sel.Start:sel.End]); got != "bold text" {
		t.Errorf("selected %q, want bold text", got)
	}
}

func TestInsertUnknownAction(t *testing.T) {
	got, sel := Insert("abc", Selection{1, 2}, Action(99))
	if got != "abc" || sel != (Selection{1, 2}) {
		t.Errorf("unknown action changed text: %q %+v", got, sel)
	}
}

func TestParseAction(t *testing.T) {
	for _, a := range Actions() {
		got, err := ParseAction(" " + strings.ToUpper(a.String()) + " ")
		if err != nil || got != a {
			t.Errorf("ParseAction(%q) = %v, %v", a.String(), got, err)
		}
	}
	if _, err := ParseAction("strike"); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestActionJSON(t *testing.T) {
	var req struct {
		Action Action `json:"action"`
	}
	if err := json.Unmarshal([]byte(`{"action":"link"}`), &req); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if req.Action != ActionLink {
		t.Errorf("Action = %v, want link", req.Action)
	}
	if err := json.Unmarshal([]byte(`{"action":"bogus"}`), &req); err == nil {
		t.Error("expected error for unknown action")
	}
	b, err := json.Marshal(map[string]Action{"a": ActionImage})
	if err != nil || string(b) != `{"a":"image"}` {
		t.Errorf("Marshal = %s, %v", b, err)
	}
}

func TestEditor(t *testing.T) {
	e := NewEditor("Hello")
	if e.Selection != (Selection{5, 5}) {
		t.Fatalf("new editor selection = %+v", e.Selection)
	}
	e.Select(0, 5)
	e.Apply(ActionBold)
	if e.Text != "**Hello**" || e.Selection != (Selection{2, 7}) {
		t.Fatalf("after bold: %q %+v", e.Text, e.Selection)
	}
	if e.View() != "**Hello**" {
		t.Errorf("edit view = %q", e.View())
	}
	if !e.TogglePreview() {
		t.Fatal("expected preview mode")
	}
	if e.View() != "<strong>Hello</strong>" {
		t.Errorf("preview view = %q", e.View())
	}
	if e.TogglePreview() {
		t.Fatal("expected edit mode")
	}
	e.Select(100, -1)
	if e.Selection != (Selection{0, 9}) {
		t.Errorf("clamped selection = %+v", e.Selection)
	}
}
