package markdown

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Action is a toolbar button of the post editor.
type Action int

const (
	ActionBold Action = iota
	ActionItalic
	ActionHeading
	ActionQuote
	ActionList
	ActionLink
	ActionImage
)

type wrap struct {
	name        string
	prefix      string
	suffix      string
	placeholder string
}

var wraps = [...]wrap{
	ActionBold:    {"bold", "**", "**", "bold text"},
	ActionItalic:  {"italic", "*", "*", "italic text"},
	ActionHeading: {"heading", "## ", "", "heading"},
	ActionQuote:   {"quote", "> ", "", "quote"},
	ActionList:    {"list", "- ", "", "list item"},
	ActionLink:    {"link", "[", "](url)", "link text"},
	ActionImage:   {"image", "![", "](image-url)", "alt text"},
}

// Actions lists every toolbar action in toolbar order.
func Actions() []Action {
	return []Action{ActionBold, ActionItalic, ActionHeading, ActionQuote, ActionList, ActionLink, ActionImage}
}

func (a Action) valid() bool {
	return a >= 0 && int(a) < len(wraps)
}

func (a Action) String() string {
	if !a.valid() {
		return fmt.Sprintf("Action(%d)", int(a))
	}
	return wraps[a].name
}

// Prefix is the token inserted before the selection.
func (a Action) Prefix() string {
	if !a.valid() {
		return ""
	}
	return wraps[a].prefix
}

// Suffix is the token inserted after the selection.
func (a Action) Suffix() string {
	if !a.valid() {
		return ""
	}
	return wraps[a].suffix
}

// Placeholder replaces an empty selection.
func (a Action) Placeholder() string {
	if !a.valid() {
		return ""
	}
	return wraps[a].placeholder
}

// ParseAction maps a toolbar action name such as "bold" to its Action.
func ParseAction(s string) (Action, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, w := range wraps {
		if w.name == name {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("markdown: unknown action %q", s)
}

func (a Action) MarshalText() ([]byte, error) {
	if !a.valid() {
		return nil, fmt.Errorf("markdown: invalid action %d", int(a))
	}
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	v, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Selection is a half-open range [Start, End) of rune offsets into a buffer.
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len is the number of runes selected.
func (s Selection) Len() int {
	return s.End - s.Start
}

// clamp bounds both offsets to [0, n] and orders them.
func (s Selection) clamp(n int) Selection {
	bound := func(v int) int {
		if v < 0 {
			return 0
		}
		if v > n {
			return n
		}
		return v
	}
	s.Start, s.End = bound(s.Start), bound(s.End)
	if s.Start > s.End {
		s.Start, s.End = s.End, s.Start
	}
	return s
}

// Insert wraps the selected text of text in the action's prefix and suffix,
// substituting the action's placeholder when nothing is selected. It returns
// the new text and the selection covering the wrapped (or placeholder) text,
// so the user can type over it. Text outside the selection is preserved.
func Insert(text string, sel Selection, action Action) (string, Selection) {
	runes := []rune(text)
	sel = sel.clamp(len(runes))
	if !action.valid() {
		return text, sel
	}
	w := wraps[action]

	chosen := string(runes[sel.Start:sel.End])
	if chosen == "" {
		chosen = w.placeholder
	}

	var b strings.Builder
	b.Grow(len(text) + len(w.prefix) + len(w.suffix) + len(chosen))
	b.WriteString(string(runes[:sel.Start]))
	b.WriteString(w.prefix)
	b.WriteString(chosen)
	b.WriteString(w.suffix)
	b.WriteString(string(runes[sel.End:]))

	start := sel.Start + utf8.RuneCountInString(w.prefix)
	return b.String(), Selection{Start: start, End: start + utf8.RuneCountInString(chosen)}
}

// Editor is the state of one editing session: the buffer, the current
// selection and whether the preview is shown instead of the source.
type Editor struct {
	Text      string    `json:"text"`
	Selection Selection `json:"selection"`
	Preview   bool      `json:"preview"`
}

// NewEditor starts an editing session with the cursor at the end of text.
func NewEditor(text string) *Editor {
	n := utf8.RuneCountInString(text)
	return &Editor{Text: text, Selection: Selection{Start: n, End: n}}
}

// Apply runs a toolbar action against the current text and selection.
func (e *Editor) Apply(a Action) {
	e.Text, e.Selection = Insert(e.Text, e.Selection, a)
}

// Select moves the selection, clamped to the buffer.
func (e *Editor) Select(start, end int) {
	e.Selection = Selection{Start: start, End: end}.clamp(utf8.RuneCountInString(e.Text))
}

// TogglePreview switches between source and preview and reports the new mode.
func (e *Editor) TogglePreview() bool {
	e.Preview = !e.Preview
	return e.Preview
}

// View is the raw buffer in edit mode and the sanitized rendering in preview mode.
func (e *Editor) View() string {
	if e.Preview {
		return RenderSafe(e.Text)
	}
	return e.Text
}
