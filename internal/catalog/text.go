package catalog

import (
	"bytes"
	"encoding/json"
	"strings"
)

// TextKind tags how a piece of catalog text was authored.
type TextKind int

const (
	PlainText TextKind = iota
	RichText
)

// MediaPlaceholder is shown for rich prompts that carry no readable text.
const MediaPlaceholder = "[Question with images or special content]"

// Text is catalog prose decoded once at load time. Paper files store prompts
// either as a bare string or as an object whose "text" is a string or a list
// of parts; anything that is not text (images, tables) only sets HasMedia.
type Text struct {
	Kind     TextKind
	Parts    []string
	HasMedia bool
}

func Plain(s string) Text {
	return Text{Kind: PlainText, Parts: []string{s}}
}

func Rich(parts ...string) Text {
	return Text{Kind: RichText, Parts: parts}
}

// String joins the text parts with single spaces, skipping blank ones.
func (t Text) String() string {
	out := make([]string, 0, len(t.Parts))
	for _, p := range t.Parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// Display returns the readable text, the media placeholder when only media
// is present, or fallback.
func (t Text) Display(fallback string) string {
	if s := t.String(); s != "" {
		return s
	}
	if t.HasMedia {
		return MediaPlaceholder
	}
	return fallback
}

func (t Text) IsZero() bool {
	return t.String() == "" && !t.HasMedia
}

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = Text{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Plain(s)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*t = richFromParts(raw)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		t.Kind = RichText
		for key, v := range obj {
			if key != "text" {
				t.HasMedia = true
				continue
			}
			inner := bytes.TrimSpace(v)
			switch {
			case len(inner) > 0 && inner[0] == '"':
				var s string
				if err := json.Unmarshal(inner, &s); err == nil {
					t.Parts = append(t.Parts, s)
				}
			case len(inner) > 0 && inner[0] == '[':
				var raw []json.RawMessage
				if err := json.Unmarshal(inner, &raw); err == nil {
					r := richFromParts(raw)
					t.Parts = append(t.Parts, r.Parts...)
					t.HasMedia = t.HasMedia || r.HasMedia
				}
			default:
				t.HasMedia = true
			}
		}
		if len(obj) == 0 || obj["text"] == nil {
			t.HasMedia = true
		}
	default:
		// numbers and booleans show up in hand-written papers
		*t = Plain(string(data))
	}
	return nil
}

func richFromParts(raw []json.RawMessage) Text {
	t := Text{Kind: RichText}
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			t.Parts = append(t.Parts, s)
			continue
		}
		t.HasMedia = true
	}
	return t
}

func (t Text) MarshalJSON() ([]byte, error) {
	if t.Kind == PlainText {
		if len(t.Parts) == 0 {
			return []byte(`""`), nil
		}
		return json.Marshal(t.String())
	}
	parts := t.Parts
	if parts == nil {
		parts = []string{}
	}
	obj := map[string]any{"text": parts}
	if t.HasMedia {
		obj["media"] = true
	}
	return json.Marshal(obj)
}
