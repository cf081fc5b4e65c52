package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Option struct {
	ID   string `json:"id"`
	Text Text   `json:"text"`
}

// UnmarshalJSON accepts {"id","text"} objects and bare strings such as
// "A. Router"; a bare string takes its lower-cased first letter as id.
func (o *Option) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*o = Option{}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		o.Text = Plain(s)
		if r, _ := utf8.DecodeRuneInString(strings.TrimSpace(s)); r != utf8.RuneError {
			o.ID = string(unicode.ToLower(r))
		}
		return nil
	}
	var aux struct {
		ID   json.RawMessage `json:"id"`
		Text Text            `json:"text"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	o.ID = scalarString(aux.ID)
	o.Text = aux.Text
	return nil
}

type Question struct {
	ID          string   `json:"id"`
	Prompt      Text     `json:"question"`
	Options     []Option `json:"options"`
	Answer      string   `json:"answer"`
	Explanation *Text    `json:"explanation,omitempty"`
	Session     string   `json:"session,omitempty"`
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID            json.RawMessage `json:"id"`
		Question      Text            `json:"question"`
		Options       []Option        `json:"options"`
		Answer        json.RawMessage `json:"answer"`
		CorrectAnswer json.RawMessage `json:"correct_answer"`
		Explanation   *Text           `json:"explanation"`
		Session       string          `json:"session"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	answer := scalarString(aux.Answer)
	if answer == "" {
		answer = scalarString(aux.CorrectAnswer)
	}
	if aux.Explanation != nil && aux.Explanation.IsZero() {
		aux.Explanation = nil
	}
	*q = Question{
		ID:          scalarString(aux.ID),
		Prompt:      aux.Question,
		Options:     aux.Options,
		Answer:      answer,
		Explanation: aux.Explanation,
		Session:     aux.Session,
	}
	return nil
}

// scalarString renders a JSON string or number as a plain string.
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return ""
	}
	return string(raw)
}

// DecodePaper reads one paper file. It accepts a plain array of questions,
// an array of session groups ({"session": "morning", "questions": [...]}),
// or either of those wrapped as {"questions": [...]}. Grouped questions are
// flattened and tagged with their group's session; items that fail to
// decode are skipped.
func DecodePaper(raw []byte) ([]Question, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		var wrapper struct {
			Questions []json.RawMessage `json:"questions"`
		}
		if err2 := json.Unmarshal(raw, &wrapper); err2 != nil || wrapper.Questions == nil {
			return nil, fmt.Errorf("json parse: %w", err)
		}
		items = wrapper.Questions
	}

	out := make([]Question, 0, len(items))
	skipped := 0
	for _, item := range items {
		var group struct {
			Session   string            `json:"session"`
			Name      string            `json:"name"`
			Questions []json.RawMessage `json:"questions"`
		}
		if err := json.Unmarshal(item, &group); err == nil && group.Questions != nil {
			tag := group.Session
			if tag == "" {
				tag = group.Name
			}
			for _, qraw := range group.Questions {
				var q Question
				if err := json.Unmarshal(qraw, &q); err != nil {
					skipped++
					continue
				}
				q.Session = tag
				out = append(out, q)
			}
			continue
		}

		var q Question
		if err := json.Unmarshal(item, &q); err != nil {
			skipped++
			continue
		}
		out = append(out, q)
	}
	if skipped > 0 {
		log.Printf("[WARN] catalog: skipped %d malformed question(s)", skipped)
	}
	return out, nil
}
