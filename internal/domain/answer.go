package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// AnswerKind tags the variant held by an Answer.
type AnswerKind uint8

const (
	AnswerNull AnswerKind = iota
	AnswerText
	AnswerNumber
	AnswerBool
	AnswerList
)

// Answer is a loosely typed answer value: text, number, boolean, list or null.
// The zero value is null.
type Answer struct {
	kind AnswerKind
	text string
	num  float64
	b    bool
	list []Answer
}

func TextAnswer(s string) Answer     { return Answer{kind: AnswerText, text: s} }
func NumberAnswer(f float64) Answer  { return Answer{kind: AnswerNumber, num: f} }
func BoolAnswer(b bool) Answer       { return Answer{kind: AnswerBool, b: b} }
func ListAnswer(xs ...Answer) Answer { return Answer{kind: AnswerList, list: xs} }

func (a Answer) Kind() AnswerKind { return a.kind }

func (a Answer) IsNull() bool { return a.kind == AnswerNull }

// Text returns the string payload when a holds text.
func (a Answer) Text() (string, bool) {
	if a.kind != AnswerText {
		return "", false
	}
	return a.text, true
}

// String renders the answer in its loose textual form: numbers in shortest
// decimal form, booleans as true/false, lists joined by commas and null as "".
func (a Answer) String() string {
	switch a.kind {
	case AnswerText:
		return a.text
	case AnswerNumber:
		return strconv.FormatFloat(a.num, 'f', -1, 64)
	case AnswerBool:
		return strconv.FormatBool(a.b)
	case AnswerList:
		parts := make([]string, len(a.list))
		for i, item := range a.list {
			parts[i] = item.String()
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}

func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AnswerText:
		return json.Marshal(a.text)
	case AnswerNumber:
		return json.Marshal(a.num)
	case AnswerBool:
		return json.Marshal(a.b)
	case AnswerList:
		if a.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.list)
	default:
		return []byte("null"), nil
	}
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*a = Answer{}
		return nil
	}
	switch data[0] {
	case 'n':
		*a = Answer{}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*a = BoolAnswer(b)
		return nil
	case '[':
		var items []Answer
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		if items == nil {
			items = []Answer{}
		}
		*a = ListAnswer(items...)
		return nil
	case '{':
		return Invalid("answer", "objects are not supported as answers")
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*a = NumberAnswer(f)
		return nil
	}
}

// ParseAnswer decodes a raw JSON answer value.
func ParseAnswer(raw string) (Answer, error) {
	var a Answer
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		if errors.Is(err, ErrValidation) {
			return Answer{}, err
		}
		return Answer{}, Invalid("answer", "malformed JSON value")
	}
	return a, nil
}

// Value stores the answer as its JSON encoding.
func (a Answer) Value() (driver.Value, error) {
	b, err := a.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads an answer back from a column. Some drivers coerce JSON-looking
// text to native numbers, so those are accepted too.
func (a *Answer) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Answer{}
		return nil
	case []byte:
		return a.UnmarshalJSON(v)
	case string:
		return a.UnmarshalJSON([]byte(v))
	case int64:
		*a = NumberAnswer(float64(v))
		return nil
	case float64:
		*a = NumberAnswer(v)
		return nil
	case bool:
		*a = BoolAnswer(v)
		return nil
	default:
		return fmt.Errorf("answer: unsupported scan type %T", src)
	}
}
