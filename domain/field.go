package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// FieldType enumerates the value kinds a custom field can hold.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldNumber      FieldType = "number"
	FieldDate        FieldType = "date"
	FieldSelect      FieldType = "select"
	FieldMultiSelect FieldType = "multiselect"
	FieldCheckbox    FieldType = "checkbox"
	FieldURL         FieldType = "url"
)

func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldNumber, FieldDate, FieldSelect, FieldMultiSelect, FieldCheckbox, FieldURL:
		return true
	}
	return false
}

// CustomField is a project-defined field attached to tasks.
//
// Multiselect fields are stored with Type "select" and IsMulti set; Kind
// folds the two back together for validation and rendering.
type CustomField struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"projectId"`
	Name       string    `json:"name"`
	Type       FieldType `json:"type"`
	Options    []string  `json:"options,omitempty"`
	IsRequired bool      `json:"isRequired,omitempty"`
	IsMulti    bool      `json:"isMulti,omitempty"`
}

// Kind returns the effective field type, unfolding the select/multiselect
// storage-level encoding.
func (f CustomField) Kind() FieldType {
	if f.Type == FieldSelect && f.IsMulti {
		return FieldMultiSelect
	}
	return f.Type
}

// FieldValue is a tagged union over FieldType. Exactly the slot matching
// Type is meaningful; the rest stay zero.
type FieldValue struct {
	Type      FieldType
	Text      string
	Number    float64
	Date      time.Time
	Selection []string
	Checked   bool
	URL       string
}

func TextValue(s string) FieldValue { return FieldValue{Type: FieldText, Text: s} }

func NumberValue(n float64) FieldValue { return FieldValue{Type: FieldNumber, Number: n} }

func DateValue(d time.Time) FieldValue { return FieldValue{Type: FieldDate, Date: d} }

func CheckboxValue(b bool) FieldValue { return FieldValue{Type: FieldCheckbox, Checked: b} }

func URLValue(u string) FieldValue { return FieldValue{Type: FieldURL, URL: u} }

func SelectValue(option string) FieldValue {
	return FieldValue{Type: FieldSelect, Selection: []string{option}}
}

func MultiSelectValue(options ...string) FieldValue {
	return FieldValue{Type: FieldMultiSelect, Selection: append([]string(nil), options...)}
}

// Clone deep-copies the value.
func (v FieldValue) Clone() FieldValue {
	c := v
	if v.Selection != nil {
		c.Selection = append([]string(nil), v.Selection...)
	}
	return c
}

type fieldValueWire struct {
	Type  FieldType       `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the value as a {"type": ..., "value": ...} envelope.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	var inner any
	switch v.Type {
	case FieldText:
		inner = v.Text
	case FieldNumber:
		inner = v.Number
	case FieldDate:
		inner = v.Date.Format(time.RFC3339)
	case FieldSelect, FieldMultiSelect:
		inner = v.Selection
	case FieldCheckbox:
		inner = v.Checked
	case FieldURL:
		inner = v.URL
	default:
		return nil, fmt.Errorf("field value: unknown type %q", v.Type)
	}
	raw, err := json.Marshal(inner)
	if err != nil {
		return nil, err
	}
	return json.Marshal(fieldValueWire{Type: v.Type, Value: raw})
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var wire fieldValueWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	out := FieldValue{Type: wire.Type}
	switch wire.Type {
	case FieldText:
		if err := json.Unmarshal(wire.Value, &out.Text); err != nil {
			return err
		}
	case FieldNumber:
		if err := json.Unmarshal(wire.Value, &out.Number); err != nil {
			return err
		}
	case FieldDate:
		var s string
		if err := json.Unmarshal(wire.Value, &s); err != nil {
			return err
		}
		d, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("field value: bad date %q: %w", s, err)
		}
		out.Date = d
	case FieldSelect, FieldMultiSelect:
		if err := json.Unmarshal(wire.Value, &out.Selection); err != nil {
			return err
		}
	case FieldCheckbox:
		if err := json.Unmarshal(wire.Value, &out.Checked); err != nil {
			return err
		}
	case FieldURL:
		if err := json.Unmarshal(wire.Value, &out.URL); err != nil {
			return err
		}
	default:
		return fmt.Errorf("field value: unknown type %q", wire.Type)
	}
	*v = out
	return nil
}

// Validate checks a value against the field's declared type, including
// option membership and cardinality for selects.
func (f CustomField) Validate(v FieldValue) error {
	kind := f.Kind()
	switch kind {
	case FieldText, FieldNumber, FieldDate, FieldCheckbox:
		if v.Type != kind {
			return fmt.Errorf("field %q: expected %s value, got %s", f.Name, kind, v.Type)
		}
	case FieldURL:
		if v.Type != FieldURL {
			return fmt.Errorf("field %q: expected url value, got %s", f.Name, v.Type)
		}
		if _, err := url.ParseRequestURI(v.URL); err != nil {
			return fmt.Errorf("field %q: invalid url: %w", f.Name, err)
		}
	case FieldSelect, FieldMultiSelect:
		if v.Type != FieldSelect && v.Type != FieldMultiSelect {
			return fmt.Errorf("field %q: expected selection, got %s", f.Name, v.Type)
		}
		if kind == FieldSelect && len(v.Selection) > 1 {
			return fmt.Errorf("field %q: single-select holds %d options", f.Name, len(v.Selection))
		}
		for _, opt := range v.Selection {
			if !f.hasOption(opt) {
				return fmt.Errorf("field %q: option %q not declared", f.Name, opt)
			}
		}
	default:
		return fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
	}
	return nil
}

func (f CustomField) hasOption(opt string) bool {
	for _, o := range f.Options {
		if o == opt {
			return true
		}
	}
	return false
}

// ValidateFieldValues checks a task's custom field values against the
// project's declared fields: unknown ids are rejected, required fields must
// be present, and each value must match its field's type.
func ValidateFieldValues(fields []CustomField, values map[string]FieldValue) error {
	byID := make(map[string]CustomField, len(fields))
	for _, f := range fields {
		byID[f.ID] = f
	}
	for id, v := range values {
		f, ok := byID[id]
		if !ok {
			return fmt.Errorf("custom field %q is not declared on this project", id)
		}
		if err := f.Validate(v); err != nil {
			return err
		}
	}
	for _, f := range fields {
		if !f.IsRequired {
			continue
		}
		if _, ok := values[f.ID]; !ok {
			return fmt.Errorf("field %q is required", f.Name)
		}
	}
	return nil
}
