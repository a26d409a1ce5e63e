package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFieldValueRoundTrip(t *testing.T) {
	v := MultiSelectValue("alpha", "beta")
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got FieldValue
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != FieldMultiSelect || len(got.Selection) != 2 || got.Selection[1] != "beta" {
		t.Fatalf("unexpected value after round trip: %#v", got)
	}
}

func TestFieldValueDateEncoding(t *testing.T) {
	d := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	data, err := json.Marshal(DateValue(d))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got FieldValue
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Date.Equal(d) {
		t.Fatalf("date mangled: got %v want %v", got.Date, d)
	}
}

func TestFieldValueUnknownTypeRejected(t *testing.T) {
	var v FieldValue
	if err := json.Unmarshal([]byte(`{"type":"geo","value":[1,2]}`), &v); err == nil {
		t.Fatal("expected error for unknown field type")
	}
}

func TestValidateSelectOptionMembership(t *testing.T) {
	field := CustomField{
		ID:      "f1",
		Name:    "Stage",
		Type:    FieldSelect,
		Options: []string{"design", "build"},
	}

	if err := field.Validate(SelectValue("design")); err != nil {
		t.Fatalf("valid option rejected: %v", err)
	}
	if err := field.Validate(SelectValue("ship")); err == nil {
		t.Fatal("undeclared option accepted")
	}
	if err := field.Validate(FieldValue{Type: FieldSelect, Selection: []string{"design", "build"}}); err == nil {
		t.Fatal("single-select accepted multiple options")
	}
}

func TestValidateMultiSelectStorageEncoding(t *testing.T) {
	// Multiselect is stored as type=select with IsMulti set.
	field := CustomField{
		ID:      "f2",
		Name:    "Areas",
		Type:    FieldSelect,
		IsMulti: true,
		Options: []string{"api", "ui", "infra"},
	}
	if field.Kind() != FieldMultiSelect {
		t.Fatalf("kind = %s, want multiselect", field.Kind())
	}
	if err := field.Validate(MultiSelectValue("api", "infra")); err != nil {
		t.Fatalf("valid multiselect rejected: %v", err)
	}
}

func TestValidateTypeMismatch(t *testing.T) {
	field := CustomField{ID: "f3", Name: "Estimate", Type: FieldNumber}
	if err := field.Validate(TextValue("five")); err == nil {
		t.Fatal("text value accepted for number field")
	}
}

func TestValidateURL(t *testing.T) {
	field := CustomField{ID: "f4", Name: "Ticket", Type: FieldURL}
	if err := field.Validate(URLValue("https://example.com/t/42")); err != nil {
		t.Fatalf("valid url rejected: %v", err)
	}
	if err := field.Validate(URLValue("not a url")); err == nil {
		t.Fatal("malformed url accepted")
	}
}

func TestValidateFieldValues(t *testing.T) {
	fields := []CustomField{
		{ID: "req", Name: "Required text", Type: FieldText, IsRequired: true},
		{ID: "chk", Name: "Confirmed", Type: FieldCheckbox},
	}

	err := ValidateFieldValues(fields, map[string]FieldValue{"chk": CheckboxValue(true)})
	if err == nil {
		t.Fatal("missing required field accepted")
	}

	err = ValidateFieldValues(fields, map[string]FieldValue{
		"req":     TextValue("ok"),
		"unknown": TextValue("x"),
	})
	if err == nil {
		t.Fatal("unknown field id accepted")
	}

	err = ValidateFieldValues(fields, map[string]FieldValue{"req": TextValue("ok")})
	if err != nil {
		t.Fatalf("valid values rejected: %v", err)
	}
}
