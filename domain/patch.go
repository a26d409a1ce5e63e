package domain

import "time"

// TaskDraft carries caller-supplied fields for a new task. The persistence
// service assigns the id, the order value (appended after the project's
// current maximum) and both timestamps.
type TaskDraft struct {
	Title        string                `json:"title"`
	Description  string                `json:"description,omitempty"`
	Status       Status                `json:"status"`
	Priority     Priority              `json:"priority"`
	Assignee     *Assignee             `json:"assignee,omitempty"`
	DueDate      *time.Time            `json:"dueDate,omitempty"`
	Tags         []string              `json:"tags,omitempty"`
	CustomFields map[string]FieldValue `json:"customFields,omitempty"`
}

// TaskPatch is a field-level partial update. Nil pointers leave the
// corresponding field untouched; CustomFields entries are merged per key.
type TaskPatch struct {
	Title        *string               `json:"title,omitempty"`
	Description  *string               `json:"description,omitempty"`
	Status       *Status               `json:"status,omitempty"`
	Priority     *Priority             `json:"priority,omitempty"`
	Assignee     *Assignee             `json:"assignee,omitempty"`
	DueDate      *time.Time            `json:"dueDate,omitempty"`
	Tags         *[]string             `json:"tags,omitempty"`
	CustomFields map[string]FieldValue `json:"customFields,omitempty"`
	Order        *int                  `json:"order,omitempty"`
}

// ApplyTo mutates t in place with every field the patch sets.
func (p TaskPatch) ApplyTo(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Assignee != nil {
		a := *p.Assignee
		t.Assignee = &a
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	if p.Tags != nil {
		t.Tags = append([]string(nil), (*p.Tags)...)
	}
	if len(p.CustomFields) > 0 {
		if t.CustomFields == nil {
			t.CustomFields = make(map[string]FieldValue, len(p.CustomFields))
		}
		for k, v := range p.CustomFields {
			t.CustomFields[k] = v.Clone()
		}
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
}

// ProjectDraft carries caller-supplied fields for a new project.
type ProjectDraft struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
}

// ProjectPatch is a partial project update.
type ProjectPatch struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *ProjectStatus `json:"status,omitempty"`
}

// CustomFieldDraft carries caller-supplied fields for a new custom field.
type CustomFieldDraft struct {
	Name       string    `json:"name"`
	Type       FieldType `json:"type"`
	Options    []string  `json:"options,omitempty"`
	IsRequired bool      `json:"isRequired,omitempty"`
	IsMulti    bool      `json:"isMulti,omitempty"`
}

// CustomFieldPatch is a partial custom field update.
type CustomFieldPatch struct {
	Name       *string   `json:"name,omitempty"`
	Options    *[]string `json:"options,omitempty"`
	IsRequired *bool     `json:"isRequired,omitempty"`
}
