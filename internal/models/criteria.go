package models

import (
	"encoding/json"
	"fmt"
)

// AccessCriteria is the admission rule set gating who may start a template.
// It has no identity of its own; it is decoded from the template's columns.
type AccessCriteria struct {
	AvailableToAll bool
	RequiredLevel  int
	RequiredTags   []string
	RequiredRoles  []string
}

// Criteria decodes the template's access criteria columns.
func (t *TrailTemplate) Criteria() (AccessCriteria, error) {
	tags, err := DecodeStringList(t.RequiredTags)
	if err != nil {
		return AccessCriteria{}, fmt.Errorf("models: decode required_tags for template %s: %w", t.ID, err)
	}
	roles, err := DecodeStringList(t.RequiredRoles)
	if err != nil {
		return AccessCriteria{}, fmt.Errorf("models: decode required_roles for template %s: %w", t.ID, err)
	}
	return AccessCriteria{
		AvailableToAll: t.AvailableToAll,
		RequiredLevel:  t.RequiredLevel,
		RequiredTags:   tags,
		RequiredRoles:  roles,
	}, nil
}

// EncodeStringList marshals a string slice to its JSON column form.
// Nil encodes as "[]" so the column is never empty.
func EncodeStringList(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(values)
	return string(data)
}

// DecodeStringList unmarshals a JSON column into a string slice.
// Empty columns decode as nil.
func DecodeStringList(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}
