package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestTrailTemplate_Fields(t *testing.T) {
	typ := reflect.TypeOf(TrailTemplate{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "size:32")
	assertGormTag(t, typ, "Name", "not null")
	assertGormTag(t, typ, "Description", "type:text")
	assertGormTag(t, typ, "LifeArea", "size:64")
	assertGormTag(t, typ, "RequiredTags", "type:json")
	assertGormTag(t, typ, "RequiredRoles", "type:json")
	assertGormTag(t, typ, "Active", "default:true")
	assertGormTag(t, typ, "Active", "index")
	assertGormTag(t, typ, "Pinned", "default:false")
	assertGormTag(t, typ, "OrderIndex", "index")

	assertFieldType(t, typ, "ID", "string")
	assertFieldType(t, typ, "BadgeID", "*string")
	assertFieldType(t, typ, "CreatedAt", "time.Time")
}

func TestTrailTemplate_Relations(t *testing.T) {
	typ := reflect.TypeOf(TrailTemplate{})

	assertGormTag(t, typ, "Stages", "foreignKey:TemplateID")
	assertGormTag(t, typ, "Prereqs", "foreignKey:TemplateID")
	assertGormTag(t, typ, "Badge", "foreignKey:BadgeID")

	assertFieldType(t, typ, "Stages", "[]models.StageDefinition")
	assertFieldType(t, typ, "Prereqs", "[]models.TemplatePrereq")
	assertFieldType(t, typ, "Badge", "*models.TrailBadge")
}

func TestStageDefinition_Fields(t *testing.T) {
	typ := reflect.TypeOf(StageDefinition{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "TemplateID", "index")
	assertGormTag(t, typ, "InstanceID", "index")
	assertGormTag(t, typ, "Name", "not null")
	assertGormTag(t, typ, "TargetValue", "default:1")

	// A stage belongs to a template or an instance, so both are nullable.
	assertFieldType(t, typ, "TemplateID", "*string")
	assertFieldType(t, typ, "InstanceID", "*string")
}

func TestTrailInstance_Fields(t *testing.T) {
	typ := reflect.TypeOf(TrailInstance{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "UserID", "not null")
	assertGormTag(t, typ, "UserID", "index")
	assertGormTag(t, typ, "Status", "default:active")
	assertGormTag(t, typ, "Status", "index")

	assertFieldType(t, typ, "TemplateID", "*string")
	assertFieldType(t, typ, "BadgeID", "*string")
	assertFieldType(t, typ, "StartedAt", "time.Time")
	assertFieldType(t, typ, "CompletedAt", "*time.Time")
}

func TestStageProgress_Fields(t *testing.T) {
	typ := reflect.TypeOf(StageProgress{})

	// Composite primary key: one row per (instance, stage).
	assertGormTag(t, typ, "InstanceID", "primaryKey")
	assertGormTag(t, typ, "StageID", "primaryKey")
	assertGormTag(t, typ, "ProgressValue", "default:0")
	assertGormTag(t, typ, "TargetValue", "default:1")
	assertGormTag(t, typ, "IsCompleted", "default:false")

	assertFieldType(t, typ, "CompletedAt", "*time.Time")
}

func TestBadgeAward_UniquePair(t *testing.T) {
	typ := reflect.TypeOf(BadgeAward{})

	assertGormTag(t, typ, "InstanceID", "uniqueIndex:idx_award_pair")
	assertGormTag(t, typ, "BadgeID", "uniqueIndex:idx_award_pair")
	assertGormTag(t, typ, "UserID", "index")
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{StatusActive, StatusPaused, true},
		{StatusActive, StatusCompleted, true},
		{StatusPaused, StatusActive, true},
		{StatusPaused, StatusCompleted, false},
		{StatusCompleted, StatusActive, false},
		{StatusCompleted, StatusPaused, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			got := false
			for _, next := range ValidTransitions[tt.from] {
				if next == tt.to {
					got = true
				}
			}
			if got != tt.want {
				t.Errorf("transition %s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestCriteria_Decode(t *testing.T) {
	tpl := TrailTemplate{
		ID:             "tpl-abc12",
		AvailableToAll: false,
		RequiredLevel:  3,
		RequiredTags:   `["vip","founder"]`,
		RequiredRoles:  `["mentor"]`,
	}

	c, err := tpl.Criteria()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.AvailableToAll {
		t.Error("AvailableToAll = true, want false")
	}
	if c.RequiredLevel != 3 {
		t.Errorf("RequiredLevel = %d, want 3", c.RequiredLevel)
	}
	if len(c.RequiredTags) != 2 || c.RequiredTags[0] != "vip" {
		t.Errorf("RequiredTags = %v", c.RequiredTags)
	}
	if len(c.RequiredRoles) != 1 || c.RequiredRoles[0] != "mentor" {
		t.Errorf("RequiredRoles = %v", c.RequiredRoles)
	}
}

func TestCriteria_DecodeEmpty(t *testing.T) {
	tpl := TrailTemplate{ID: "tpl-abc12", AvailableToAll: true}

	c, err := tpl.Criteria()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.AvailableToAll {
		t.Error("AvailableToAll = false, want true")
	}
	if c.RequiredTags != nil || c.RequiredRoles != nil {
		t.Errorf("expected nil tag/role sets, got %v / %v", c.RequiredTags, c.RequiredRoles)
	}
}

func TestCriteria_DecodeMalformed(t *testing.T) {
	tpl := TrailTemplate{ID: "tpl-abc12", RequiredTags: `{not json`}
	if _, err := tpl.Criteria(); err == nil {
		t.Fatal("expected error for malformed tags column")
	}
}

func TestEncodeStringList(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{"nil", nil, "[]"},
		{"empty", []string{}, "[]"},
		{"single", []string{"vip"}, `["vip"]`},
		{"multiple", []string{"a", "b"}, `["a","b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeStringList(tt.values); got != tt.want {
				t.Errorf("EncodeStringList(%v) = %q, want %q", tt.values, got, tt.want)
			}
		})
	}
}

func TestDecodeStringList_RoundTrip(t *testing.T) {
	in := []string{"vip", "founder"}
	out, err := DecodeStringList(EncodeStringList(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0] != "vip" || out[1] != "founder" {
		t.Errorf("round trip = %v, want %v", out, in)
	}
}
