package access

import (
	"testing"

	"github.com/veredas/trailhead/internal/models"
)

func TestIsEligible_AvailableToAll(t *testing.T) {
	criteria := models.AccessCriteria{
		AvailableToAll: true,
		RequiredLevel:  99,
		RequiredTags:   []string{"vip"},
		RequiredRoles:  []string{"mentor"},
	}

	// availableToAll short-circuits every other criterion, even for an
	// empty profile.
	if !IsEligible(criteria, Profile{}) {
		t.Error("IsEligible = false for availableToAll, want true")
	}
}

func TestIsEligible_Level(t *testing.T) {
	criteria := models.AccessCriteria{RequiredLevel: 3}

	tests := []struct {
		name  string
		level int
		want  bool
	}{
		{"below", 2, false},
		{"exact", 3, true},
		{"above", 5, true},
		{"absent", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsEligible(criteria, Profile{Level: tt.level})
			if got != tt.want {
				t.Errorf("IsEligible(level=%d) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestIsEligible_TagsConjunctive(t *testing.T) {
	criteria := models.AccessCriteria{RequiredTags: []string{"vip", "founder"}}

	tests := []struct {
		name string
		tags []string
		want bool
	}{
		{"none", nil, false},
		{"one of two", []string{"vip"}, false},
		{"all", []string{"vip", "founder"}, true},
		{"all plus extras", []string{"founder", "vip", "beta"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsEligible(criteria, Profile{Tags: tt.tags})
			if got != tt.want {
				t.Errorf("IsEligible(tags=%v) = %v, want %v", tt.tags, got, tt.want)
			}
		})
	}
}

func TestIsEligible_RolesDisjunctive(t *testing.T) {
	criteria := models.AccessCriteria{RequiredRoles: []string{"mentor", "moderator"}}

	tests := []struct {
		name  string
		roles []string
		want  bool
	}{
		{"none", nil, false},
		{"unrelated", []string{"member"}, false},
		{"one match", []string{"mentor"}, true},
		{"other match", []string{"member", "moderator"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsEligible(criteria, Profile{Roles: tt.roles})
			if got != tt.want {
				t.Errorf("IsEligible(roles=%v) = %v, want %v", tt.roles, got, tt.want)
			}
		})
	}
}

func TestIsEligible_Conjunction(t *testing.T) {
	criteria := models.AccessCriteria{
		RequiredLevel: 2,
		RequiredTags:  []string{"vip"},
		RequiredRoles: []string{"mentor"},
	}

	full := Profile{Level: 2, Tags: []string{"vip"}, Roles: []string{"mentor"}}
	if !IsEligible(criteria, full) {
		t.Error("IsEligible = false for fully qualified profile, want true")
	}

	// Each missing attribute alone fails the whole conjunction.
	noLevel := Profile{Level: 1, Tags: []string{"vip"}, Roles: []string{"mentor"}}
	if IsEligible(criteria, noLevel) {
		t.Error("IsEligible = true with insufficient level, want false")
	}
	noTag := Profile{Level: 2, Roles: []string{"mentor"}}
	if IsEligible(criteria, noTag) {
		t.Error("IsEligible = true without required tag, want false")
	}
	noRole := Profile{Level: 2, Tags: []string{"vip"}}
	if IsEligible(criteria, noRole) {
		t.Error("IsEligible = true without any required role, want false")
	}
}

func TestIsEligible_NoCriteria(t *testing.T) {
	// availableToAll=false with nothing else set admits everyone: there is
	// no criterion left to fail.
	if !IsEligible(models.AccessCriteria{}, Profile{}) {
		t.Error("IsEligible = false for empty criteria, want true")
	}
}
