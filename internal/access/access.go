// Package access evaluates template admission criteria against user profiles.
package access

import "github.com/veredas/trailhead/internal/models"

// Profile holds the user attributes the evaluator reads. It is fetched
// from the user directory; a zero Profile satisfies no criterion.
type Profile struct {
	Level int
	Tags  []string
	Roles []string
}

// IsEligible reports whether a user profile satisfies the template's
// access criteria. Pure: no I/O, no side effects.
//
// Tags are conjunctive (the user must hold every required tag); roles are
// disjunctive (holding any one required role is enough). Roles are
// mutually exclusive categories, tags are additive attributes.
func IsEligible(criteria models.AccessCriteria, p Profile) bool {
	if criteria.AvailableToAll {
		return true
	}
	if criteria.RequiredLevel > 0 && p.Level < criteria.RequiredLevel {
		return false
	}
	for _, tag := range criteria.RequiredTags {
		if !contains(p.Tags, tag) {
			return false
		}
	}
	if len(criteria.RequiredRoles) > 0 {
		holdsOne := false
		for _, role := range criteria.RequiredRoles {
			if contains(p.Roles, role) {
				holdsOne = true
				break
			}
		}
		if !holdsOne {
			return false
		}
	}
	return true
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
