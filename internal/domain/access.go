package domain

import (
	"fmt"
	"time"
)

// PrivacyTier restricts which roles may view a profile, assessment, or alert.
// Tiers are ordered: ANONYMOUS < CONFIDENTIAL < RESTRICTED < EMERGENCY.
type PrivacyTier string

const (
	TierAnonymous    PrivacyTier = "anonymous"
	TierConfidential PrivacyTier = "confidential"
	TierRestricted   PrivacyTier = "restricted"
	TierEmergency    PrivacyTier = "emergency"
)

// tierRank orders privacy tiers for monotonicity checks. Comparison is done
// on ranks, never on ordinal serialization: the wire format stays a string tag.
func (t PrivacyTier) tierRank() int {
	switch t {
	case TierAnonymous:
		return 0
	case TierConfidential:
		return 1
	case TierRestricted:
		return 2
	case TierEmergency:
		return 3
	default:
		return -1
	}
}

// Valid reports whether the tier is one of the four known tiers.
func (t PrivacyTier) Valid() bool {
	return t.tierRank() >= 0
}

// AtLeast reports whether t is the same tier as other or a stricter one.
func (t PrivacyTier) AtLeast(other PrivacyTier) bool {
	return t.tierRank() >= other.tierRank()
}

// MaxTier returns the stricter of the two tiers.
func MaxTier(a, b PrivacyTier) PrivacyTier {
	if b.tierRank() > a.tierRank() {
		return b
	}
	return a
}

// Role identifies a member of the support chain around a subject.
type Role string

const (
	RoleTeacher           Role = "teacher"
	RolePeerSupport       Role = "peer_support"
	RoleCounselor         Role = "school_counselor"
	RoleNurse             Role = "school_nurse"
	RoleHOD               Role = "hod"
	RoleParentGuardian    Role = "parent_guardian"
	RoleCoordinator       Role = "wellbeing_coordinator"
	RoleCrisisTeam        Role = "crisis_team"
	RoleEmergencyServices Role = "emergency_services"
)

// TierPolicy is the access rule for one privacy tier: an explicit role
// allow-list and a data retention duration.
type TierPolicy struct {
	AllowedRoles []Role
	Retention    time.Duration
}

// AccessPolicy enforces which roles may read a resource at a given privacy
// tier. It is injected rather than global so tests can substitute alternate
// allow-lists.
type AccessPolicy struct {
	tiers map[PrivacyTier]TierPolicy
}

// NewAccessPolicy builds a policy from explicit tier rules.
func NewAccessPolicy(tiers map[PrivacyTier]TierPolicy) *AccessPolicy {
	return &AccessPolicy{tiers: tiers}
}

const day = 24 * time.Hour

// DefaultAccessPolicy returns the standard allow-lists for the four tiers.
func DefaultAccessPolicy() *AccessPolicy {
	return NewAccessPolicy(map[PrivacyTier]TierPolicy{
		TierAnonymous: {
			AllowedRoles: []Role{
				RoleTeacher, RolePeerSupport, RoleCounselor, RoleNurse,
				RoleHOD, RoleParentGuardian, RoleCoordinator,
				RoleCrisisTeam, RoleEmergencyServices,
			},
			Retention: 5 * 365 * day,
		},
		TierConfidential: {
			AllowedRoles: []Role{
				RoleCounselor, RoleNurse, RoleHOD, RoleParentGuardian,
				RoleCoordinator, RoleCrisisTeam, RoleEmergencyServices,
			},
			Retention: 3 * 365 * day,
		},
		TierRestricted: {
			AllowedRoles: []Role{RoleCounselor, RoleHOD, RoleParentGuardian},
			Retention:    365 * day,
		},
		TierEmergency: {
			AllowedRoles: []Role{
				RoleCounselor, RoleCoordinator, RoleCrisisTeam, RoleEmergencyServices,
			},
			Retention: 90 * day,
		},
	})
}

// Authorize checks that role may read a resource at tier. It fails closed:
// an unknown role, unknown tier, or missing tier entry denies access.
func (p *AccessPolicy) Authorize(role Role, tier PrivacyTier) error {
	policy, ok := p.tiers[tier]
	if !ok {
		return fmt.Errorf("%w: no policy for tier %q", ErrAccessDenied, tier)
	}
	for _, allowed := range policy.AllowedRoles {
		if role == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q may not read tier %q", ErrAccessDenied, role, tier)
}

// Retention returns the data retention duration for tier, or zero if the
// tier is unknown.
func (p *AccessPolicy) Retention(tier PrivacyTier) time.Duration {
	return p.tiers[tier].Retention
}

// MinTierForRole returns the lowest tier whose allow-list contains role.
// Used by the escalation router to lift an alert's tier to what its
// personnel list requires. Returns TierEmergency when no tier allows the
// role, which keeps the gate failing closed.
func (p *AccessPolicy) MinTierForRole(role Role) PrivacyTier {
	for _, tier := range []PrivacyTier{TierAnonymous, TierConfidential, TierRestricted, TierEmergency} {
		if p.Authorize(role, tier) == nil {
			return tier
		}
	}
	return TierEmergency
}
