package transcoding

import (
	"github.com/pokerist/marmaricatv-sub001/internal/config"
	"github.com/pokerist/marmaricatv-sub001/internal/models"
)

// Decision is an admission verdict with the occupancy that produced it.
type Decision struct {
	Allowed bool               `json:"allowed"`
	Tier    models.ProfileTier `json:"tier"`
	Current int                `json:"current"`
	Max     int                `json:"max"`
}

// TierOccupancy reports live and maximum session counts for one tier.
type TierOccupancy struct {
	Tier    models.ProfileTier `json:"tier"`
	Current int                `json:"current"`
	Max     int                `json:"max"`
}

// LimitFor returns the configured ceiling for the tier. Zero disables the
// tier entirely.
func LimitFor(limits config.TierLimitsConfig, tier models.ProfileTier) int {
	switch tier {
	case models.TierCopy:
		return limits.Copy
	case models.TierLow:
		return limits.Low
	case models.TierMedium:
		return limits.Medium
	case models.TierHigh:
		return limits.High
	default:
		return 0
	}
}

// decide is the pure admission arithmetic: no I/O, no locks.
func decide(tier models.ProfileTier, current, limit int) Decision {
	return Decision{
		Allowed: limit > 0 && current < limit,
		Tier:    tier,
		Current: current,
		Max:     limit,
	}
}

// Admission answers whether a new job at a given tier fits under the
// configured concurrency ceilings. Answers are advisory: they read a registry
// snapshot without holding the lock across the caller's spawn, so the
// supervisor re-validates inside Registry.Admit immediately before inserting
// the session. The race this leaves open is a bounded over-ask, never an
// over-admission.
type Admission struct {
	limits   config.TierLimitsConfig
	registry *Registry
}

// NewAdmission creates an admission controller over the registry.
func NewAdmission(limits config.TierLimitsConfig, registry *Registry) *Admission {
	return &Admission{limits: limits, registry: registry}
}

// Check returns the advisory verdict for starting one more job at the tier.
func (a *Admission) Check(tier models.ProfileTier) Decision {
	return decide(tier, a.registry.CountTier(tier), LimitFor(a.limits, tier))
}

// Occupancy returns current/max for every tier, cheapest first, for the
// system health view.
func (a *Admission) Occupancy() []TierOccupancy {
	counts := a.registry.CountByTier()
	out := make([]TierOccupancy, 0, len(counts))
	for _, t := range models.AllTiers() {
		out = append(out, TierOccupancy{
			Tier:    t,
			Current: counts[t],
			Max:     LimitFor(a.limits, t),
		})
	}
	return out
}
