package poller

import (
	"math/rand/v2"
	"time"

	"github.com/BearBump/upstrack/internal/models"
)

// Rand must be safe for concurrent use: the poller plans checks from many goroutines.
type Rand interface {
	Intn(n int) int
}

// sharedRand uses the goroutine-safe top-level math/rand/v2 source.
type sharedRand struct{}

func (sharedRand) Intn(n int) int { return rand.IntN(n) }

type PlannerConfig struct {
	DeliveredDelay time.Duration // default: 365 days

	InTransitMinDelay time.Duration // default: 1 minute
	InTransitMaxDelay time.Duration // default: 1 minute

	AttentionDelay time.Duration // exceptions, pickups, returns; default: 30 minutes

	UnknownDelay time.Duration // default: 1 minute

	FailureDelay time.Duration // default: 15 minutes
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		DeliveredDelay: 365 * 24 * time.Hour,

		// Default: 1 minute. This can be overridden via config in track-worker.
		InTransitMinDelay: 1 * time.Minute,
		InTransitMaxDelay: 1 * time.Minute,

		AttentionDelay: 30 * time.Minute,
		UnknownDelay:   1 * time.Minute,
		FailureDelay:   15 * time.Minute,
	}
}

type Planner struct {
	cfg PlannerConfig
	r   Rand
}

func NewPlanner(cfg PlannerConfig, r Rand) *Planner {
	def := DefaultPlannerConfig()
	if cfg.DeliveredDelay <= 0 {
		cfg.DeliveredDelay = def.DeliveredDelay
	}
	if cfg.InTransitMinDelay <= 0 {
		cfg.InTransitMinDelay = def.InTransitMinDelay
	}
	if cfg.InTransitMaxDelay <= 0 {
		cfg.InTransitMaxDelay = def.InTransitMaxDelay
	}
	if cfg.InTransitMaxDelay < cfg.InTransitMinDelay {
		cfg.InTransitMaxDelay = cfg.InTransitMinDelay
	}
	if cfg.AttentionDelay <= 0 {
		cfg.AttentionDelay = def.AttentionDelay
	}
	if cfg.UnknownDelay <= 0 {
		cfg.UnknownDelay = def.UnknownDelay
	}
	if cfg.FailureDelay <= 0 {
		cfg.FailureDelay = def.FailureDelay
	}
	if r == nil {
		r = sharedRand{}
	}
	return &Planner{cfg: cfg, r: r}
}

func (p *Planner) Config() PlannerConfig { return p.cfg }

// NextCheckDelay returns how long to wait before the next UPS check of a tracking
// in the given status.
func (p *Planner) NextCheckDelay(status models.TrackingStatus) time.Duration {
	switch status {
	case models.TrackingStatusDelivered, models.TrackingStatusReturnToSender:
		return p.cfg.DeliveredDelay
	case models.TrackingStatusInTransit, models.TrackingStatusOutForDelivery, models.TrackingStatusDelay:
		return p.inTransitDelay()
	case models.TrackingStatusException, models.TrackingStatusAvailableForPickup, models.TrackingStatusAwaitingPickup:
		return p.cfg.AttentionDelay
	default:
		return p.cfg.UnknownDelay
	}
}

func (p *Planner) inTransitDelay() time.Duration {
	min := p.cfg.InTransitMinDelay
	max := p.cfg.InTransitMaxDelay
	if max == min {
		return min
	}
	secMin := int(min.Seconds())
	secMax := int(max.Seconds())
	if secMin < 0 {
		secMin = 0
	}
	if secMax < secMin {
		secMax = secMin
	}
	return time.Duration(secMin+p.r.Intn(secMax-secMin+1)) * time.Second
}

// FailureDelay is the fixed wait after a failed check. The UPS call itself is never
// retried; the tracking just comes due again later.
func (p *Planner) FailureDelay() time.Duration {
	return p.cfg.FailureDelay
}
