package resilience

import "time"

// PublishPolicy bounds how long announcing one file outcome may hold up ingestion.
// Publishes happen once per file after its ledger row is written, so the breaker
// trips on consecutive failures rather than on a failure ratio over many calls.
type PublishPolicy struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// AttemptTimeout caps a single publish including the server round trip.
	AttemptTimeout time.Duration

	BreakerEnabled bool
	// TripAfter consecutive counted failures open the breaker.
	TripAfter uint32
	// OpenFor is how long publishes fail fast before a probe is let through.
	OpenFor        time.Duration
	HalfOpenProbes uint32
}

func DefaultPublishPolicy() PublishPolicy {
	return PublishPolicy{
		Attempts:       3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     time.Second,
		AttemptTimeout: 2 * time.Second,

		BreakerEnabled: true,
		TripAfter:      3,
		OpenFor:        time.Minute,
		HalfOpenProbes: 1,
	}
}

func (p PublishPolicy) normalize() PublishPolicy {
	def := DefaultPublishPolicy()
	if p.Attempts <= 0 {
		p.Attempts = def.Attempts
	}
	if p.InitialBackoff < 0 {
		p.InitialBackoff = 0
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	if p.AttemptTimeout < 0 {
		p.AttemptTimeout = 0
	}
	if p.TripAfter == 0 {
		p.TripAfter = def.TripAfter
	}
	if p.OpenFor <= 0 {
		p.OpenFor = def.OpenFor
	}
	if p.HalfOpenProbes == 0 {
		p.HalfOpenProbes = def.HalfOpenProbes
	}
	return p
}

// backoff is the wait after the given failed attempt: doubling from InitialBackoff, capped at MaxBackoff.
func (p PublishPolicy) backoff(attempt int) time.Duration {
	wait := p.InitialBackoff
	for i := 1; i < attempt && wait < p.MaxBackoff; i++ {
		wait *= 2
	}
	if wait > p.MaxBackoff {
		wait = p.MaxBackoff
	}
	return wait
}
