package orchestrator

// rateLimiter enforces the per-entity action budget: a minimum
// inter-action cooldown plus a rolling hourly cap. Exceeding either is a
// normal no-action outcome, not an error. Not safe for concurrent use;
// the owning entity's lock covers it.
type rateLimiter struct {
	cooldownMs int64
	hourlyCap  int

	lastActionMs int64
	// window holds the timestamps of actions in the trailing hour.
	window []int64
}

const hourMs = int64(60 * 60 * 1000)

// Rate-limit denial reasons.
const (
	reasonCooldown  = "ACTION_COOLDOWN"
	reasonHourlyCap = "HOURLY_CAP"
)

// eligible reports whether an action may run now. taper multiplies the
// cooldown (COOLDOWN-state entities intervene less often, not never).
// When denied it returns the reason and the earliest eligible timestamp.
func (r *rateLimiter) eligible(nowMs int64, taper int64) (ok bool, reason string, nextMs int64) {
	if taper < 1 {
		taper = 1
	}

	cooldown := r.cooldownMs * taper
	if r.lastActionMs > 0 && nowMs-r.lastActionMs < cooldown {
		return false, reasonCooldown, r.lastActionMs + cooldown
	}

	r.trim(nowMs)
	if r.hourlyCap > 0 && len(r.window) >= r.hourlyCap {
		return false, reasonHourlyCap, r.window[0] + hourMs
	}

	return true, "", 0
}

// record notes an executed action.
func (r *rateLimiter) record(nowMs int64) {
	r.lastActionMs = nowMs
	r.window = append(r.window, nowMs)
	r.trim(nowMs)
}

// actionsThisHour returns the rolling-window count.
func (r *rateLimiter) actionsThisHour(nowMs int64) int {
	r.trim(nowMs)
	return len(r.window)
}

// nextEligible returns when the entity may act again, 0 if eligible now.
func (r *rateLimiter) nextEligible(nowMs int64, taper int64) int64 {
	ok, _, next := r.eligible(nowMs, taper)
	if ok {
		return 0
	}
	return next
}

func (r *rateLimiter) trim(nowMs int64) {
	cutoff := nowMs - hourMs
	i := 0
	for i < len(r.window) && r.window[i] <= cutoff {
		i++
	}
	if i > 0 {
		r.window = r.window[i:]
	}
}
