package ratelimit

import (
	"sync"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/logger"
)

// Limiter caps the number of summarizer calls per run so a noisy news day
// cannot burn through the API quota. A max of 0 means unlimited.
type Limiter struct {
	mu   sync.Mutex
	used int
	max  int
}

func New(max int) *Limiter {
	return &Limiter{max: max}
}

// Allow reserves one request slot. It returns false once the budget is spent.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max > 0 && l.used >= l.max {
		return false
	}
	l.used++
	logger.Debug("summary request budget", "used", l.used, "max", l.max)
	return true
}

func (l *Limiter) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used
}
