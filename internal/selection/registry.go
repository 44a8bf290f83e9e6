package selection

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Registry hands out one Tracker per editing session. Idle sessions expire.
type Registry struct {
	mu        sync.Mutex
	trackers  *cache.Cache
	validator *Validator
	backup    Backup
	log       logrus.FieldLogger
}

func NewRegistry(idle time.Duration, v *Validator, b Backup, log logrus.FieldLogger) *Registry {
	return &Registry{
		trackers:  cache.New(idle, idle),
		validator: v,
		backup:    b,
		log:       log,
	}
}

// Tracker returns the session's tracker, creating it on first use. Every
// call refreshes the idle timeout.
func (r *Registry) Tracker(session string) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.trackers.Get(session); ok {
		t := v.(*Tracker)
		r.trackers.SetDefault(session, t)
		return t
	}
	t := NewTracker(session, r.validator, r.backup, r.log)
	r.trackers.SetDefault(session, t)
	return t
}

// Forget drops a session's tracker, e.g. when its websocket closes for good.
func (r *Registry) Forget(session string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackers.Delete(session)
}
