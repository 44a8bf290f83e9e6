// Package selection keeps a race-resistant record of what the user most
// recently selected in the document view.
//
// Browsers clear the selection when focus moves to an action button, before
// the button's click handler runs. The tracker therefore records every
// selection event, lets the action handler capture the live selection on
// mouse-down, and falls back to the last recorded snapshot and then to a
// session backup.
package selection

import (
	"strings"
	"sync"
	"time"

	apperrors "regdraft/internal/errors"

	"github.com/sirupsen/logrus"
)

type EventKind string

const (
	EventSelectionChange EventKind = "selectionchange"
	EventMouseUp         EventKind = "mouseup"
	EventMouseDown       EventKind = "mousedown"
)

// Origin records which path produced a snapshot.
type Origin string

const (
	OriginSelectionChange Origin = "selectionchange"
	OriginMouseUp         Origin = "mouseup"
	OriginPreClick        Origin = "preclick"
	OriginBackup          Origin = "backup"
)

// Event is a selection related UI event with the selection text read at that moment.
type Event struct {
	Kind EventKind `json:"kind"`
	Text string    `json:"text"`
}

// Snapshot is the last captured selection. The zero value is an empty, invalid snapshot.
type Snapshot struct {
	Text       string    `json:"text"`
	Seq        uint64    `json:"seq"`
	Origin     Origin    `json:"origin"`
	CapturedAt time.Time `json:"captured_at"`
	Valid      bool      `json:"valid"`
}

type TargetKind string

const (
	TargetSelected TargetKind = "selected"
	TargetSection  TargetKind = "section"
)

// Target is what an edit action should operate on.
type Target struct {
	Kind TargetKind `json:"kind"`
	Text string     `json:"text"`
	// Rejected is set when a selection existed but failed validation.
	Rejected bool `json:"rejected,omitempty"`
}

// Tracker holds the selection state of one editing session.
type Tracker struct {
	mu        sync.Mutex
	session   string
	current   Snapshot
	seq       uint64
	validator *Validator
	backup    Backup
	now       func() time.Time
	log       logrus.FieldLogger
}

func NewTracker(session string, v *Validator, b Backup, log logrus.FieldLogger) *Tracker {
	if v == nil {
		v = NewValidator(DefaultThresholds())
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Tracker{
		session:   session,
		validator: v,
		backup:    b,
		now:       time.Now,
		log:       log.WithField("session", session),
	}
}

// Record applies a selection event. Mouse-down starts a new gesture and
// clears everything; selection-change and mouse-up overwrite the snapshot
// only when they carry text.
func (t *Tracker) Record(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Kind {
	case EventMouseDown:
		t.clearLocked()
	case EventSelectionChange:
		t.storeLocked(ev.Text, OriginSelectionChange)
	case EventMouseUp:
		t.storeLocked(ev.Text, OriginMouseUp)
	default:
		t.log.WithField("kind", ev.Kind).Debug("ignoring unknown selection event")
	}
}

// CaptureAtActionTime must be called in the mouse-down phase of an action
// button. A non-empty live read wins over anything stored.
func (t *Tracker) CaptureAtActionTime(live string) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.storeLocked(live, OriginPreClick) {
		return t.current
	}
	if t.current.Valid {
		return t.current
	}
	if t.backup != nil {
		if text, ok := t.backup.Take(t.session); ok && strings.TrimSpace(text) != "" {
			t.seq++
			t.current = Snapshot{Text: text, Seq: t.seq, Origin: OriginBackup, CapturedAt: t.now(), Valid: true}
			return t.current
		}
	}
	return Snapshot{}
}

// Resolve decides whether the action targets the captured selection or the
// whole section. The backup is consumed either way.
func (t *Tracker) Resolve(content string) (Target, error) {
	t.mu.Lock()
	snap := t.current
	if t.backup != nil {
		t.backup.Clear(t.session)
	}
	t.mu.Unlock()

	if snap.Valid {
		if t.validator.IsSelectionValid(snap.Text, content) {
			return Target{Kind: TargetSelected, Text: snap.Text}, nil
		}
		t.log.WithFields(logrus.Fields{
			"seq":    snap.Seq,
			"origin": snap.Origin,
			"length": len(snap.Text),
		}).Info("selection rejected, falling back to whole section")
		if content == "" {
			return Target{}, apperrors.ErrSelectionUnavailable
		}
		return Target{Kind: TargetSection, Text: content, Rejected: true}, nil
	}

	if content == "" {
		return Target{}, apperrors.ErrSelectionUnavailable
	}
	return Target{Kind: TargetSection, Text: content}, nil
}

// Current returns the stored snapshot.
func (t *Tracker) Current() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Clear drops the snapshot and its backup.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLocked()
}

func (t *Tracker) storeLocked(text string, origin Origin) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	t.seq++
	t.current = Snapshot{
		Text:       text,
		Seq:        t.seq,
		Origin:     origin,
		CapturedAt: t.now(),
		Valid:      true,
	}
	if t.backup != nil {
		t.backup.Save(t.session, text)
	}
	return true
}

func (t *Tracker) clearLocked() {
	t.current = Snapshot{}
	if t.backup != nil {
		t.backup.Clear(t.session)
	}
}
