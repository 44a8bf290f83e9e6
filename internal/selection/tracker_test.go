package selection

import (
	"io"
	"testing"
	"time"

	apperrors "regdraft/internal/errors"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestTracker(b Backup) *Tracker {
	return NewTracker("s1", NewValidator(DefaultThresholds()), b, quietLogger())
}

const sectionText = "Para A. Para B. Para C."

func TestTracker_RecordOverwritesOnlyWithText(t *testing.T) {
	tr := newTestTracker(nil)

	tr.Record(Event{Kind: EventSelectionChange, Text: "Para B."})
	tr.Record(Event{Kind: EventSelectionChange, Text: ""})
	snap := tr.Current()
	assert.True(t, snap.Valid)
	assert.Equal(t, "Para B.", snap.Text)
	assert.Equal(t, OriginSelectionChange, snap.Origin)

	tr.Record(Event{Kind: EventMouseUp, Text: "Para C."})
	snap2 := tr.Current()
	assert.Equal(t, "Para C.", snap2.Text)
	assert.Equal(t, OriginMouseUp, snap2.Origin)
	assert.Greater(t, snap2.Seq, snap.Seq)
}

func TestTracker_MouseDownClears(t *testing.T) {
	b := NewCacheBackup(time.Minute)
	tr := newTestTracker(b)

	tr.Record(Event{Kind: EventMouseUp, Text: "Para B."})
	tr.Record(Event{Kind: EventMouseDown})
	tr.Record(Event{Kind: EventMouseUp, Text: ""})

	assert.False(t, tr.Current().Valid)
	_, ok := b.Take("s1")
	assert.False(t, ok)

	target, err := tr.Resolve(sectionText)
	require.NoError(t, err)
	assert.Equal(t, TargetSection, target.Kind)
	assert.Equal(t, sectionText, target.Text)
}

func TestTracker_PreClickCaptureWins(t *testing.T) {
	tr := newTestTracker(NewCacheBackup(time.Minute))

	tr.Record(Event{Kind: EventMouseUp, Text: "Para A."})
	snap := tr.CaptureAtActionTime("Para B.")
	assert.Equal(t, "Para B.", snap.Text)
	assert.Equal(t, OriginPreClick, snap.Origin)

	// the click itself sees a cleared live selection
	snap = tr.CaptureAtActionTime("")
	assert.Equal(t, "Para B.", snap.Text)

	target, err := tr.Resolve(sectionText)
	require.NoError(t, err)
	assert.Equal(t, Target{Kind: TargetSelected, Text: "Para B."}, target)
}

func TestTracker_BackupFallback(t *testing.T) {
	b := NewCacheBackup(time.Minute)
	first := newTestTracker(b)
	first.Record(Event{Kind: EventSelectionChange, Text: "Para C."})

	// a fresh tracker for the same session only has the backup to go on
	second := newTestTracker(b)
	snap := second.CaptureAtActionTime("")
	require.True(t, snap.Valid)
	assert.Equal(t, OriginBackup, snap.Origin)
	assert.Equal(t, "Para C.", snap.Text)

	_, ok := b.Take("s1")
	assert.False(t, ok, "backup is consumed once taken")
}

func TestTracker_NothingCaptured(t *testing.T) {
	tr := newTestTracker(NewCacheBackup(time.Minute))
	snap := tr.CaptureAtActionTime("   ")
	assert.False(t, snap.Valid)
	assert.Empty(t, snap.Text)
}

func TestTracker_ResolveRejectedSelectionFallsBackToSection(t *testing.T) {
	tr := newTestTracker(nil)
	tr.CaptureAtActionTime("totally different")

	target, err := tr.Resolve(sectionText)
	require.NoError(t, err)
	assert.Equal(t, TargetSection, target.Kind)
	assert.True(t, target.Rejected)
	assert.Equal(t, sectionText, target.Text)
}

func TestTracker_ResolveWithoutContent(t *testing.T) {
	tr := newTestTracker(nil)
	_, err := tr.Resolve("")
	assert.ErrorIs(t, err, apperrors.ErrSelectionUnavailable)

	tr.CaptureAtActionTime("Para A.")
	_, err = tr.Resolve("")
	assert.ErrorIs(t, err, apperrors.ErrSelectionUnavailable)
}

func TestTracker_ResolveConsumesBackup(t *testing.T) {
	b := NewCacheBackup(time.Minute)
	tr := newTestTracker(b)
	tr.CaptureAtActionTime("Para A.")

	_, err := tr.Resolve(sectionText)
	require.NoError(t, err)
	_, ok := b.Take("s1")
	assert.False(t, ok)
}

func TestRegistry_ReusesTrackers(t *testing.T) {
	r := NewRegistry(time.Minute, NewValidator(DefaultThresholds()), NewCacheBackup(time.Minute), quietLogger())

	a := r.Tracker("a")
	assert.Same(t, a, r.Tracker("a"))
	assert.NotSame(t, a, r.Tracker("b"))

	r.Forget("a")
	assert.NotSame(t, a, r.Tracker("a"))
}
