// Package episode implements the per-camera violence detection state machine.
//
// A machine is fed one label per classified frame sequence. The first violent
// label (or the K-th consecutive one when confirmation is enabled) opens an
// episode: the pre-detection window and the current sequence seed the capture
// accumulator and a notification is raised. The episode keeps growing while
// violent labels arrive and is finalized once enough non-violent frames have
// been seen to cover the post-detection window.
package episode

import (
	"github.com/google/uuid"

	"vigil-worker-go/internal/models"
)

// State of the detection machine.
type State int32

const (
	StateIdle State = iota
	StateAlerting
	StateCooling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAlerting:
		return "alerting"
	case StateCooling:
		return "cooling"
	default:
		return "unknown"
	}
}

// Capturing reports whether an episode is open.
func (s State) Capturing() bool {
	return s == StateAlerting || s == StateCooling
}

type Config struct {
	SequenceLength int
	CooldownFrames int // post-detection window, in frames
	MaxClipFrames  int // accumulator cap; zero disables it
	ConfirmWindows int // consecutive violent labels needed to open an episode
}

// Snapshotter exposes the pre-detection window.
type Snapshotter interface {
	Snapshot() []*models.Frame
}

// Clip is a finalized episode.
type Clip struct {
	NotificationID string
	Frames         []*models.Frame
	Truncated      bool
}

// Decision describes what a single Observe call did.
type Decision struct {
	From State
	To   State

	// Notify is set on the Idle to Alerting transition only.
	Notify         bool
	NotificationID string

	// Clip is non-nil when the episode was finalized by this observation.
	Clip *Clip
}

// Machine is owned by one camera worker and is not safe for concurrent use.
type Machine struct {
	cfg   Config
	newID func() string

	state          State
	streak         int
	acc            []*models.Frame
	notificationID string
	cooldown       int
}

// New creates an idle machine. newID generates notification ids; nil uses
// random UUIDs.
func New(cfg Config, newID func() string) *Machine {
	if cfg.ConfirmWindows < 1 {
		cfg.ConfirmWindows = 1
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Machine{cfg: cfg, newID: newID}
}

func (m *Machine) State() State { return m.state }

// NotificationID of the open episode, empty when idle.
func (m *Machine) NotificationID() string { return m.notificationID }

// Captured is the number of frames in the open episode.
func (m *Machine) Captured() int { return len(m.acc) }

// Observe advances the machine with the label of seq. pre supplies the
// frames that preceded seq and is only read when an episode opens.
func (m *Machine) Observe(label models.Label, seq models.FrameSequence, pre Snapshotter) Decision {
	d := Decision{From: m.state}

	switch m.state {
	case StateIdle:
		if label != models.LabelViolent {
			m.streak = 0
			break
		}
		m.streak++
		if m.streak < m.cfg.ConfirmWindows {
			break
		}

		m.streak = 0
		var window []*models.Frame
		if pre != nil {
			window = pre.Snapshot()
		}
		m.acc = make([]*models.Frame, 0, len(window)+len(seq))
		m.acc = append(m.acc, window...)
		m.acc = append(m.acc, seq...)
		m.notificationID = m.newID()
		m.cooldown = 0
		m.state = StateAlerting

		d.Notify = true
		d.NotificationID = m.notificationID

	case StateAlerting, StateCooling:
		m.acc = append(m.acc, seq...)
		if label == models.LabelViolent {
			m.cooldown = 0
			m.state = StateAlerting
			break
		}

		m.cooldown += len(seq)
		m.state = StateCooling
		if m.cooldown >= m.cfg.CooldownFrames {
			d.Clip = m.finalize(false)
		}
	}

	if d.Clip == nil && m.state.Capturing() && m.cfg.MaxClipFrames > 0 && len(m.acc) >= m.cfg.MaxClipFrames {
		d.Clip = m.finalize(true)
	}
	if d.Clip != nil && d.NotificationID == "" {
		d.NotificationID = d.Clip.NotificationID
	}

	d.To = m.state
	return d
}

// Reset discards any open episode without emitting a clip.
func (m *Machine) Reset() {
	m.state = StateIdle
	m.streak = 0
	m.acc = nil
	m.notificationID = ""
	m.cooldown = 0
}

func (m *Machine) finalize(truncated bool) *Clip {
	c := &Clip{
		NotificationID: m.notificationID,
		Frames:         m.acc,
		Truncated:      truncated,
	}
	m.acc = nil
	m.notificationID = ""
	m.cooldown = 0
	m.state = StateIdle
	return c
}
