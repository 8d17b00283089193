package narration

// MockSynthesizer is a scriptable Synthesizer for tests. Callbacks for each
// utterance are held until the test calls Start or End, unless AutoStart is set.
type MockSynthesizer struct {
	// SpeakFunc, when set, replaces the default Speak behaviour.
	SpeakFunc func(u Utterance, onStart func(), onEnd func(error))
	// AutoStart invokes onStart inside Speak.
	AutoStart bool

	Utterances  []Utterance
	CancelCalls int
	PauseCalls  int
	ResumeCalls int

	speaking  bool
	paused    bool
	callbacks map[uint64]mockCallbacks
}

type mockCallbacks struct {
	onStart func()
	onEnd   func(error)
}

var _ Synthesizer = (*MockSynthesizer)(nil)

// NewMockSynthesizer creates a MockSynthesizer.
func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{callbacks: make(map[uint64]mockCallbacks)}
}

func (m *MockSynthesizer) Speak(u Utterance, onStart func(), onEnd func(error)) {
	m.Utterances = append(m.Utterances, u)
	if m.SpeakFunc != nil {
		m.SpeakFunc(u, onStart, onEnd)
		return
	}
	m.callbacks[u.ID] = mockCallbacks{onStart: onStart, onEnd: onEnd}
	m.speaking = true
	m.paused = false
	if m.AutoStart && onStart != nil {
		onStart()
	}
}

// Start fires the onStart callback of utterance id.
func (m *MockSynthesizer) Start(id uint64) {
	if cb, ok := m.callbacks[id]; ok && cb.onStart != nil {
		cb.onStart()
	}
}

// End fires the onEnd callback of utterance id with err.
func (m *MockSynthesizer) End(id uint64, err error) {
	cb, ok := m.callbacks[id]
	if !ok {
		return
	}
	delete(m.callbacks, id)
	m.speaking = false
	m.paused = false
	if cb.onEnd != nil {
		cb.onEnd(err)
	}
}

// Last returns the most recent utterance, or the zero Utterance.
func (m *MockSynthesizer) Last() Utterance {
	if len(m.Utterances) == 0 {
		return Utterance{}
	}
	return m.Utterances[len(m.Utterances)-1]
}

func (m *MockSynthesizer) Pause() {
	m.PauseCalls++
	m.paused = true
}

func (m *MockSynthesizer) Resume() {
	m.ResumeCalls++
	m.paused = false
}

func (m *MockSynthesizer) Cancel() {
	m.CancelCalls++
	m.speaking = false
	m.paused = false
}

func (m *MockSynthesizer) Speaking() bool { return m.speaking }
func (m *MockSynthesizer) Paused() bool   { return m.paused }
