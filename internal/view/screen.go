package view

import (
	"sync"
)

// Snapshot is a copy of everything the screen currently shows.
type Snapshot struct {
	Version uint64
	Step    string
	Gallery []Card
	Counter int
	Locked  bool
	Basket  Basket
	Modal   *Modal
}

// Screen is a headless presenter: it keeps the latest rendered page and
// modal so that clients can fetch or stream them. It is safe for concurrent
// readers; writes come from the session event loop.
type Screen struct {
	mu       sync.RWMutex
	snap     Snapshot
	forms    map[Form]FormState
	watchers map[uint64]chan struct{}
	nextID   uint64
}

// NewScreen creates an empty Screen.
func NewScreen() *Screen {
	return &Screen{
		forms:    make(map[Form]FormState),
		watchers: make(map[uint64]chan struct{}),
	}
}

// Snapshot returns a copy of the current screen.
func (s *Screen) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.snap
	out.Gallery = append([]Card(nil), s.snap.Gallery...)
	out.Basket.Rows = append([]BasketRow(nil), s.snap.Basket.Rows...)
	if s.snap.Modal != nil {
		m := copyModal(*s.snap.Modal)
		out.Modal = &m
	}
	return out
}

// FormStateOf returns the last state reported for f.
func (s *Screen) FormStateOf(f Form) FormState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forms[f]
}

// Watch returns a channel that receives a signal after every change, and a
// function that stops watching. Signals are coalesced: a slow reader sees at
// least one signal after the latest change.
func (s *Screen) Watch() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	ch := make(chan struct{}, 1)
	s.watchers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
}

// update applies fn under the write lock and notifies watchers.
func (s *Screen) update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn()
	s.snap.Version++
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Screen) Gallery(cards []Card) {
	s.update(func() { s.snap.Gallery = append([]Card(nil), cards...) })
}

func (s *Screen) Counter(n int) {
	s.update(func() { s.snap.Counter = n })
}

func (s *Screen) Basket(b Basket) {
	s.update(func() {
		s.snap.Basket = b
		if m := s.snap.Modal; m != nil && m.Kind == ModalBasket {
			bc := b
			m.Basket = &bc
		}
	})
}

func (s *Screen) Open(m Modal) {
	s.update(func() {
		mc := copyModal(m)
		if mc.Delivery != nil {
			s.forms[FormDelivery] = mc.Delivery.State
		}
		if mc.Contacts != nil {
			s.forms[FormContacts] = mc.Contacts.State
		}
		s.snap.Modal = &mc
	})
}

func (s *Screen) FormState(f Form, st FormState) {
	s.update(func() {
		s.forms[f] = st
		m := s.snap.Modal
		switch {
		case m == nil:
		case f == FormDelivery && m.Delivery != nil:
			m.Delivery.State = st
		case f == FormContacts && m.Contacts != nil:
			m.Contacts.State = st
		}
	})
}

func (s *Screen) Close() {
	s.update(func() { s.snap.Modal = nil })
}

func (s *Screen) Lock(locked bool) {
	s.update(func() { s.snap.Locked = locked })
}

func (s *Screen) Step(step string) {
	s.update(func() { s.snap.Step = step })
}

func copyModal(m Modal) Modal {
	if m.Preview != nil {
		c := *m.Preview
		m.Preview = &c
	}
	if m.Basket != nil {
		b := *m.Basket
		b.Rows = append([]BasketRow(nil), b.Rows...)
		m.Basket = &b
	}
	if m.Delivery != nil {
		d := *m.Delivery
		d.State.Errors = append([]string(nil), d.State.Errors...)
		m.Delivery = &d
	}
	if m.Contacts != nil {
		c := *m.Contacts
		c.State.Errors = append([]string(nil), c.State.Errors...)
		m.Contacts = &c
	}
	if m.Success != nil {
		sc := *m.Success
		m.Success = &sc
	}
	return m
}
