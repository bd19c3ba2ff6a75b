package ui

import (
	"sync"

	hook "github.com/robotn/gohook"
)

// DefaultKeys maps each button to a keyboard key for desktop use.
func DefaultKeys() map[Button]string {
	return map[Button]string{
		Up:    "up",
		Down:  "down",
		Left:  "left",
		Right: "right",
		Enter: "enter",
		A:     "a",
		B:     "b",
		X:     "x",
		Y:     "y",
	}
}

// KeyButtons emulates the handheld's buttons with global keyboard hooks.
// KeyDown latches a press edge and marks the button held, KeyUp releases it.
type KeyButtons struct {
	keys map[Button]string

	mu    sync.Mutex
	edges uint16
	held  uint16

	done chan struct{}
	once sync.Once
}

// NewKeyButtons creates buttons for the given key mapping.
func NewKeyButtons(keys map[Button]string) *KeyButtons {
	return &KeyButtons{
		keys: keys,
		done: make(chan struct{}),
	}
}

// Start begins listening for keys.
// This function blocks until Stop is called. Run it in a goroutine.
func (k *KeyButtons) Start() {
	for b, key := range k.keys {
		hook.Register(hook.KeyDown, []string{key}, func(e hook.Event) {
			k.press(b)
		})
		hook.Register(hook.KeyUp, []string{key}, func(e hook.Event) {
			k.release(b)
		})
	}

	evChan := hook.Start()
	go func() {
		<-k.done
		hook.End()
	}()
	<-hook.Process(evChan)
}

// Stop terminates the key listener.
// It is safe to call multiple times.
func (k *KeyButtons) Stop() {
	k.once.Do(func() {
		close(k.done)
	})
}

// Poll returns presses since the last poll and the buttons held now.
func (k *KeyButtons) Poll() Buttons {
	k.mu.Lock()
	defer k.mu.Unlock()
	bs := Buttons{edges: k.edges, held: k.held}
	k.edges = 0
	return bs
}

func (k *KeyButtons) press(b Button) {
	k.mu.Lock()
	defer k.mu.Unlock()
	// Key repeat sends more KeyDowns while held; only the first is an edge.
	if k.held&(1<<b) == 0 {
		k.edges |= 1 << b
	}
	k.held |= 1 << b
}

func (k *KeyButtons) release(b Button) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.held &^= 1 << b
}

var _ Input = (*KeyButtons)(nil)
