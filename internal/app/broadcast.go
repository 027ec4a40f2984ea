package app

import "sync"

// viewBroadcaster fans session views out to the subscribers of each session.
type viewBroadcaster struct {
	mu   sync.Mutex
	subs map[string]map[chan SessionView]struct{}
}

func newViewBroadcaster() *viewBroadcaster {
	return &viewBroadcaster{subs: make(map[string]map[chan SessionView]struct{})}
}

func (b *viewBroadcaster) subscribe(sessionID string, initial SessionView) (<-chan SessionView, func()) {
	ch := make(chan SessionView, 8)
	ch <- initial

	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan SessionView]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		set := b.subs[sessionID]
		if _, ok := set[ch]; !ok {
			return
		}
		delete(set, ch)
		close(ch)
		if len(set) == 0 {
			delete(b.subs, sessionID)
		}
	}
	return ch, cancel
}

// publish never blocks: a slow subscriber loses its oldest pending view.
func (b *viewBroadcaster) publish(view SessionView) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[view.ID] {
		select {
		case ch <- view:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}
