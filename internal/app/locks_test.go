package app

import (
	"sync"
	"testing"
)

func TestKeyedMutexSerialisesAndForgets(t *testing.T) {
	k := newKeyedMutex()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.lock("s1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 increments, got %d", counter)
	}
	if len(k.locks) != 0 {
		t.Fatalf("expected idle keys to be dropped, got %d", len(k.locks))
	}
}

func TestBroadcastDropsStaleViews(t *testing.T) {
	b := newViewBroadcaster()
	ch, cancel := b.subscribe("s1", SessionView{ID: "s1"})

	for i := 0; i < 20; i++ {
		b.publish(SessionView{ID: "s1", TotalQuestions: i})
	}
	b.publish(SessionView{ID: "other", TotalQuestions: 99})

	var last SessionView
	for len(ch) > 0 {
		last = <-ch
	}
	if last.TotalQuestions != 19 {
		t.Fatalf("expected newest view to survive, got %+v", last)
	}

	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after cancel")
	}
	cancel()
	if len(b.subs) != 0 {
		t.Fatalf("expected subscriber map to be empty, got %d", len(b.subs))
	}
}
