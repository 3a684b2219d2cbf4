package bus

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestEventLog_KeepsLastN(t *testing.T) {
	log := NewEventLog(3)
	for i := 0; i < 5; i++ {
		log.Record(Event{Type: EventReceived, MessageID: fmt.Sprint(i)})
	}

	got := log.Recent()
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i, want := range []string{"2", "3", "4"} {
		if got[i].MessageID != want {
			t.Errorf("event %d: expected id %s, got %s", i, want, got[i].MessageID)
		}
	}
}

func TestEventLog_PartiallyFilled(t *testing.T) {
	log := NewEventLog(10)
	log.Record(Event{Type: EventReplied, MessageID: "a"})
	log.Record(Event{Type: EventIgnored, MessageID: "b"})

	got := log.Recent()
	if len(got) != 2 || got[0].MessageID != "a" || got[1].MessageID != "b" {
		t.Fatalf("unexpected events: %+v", got)
	}
	if log.Len() != 2 || log.Cap() != 10 {
		t.Errorf("unexpected len/cap %d/%d", log.Len(), log.Cap())
	}
}

func TestEventLog_StampsTime(t *testing.T) {
	log := NewEventLog(1)
	before := time.Now()
	log.Record(Event{Type: EventReceived})
	if log.Recent()[0].Time.Before(before) {
		t.Error("expected Record to stamp the event time")
	}
}

func TestEventLog_MinimumCapacity(t *testing.T) {
	log := NewEventLog(0)
	log.Record(Event{MessageID: "x"})
	log.Record(Event{MessageID: "y"})
	if got := log.Recent(); len(got) != 1 || got[0].MessageID != "y" {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestEventLog_NilIsNoop(t *testing.T) {
	var log *EventLog
	log.Record(Event{Type: EventReceived})
	if log.Recent() != nil || log.Len() != 0 {
		t.Fatal("nil log should be empty")
	}
}

func TestEventLog_ConcurrentRecord(t *testing.T) {
	log := NewEventLog(50)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				log.Record(Event{Type: EventReceived})
			}
		}()
	}
	wg.Wait()
	if log.Len() != 50 {
		t.Fatalf("expected full log, got %d", log.Len())
	}
}
