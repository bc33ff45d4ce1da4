package events

import "testing"

func TestPublishReachesSubscribers(t *testing.T) {
	b := NewBus()
	ch, unsub := b.Subscribe(TopicSignal, 4)
	defer unsub()

	b.Publish(TopicSignal, "payload")
	b.Publish(TopicTrade, "other topic")

	select {
	case got := <-ch:
		if got != "payload" {
			t.Fatalf("got %v, expected payload", got)
		}
	default:
		t.Fatal("subscriber did not receive payload")
	}
	select {
	case got := <-ch:
		t.Fatalf("received payload from unsubscribed topic: %v", got)
	default:
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	b := NewBus()
	_, unsub := b.Subscribe(TopicTrade, 1)
	defer unsub()

	// Second publish overflows the buffer; it must return immediately.
	b.Publish(TopicTrade, 1)
	b.Publish(TopicTrade, 2)

	if b.Dropped() != 1 {
		t.Fatalf("Dropped=%d, expected 1", b.Dropped())
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	ch, unsub := b.Subscribe(TopicStatus, 1)
	unsub()

	if _, open := <-ch; open {
		t.Fatal("channel must be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	b.Publish(TopicStatus, "late")
}
