package feed

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"civicx-be/models"
)

func createdEvent(createdBy primitive.ObjectID) Event {
	return Event{
		Kind: EventIssueCreated,
		Issue: models.Issue{
			ID:        primitive.NewObjectID(),
			Title:     "Pothole on 5th",
			Category:  models.Pothole,
			Status:    models.StatusPending,
			CreatedBy: createdBy,
		},
	}
}

func TestDispatchRoleFilter(t *testing.T) {
	n := NewNotifier(nil, "test", nil)

	var officialGot, citizenGot []Event
	n.Register(ForOfficials(), func(ev Event) {
		officialGot = append(officialGot, ev)
	})
	creator := primitive.NewObjectID()
	bystander := primitive.NewObjectID()
	n.Register(ForCreator(bystander.Hex()), func(ev Event) {
		citizenGot = append(citizenGot, ev)
	})

	n.Dispatch(createdEvent(creator))

	if len(officialGot) != 1 {
		t.Fatalf("officials listener got %d events, want 1", len(officialGot))
	}
	if len(citizenGot) != 0 {
		t.Fatalf("citizen listener got %d events, want 0", len(citizenGot))
	}
}

func TestDispatchResolvedGoesToCreator(t *testing.T) {
	n := NewNotifier(nil, "test", nil)

	creator := primitive.NewObjectID()
	var got []Event
	n.Register(ForCreator(creator.Hex()), func(ev Event) {
		got = append(got, ev)
	})

	ev := createdEvent(creator)
	ev.Kind = EventIssueResolved
	n.Dispatch(ev)

	if len(got) != 1 {
		t.Fatalf("creator listener got %d events, want 1", len(got))
	}
}

func TestDispatchOrderAndPanicIsolation(t *testing.T) {
	n := NewNotifier(nil, "test", nil)

	var order []int
	n.Register(nil, func(Event) { order = append(order, 1) })
	n.Register(nil, func(Event) { panic("bad listener") })
	n.Register(nil, func(Event) { order = append(order, 3) })

	n.Dispatch(createdEvent(primitive.NewObjectID()))

	if len(order) != 2 || order[0] != 1 || order[1] != 3 {
		t.Fatalf("delivery order = %v, want [1 3]", order)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	n := NewNotifier(nil, "test", nil)

	calls := 0
	unsubscribe := n.Register(nil, func(Event) { calls++ })

	n.Dispatch(createdEvent(primitive.NewObjectID()))
	unsubscribe()
	unsubscribe()
	n.Dispatch(createdEvent(primitive.NewObjectID()))

	if calls != 1 {
		t.Fatalf("listener called %d times, want 1", calls)
	}
}

func TestUnregisterAll(t *testing.T) {
	n := NewNotifier(nil, "test", nil)

	calls := 0
	n.Register(nil, func(Event) { calls++ })
	n.Register(ForOfficials(), func(Event) { calls++ })
	n.UnregisterAll()

	n.Dispatch(createdEvent(primitive.NewObjectID()))
	if calls != 0 {
		t.Fatalf("listeners called %d times after UnregisterAll, want 0", calls)
	}
}

func TestPublishDeliversThroughRedis(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := NewNotifier(client, "civicx:issues:test", nil)
	n.Start(ctx)
	defer n.Close()

	received := make(chan Event, 1)
	n.Register(ForOfficials(), func(ev Event) {
		received <- ev
	})

	p := NewPublisher(client, "civicx:issues:test")
	ev := createdEvent(primitive.NewObjectID())
	if err := p.Publish(ctx, ev); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case got := <-received:
		if got.Issue.Title != ev.Issue.Title {
			t.Errorf("received title %q, want %q", got.Issue.Title, ev.Issue.Title)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event from feed channel")
	}
}
