package keyring

import (
	"github.com/ethereum/go-ethereum/event"
)

const (
	EventUpdate = "update"
	EventUnlock = "unlock"
	EventLock   = "lock"
)

// Sink receives keyring notifications. The update payload is the snapshot
// just written.
type Sink interface {
	Emit(name string, payload interface{})
}

type Event struct {
	Name    string
	Payload interface{}
}

// FeedSink fans events out to channel subscribers. Send blocks until every
// subscriber has taken the event, subscribers should read from a buffered
// channel.
type FeedSink struct {
	feed event.Feed
}

func NewFeedSink() *FeedSink {
	return &FeedSink{}
}

func (f *FeedSink) Emit(name string, payload interface{}) {
	f.feed.Send(Event{Name: name, Payload: payload})
}

func (f *FeedSink) Subscribe(ch chan<- Event) event.Subscription {
	return f.feed.Subscribe(ch)
}

type nopSink struct{}

func (nopSink) Emit(string, interface{}) {}
