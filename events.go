package main

import (
	"github.com/kasunvimarshana/TrackVault-sub000/engine"
)

type recordChangeEvent struct {
	record *engine.RecordPayload
}

type notifyChange struct {
	record *engine.RecordPayload
}

type unsubscribe struct {
	id int64
}

type subscription struct {
	id         int64
	eventsChan chan *recordChangeEvent
}

// eventsManager fans committed record changes out to the active track
// streams. All bookkeeping happens on a single goroutine fed by msgChan.
type eventsManager struct {
	globalIDs int64
	streams   map[int64]*subscription
	msgChan   chan interface{}
}

func newEventsManager() *eventsManager {
	return &eventsManager{
		globalIDs: 0,
		streams:   make(map[int64]*subscription),
		msgChan:   make(chan interface{}),
	}
}

func (c *eventsManager) start(quitChan chan struct{}) {
	go func() {
		for {
			select {
			case msg := <-c.msgChan:
				if s, ok := msg.(*subscription); ok {
					c.streams[s.id] = s
				}
				if s, ok := msg.(*unsubscribe); ok {
					if sub, found := c.streams[s.id]; found {
						close(sub.eventsChan)
						delete(c.streams, s.id)
					}
				}
				if s, ok := msg.(*notifyChange); ok {
					for _, sub := range c.streams {
						sub.eventsChan <- &recordChangeEvent{record: s.record}
					}
				}

			case <-quitChan:
				return
			}
		}
	}()
}

func (c *eventsManager) notifyChange(record *engine.RecordPayload) {
	c.msgChan <- &notifyChange{record: record}
}

func (c *eventsManager) subscribe() *subscription {
	eventsChan := make(chan *recordChangeEvent)
	c.globalIDs += 1
	s := &subscription{eventsChan: eventsChan, id: c.globalIDs}
	c.msgChan <- s
	return s
}

func (c *eventsManager) unsubscribe(id int64) {
	c.msgChan <- &unsubscribe{id: id}
}
