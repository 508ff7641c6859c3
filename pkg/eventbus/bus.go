// Package eventbus fans topic messages out to subscriber channels.
package eventbus

import (
	"sync"
)

type Topic string

type Message struct {
	Topic Topic
	Data  interface{}
}

type Subscriber chan Message

// Bus delivers every message of a topic to each channel subscribed to it.
// Messages published from one goroutine reach a subscriber in publish order.
type Bus struct {
	topics map[Topic][]Subscriber
	queue  chan Message
	rw     sync.RWMutex
	once   sync.Once
	done   chan struct{}
}

// New starts a bus. backlog bounds the messages waiting for delivery before
// Publish blocks.
func New(backlog int) *Bus {
	bus := &Bus{
		topics: map[Topic][]Subscriber{},
		queue:  make(chan Message, backlog),
		done:   make(chan struct{}),
	}
	go bus.deliver()
	return bus
}

func (bus *Bus) deliver() {
	defer close(bus.done)
	for msg := range bus.queue {
		bus.rw.RLock()
		subs := append([]Subscriber{}, bus.topics[msg.Topic]...)
		bus.rw.RUnlock()
		for _, sub := range subs {
			sub <- msg
		}
	}
}

func (bus *Bus) Subscribe(sub Subscriber, topics ...Topic) {
	bus.rw.Lock()
	for _, topic := range topics {
		bus.topics[topic] = append(bus.topics[topic], sub)
	}
	bus.rw.Unlock()
}

func (bus *Bus) Unsubscribe(sub Subscriber, topics ...Topic) {
	bus.rw.Lock()
	for _, topic := range topics {
		subs := bus.topics[topic]
		for i, s := range subs {
			if s == sub {
				bus.topics[topic] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(bus.topics[topic]) == 0 {
			delete(bus.topics, topic)
		}
	}
	bus.rw.Unlock()
}

func (bus *Bus) Publish(topic Topic, data interface{}) {
	bus.queue <- Message{Topic: topic, Data: data}
}

// Close delivers the queued messages and stops the bus. Publish must not be
// called afterwards.
func (bus *Bus) Close() {
	bus.once.Do(func() { close(bus.queue) })
	<-bus.done
}
