package mqtt

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"voxelbuilder.ai/internal/observerproto"
	"voxelbuilder.ai/internal/sim/world"
)

// Sink delivers one message to the broker. *Client implements it.
type Sink interface {
	Publish(topic string, payload []byte, retained bool) error
}

type message struct {
	topic   string
	payload []byte
}

// StatusPublisher publishes a retained builder status message whenever a
// builder changes status, plus one for every builder on the first tick it
// sees. Publishing happens on its own goroutine; the world goroutine only
// enqueues.
type StatusPublisher struct {
	sink   Sink
	topics Topics
	log    *logrus.Entry

	seen map[string]bool // world goroutine only

	ch      chan message
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
	failed  atomic.Uint64
}

func NewStatusPublisher(sink Sink, worldID string, logger *logrus.Entry) *StatusPublisher {
	p := &StatusPublisher{
		sink:   sink,
		topics: Topics{WorldID: worldID},
		log:    logger,
		seen:   map[string]bool{},
		ch:     make(chan message, 1024),
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for m := range p.ch {
			if err := p.sink.Publish(m.topic, m.payload, true); err != nil {
				p.failed.Add(1)
				p.log.WithError(err).WithField("topic", m.topic).Warn("status publish failed")
			}
		}
	}()
	return p
}

// ObserveTick implements world.TickObserver.
func (p *StatusPublisher) ObserveTick(msg observerproto.TickMsg) {
	changed := map[string]bool{}
	for _, tr := range msg.Transitions {
		changed[tr.BuilderID] = true
	}
	for _, b := range msg.Builders {
		if p.seen[b.ID] && !changed[b.ID] {
			continue
		}
		p.seen[b.ID] = true
		payload, err := json.Marshal(b)
		if err != nil {
			continue
		}
		select {
		case p.ch <- message{topic: p.topics.BuilderStatus(b.ID), payload: payload}:
		default:
			p.dropped.Add(1)
		}
	}
}

func (p *StatusPublisher) Dropped() uint64 { return p.dropped.Load() }
func (p *StatusPublisher) Failed() uint64  { return p.failed.Load() }

// Close flushes queued messages. ObserveTick must not be called afterwards.
func (p *StatusPublisher) Close() {
	p.once.Do(func() {
		close(p.ch)
		p.wg.Wait()
	})
}

var _ world.TickObserver = (*StatusPublisher)(nil)
