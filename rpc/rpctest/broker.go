// Package rpctest provides an in-memory broker for exercising rpc clients and
// servers without a running AMQP server.
package rpctest

import (
	"errors"
	"strconv"
	"sync"

	"github.com/streadway/amqp"

	"github.com/sparksolution/sitemail/rpc"
)

// Broker routes publishings to queues by exact routing key.
// Exchange names and topic wildcards are ignored.
type Broker struct {
	mu       sync.Mutex
	queues   map[string]chan amqp.Delivery
	bindings map[string]string // routing key -> queue name
	seq      int
	closed   bool
}

// NewBroker returns an empty Broker.
func NewBroker() *Broker {
	return &Broker{
		queues:   make(map[string]chan amqp.Delivery),
		bindings: make(map[string]string),
	}
}

// Dialer returns an rpc.Dialer opening channels on b.
func (b *Broker) Dialer() rpc.Dialer {
	return func() (rpc.Channel, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.closed {
			return nil, amqp.ErrClosed
		}
		return &channel{broker: b}, nil
	}
}

// Shutdown closes every queue, ending all consumers.
func (b *Broker) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, q := range b.queues {
		close(q)
	}
}

type channel struct {
	broker *Broker
}

func (c *channel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return nil
}

func (c *channel) Qos(prefetchCount, prefetchSize int, global bool) error {
	return nil
}

func (c *channel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	b := c.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if name == "" {
		b.seq++
		name = "amq.gen-" + strconv.Itoa(b.seq)
	}
	if _, ok := b.queues[name]; !ok {
		b.queues[name] = make(chan amqp.Delivery, 16)
	}
	return amqp.Queue{Name: name}, nil
}

func (c *channel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	b := c.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.queues[name]; !ok {
		return errors.New("no such queue: " + name)
	}
	b.bindings[key] = name
	return nil
}

func (c *channel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	b := c.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[queue]
	if !ok {
		return nil, errors.New("no such queue: " + queue)
	}
	return q, nil
}

func (c *channel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	b := c.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return amqp.ErrClosed
	}
	name, ok := b.bindings[key]
	if !ok {
		// unroutable; a real broker would return it to a mandatory publisher
		return nil
	}
	b.queues[name] <- amqp.Delivery{
		ContentType:   msg.ContentType,
		CorrelationId: msg.CorrelationId,
		ReplyTo:       msg.ReplyTo,
		MessageId:     msg.MessageId,
		Timestamp:     msg.Timestamp,
		Expiration:    msg.Expiration,
		Exchange:      exchange,
		RoutingKey:    key,
		Body:          msg.Body,
	}
	return nil
}

func (c *channel) Close() error {
	return nil
}
