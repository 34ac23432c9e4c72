package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsume_ClosedDeliveriesStopsWithError(t *testing.T) {
	msgs := make(chan amqp.Delivery, 3)
	for i := 0; i < 3; i++ {
		msgs <- amqp.Delivery{MessageId: "m"}
	}
	close(msgs)

	var handled atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- consume(context.Background(), msgs, 2, func(int, amqp.Delivery) { handled.Add(1) })
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, errDeliveriesClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("consume kept running after the delivery channel closed")
	}
	assert.Equal(t, int32(3), handled.Load(), "in-flight deliveries must finish")
}

func TestConsume_ContextCancelReturnsNil(t *testing.T) {
	msgs := make(chan amqp.Delivery)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := consume(ctx, msgs, 1, func(int, amqp.Delivery) {})
	assert.NoError(t, err)
}

func TestWorkerConcurrency(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "")
	assert.Equal(t, 2, workerConcurrency())
	t.Setenv("WORKER_CONCURRENCY", "7")
	assert.Equal(t, 7, workerConcurrency())
	t.Setenv("WORKER_CONCURRENCY", "500")
	assert.Equal(t, 50, workerConcurrency())
	t.Setenv("WORKER_CONCURRENCY", "x")
	assert.Equal(t, 2, workerConcurrency())
}
