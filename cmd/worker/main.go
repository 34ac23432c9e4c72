package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/assist-platform/internal/config"
	"github.com/suPer8Hu/assist-platform/internal/db"
	"github.com/suPer8Hu/assist-platform/internal/logger"
	"github.com/suPer8Hu/assist-platform/internal/notify"
	"github.com/suPer8Hu/assist-platform/internal/store/rabbitmq"
	"go.uber.org/zap"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.RabbitURL == "" {
		log.Fatal("RABBIT_URL is required for the worker")
	}

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	if err := db.Migrate(gdb, &notify.DashboardNotice{}); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	dispatcher := notify.NewDispatcher(log.Named("notify"), notify.Channels(cfg, gdb)...)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatal("rabbit dial", zap.Error(err))
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("rabbit channel", zap.Error(err))
	}
	defer ch.Close()

	if err := rabbitmq.DeclareTopology(ch, cfg.RabbitQueue); err != nil {
		log.Fatal("queue declare", zap.Error(err))
	}

	concurrency := workerConcurrency()
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatal("qos", zap.Error(err))
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatal("consume", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("worker started", zap.String("queue", cfg.RabbitQueue), zap.Int("concurrency", concurrency))

	err = consume(ctx, msgs, concurrency, func(workerID int, d amqp.Delivery) {
		handleDelivery(ctx, log.With(zap.Int("worker", workerID)), dispatcher, d)
	})
	if err != nil {
		// exit non-zero so the supervisor restarts the worker
		log.Fatal("consume stopped", zap.Error(err), zap.Bool("conn_closed", conn.IsClosed()))
	}
	log.Info("worker shut down")
}

var errDeliveriesClosed = errors.New("delivery channel closed")

// consume feeds deliveries to a pool of handlers until ctx is done or msgs is
// closed by the broker. In-flight deliveries finish before it returns.
func consume(ctx context.Context, msgs <-chan amqp.Delivery, concurrency int, handle func(workerID int, d amqp.Delivery)) error {
	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				handle(workerID, d)
			}
		}(i)
	}
	defer func() {
		close(jobs)
		wg.Wait()
	}()

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			return nil

		case d, ok := <-msgs:
			if !ok {
				return errDeliveriesClosed
			}
			jobs <- d
		}
	}
}

// handleDelivery acks after one dispatch attempt whatever the channel results:
// a notification is sent at most once. Undecodable messages go to the DLQ.
func handleDelivery(ctx context.Context, log *zap.Logger, dispatcher *notify.Dispatcher, d amqp.Delivery) {
	n, err := rabbitmq.Decode(d.Body)
	if err != nil {
		log.Warn("bad message", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	start := time.Now()
	if err := dispatcher.Notify(ctx, n); err != nil {
		log.Error("notification partially failed",
			zap.Error(err),
			zap.String("escalation_id", n.EscalationID),
			zap.Duration("cost", time.Since(start)))
	} else {
		log.Info("notification dispatched",
			zap.String("escalation_id", n.EscalationID),
			zap.Strings("channels", n.Channels),
			zap.Duration("cost", time.Since(start)))
	}

	if err := d.Ack(false); err != nil {
		log.Error("ack failed", zap.Error(err), zap.String("escalation_id", n.EscalationID))
	}
}
