package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
	"github.com/kirillkom/comex-reports-etl/internal/infrastructure/resilience"
)

const workerQueueGroup = "etl-workers"

// Queue carries file paths to ingest workers and ingestion outcomes to downstream consumers.
type Queue struct {
	conn          *nats.Conn
	filesSubject  string
	eventsSubject string
	executor      *resilience.Executor
	logger        *slog.Logger
}

type Options struct {
	FilesSubject         string
	EventsSubject        string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url string, options Options) (*Queue, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "nats")

	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	filesSubject := strings.TrimSpace(options.FilesSubject)
	if filesSubject == "" {
		filesSubject = "comex.files"
	}
	eventsSubject := strings.TrimSpace(options.EventsSubject)
	if eventsSubject == "" {
		eventsSubject = "comex.files.processed"
	}

	conn, err := nats.Connect(
		url,
		nats.Name("comex-reports-etl"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:          conn,
		filesSubject:  filesSubject,
		eventsSubject: eventsSubject,
		executor:      options.ResilienceExecutor,
		logger:        logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// PublishFile asks a worker to ingest path.
func (q *Queue) PublishFile(ctx context.Context, path string) error {
	return q.publish(ctx, "nats.publish_file", q.filesSubject, []byte(path))
}

func (q *Queue) PublishFileProcessed(ctx context.Context, event domain.FileProcessedEvent) error {
	payload, err := encodeEvent(event)
	if err != nil {
		return err
	}
	return q.publish(ctx, "nats.publish_event", q.eventsSubject, payload)
}

func (q *Queue) publish(ctx context.Context, operation, subject string, payload []byte) error {
	call := func(attemptCtx context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		if _, ok := attemptCtx.Deadline(); !ok {
			return nil
		}
		// A flush round trip confirms the server took the message before the ledger moves on.
		if err := q.conn.FlushWithContext(attemptCtx); err != nil {
			return fmt.Errorf("nats flush: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, operation, call, classifyPublishError)
	} else {
		err = call(ctx)
	}
	return asTemporary(err)
}

// SubscribeFiles delivers file paths to handler one message at a time until ctx ends,
// then drains the subscription.
func (q *Queue) SubscribeFiles(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.filesSubject, workerQueueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		path := strings.TrimSpace(string(msg.Data))
		if path == "" {
			q.logger.Warn("empty file path message", "subject", msg.Subject)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, path); err != nil {
			q.logger.Error("worker handler error", "path", path, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeEvent(event domain.FileProcessedEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode file processed event: %w", err)
	}
	return payload, nil
}
