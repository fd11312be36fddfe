package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/NordCoder/Herald/internal/config/worker"
	"github.com/NordCoder/Herald/internal/domain/notification"
	"github.com/NordCoder/Herald/internal/obs"
	"github.com/NordCoder/Herald/internal/repository/kafka"
	pg "github.com/NordCoder/Herald/internal/repository/postgres"
	"github.com/NordCoder/Herald/internal/senders/email"
	"github.com/NordCoder/Herald/internal/senders/inapp"
	"github.com/NordCoder/Herald/internal/senders/webhook"
	"github.com/NordCoder/Herald/internal/services/worker"
)

func buildDispatcher(cfg *config.Config, db *pg.DB, l *zap.Logger) *worker.Dispatcher {
	d := worker.NewDispatcher(l)
	d.Register(notification.ChannelEmail, email.New(cfg.SMTP).WithLogger(l))
	d.Register(notification.ChannelSMS, webhook.New("sms", cfg.SMS).WithLogger(l, "sms"))
	d.Register(notification.ChannelPush, webhook.New("push", cfg.Push).WithLogger(l, "push"))
	d.Register(notification.ChannelInApp, inapp.New(pg.NewInboxRepo(db)).WithLogger(l))
	return d
}

func main() {
	root, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "../config/worker.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	// logger
	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}

	l.Info("starting herald-worker",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("group", cfg.Kafka.GroupID),
		zap.Any("topics", cfg.Topics),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
	)

	// otel
	otelCloser, err := obs.SetupOTel(root, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Warn("otel init", zap.Error(err))
		otelCloser = &obs.OTel{}
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// db
	db, err := pg.New(root, cfg.DB.AsPGConfig())
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	l.Info("db connected")

	// kafka
	_ = kafka.EnsureTopic(root, cfg.Kafka.Brokers, kafka.TopicSpec{Name: cfg.Topics.DLQ}, l)

	primaryCons := kafka.BootstrapConsumer(root, &kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID,
		Topic:   cfg.Topics.Primary,
		Logger:  l,
	}, l)
	retryCons := kafka.BootstrapConsumer(root, &kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID,
		Topic:   cfg.Topics.Retry,
		Logger:  l,
	}, l)

	retryPub := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Topics.Retry).WithLogger(l)
	defer func() { _ = retryPub.Close() }()
	dlqPub := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Topics.DLQ).WithLogger(l)
	defer func() { _ = dlqPub.Close() }()

	admin := kafka.NewAdmin(cfg.Kafka.Brokers).WithLogger(l)

	// wiring
	store := pg.NewStatusRepo(db)
	disp := buildDispatcher(cfg, db, l)
	router := worker.NewRouter(l, retryPub, dlqPub, cfg.Retry.MaxRetries, cfg.Retry.BaseDelay)

	drain := worker.DrainConfig{
		Timeout:         cfg.Drain.Timeout,
		InitialInterval: cfg.Drain.InitialInterval,
		MaxInterval:     cfg.Drain.MaxInterval,
	}
	primary := worker.New(l, primaryCons, store, disp, router, worker.Config{Drain: drain})
	retryWorker := worker.New(l, retryCons, store, disp, router, worker.Config{HonorDelay: true, Drain: drain})

	reporter := worker.NewHealthReporter(l, primary, admin, cfg.Kafka.GroupID, cfg.Topics.Primary, cfg.Topics.Retry)

	// metrics + health
	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr,
		db.Ping,
		func(ctx context.Context) (any, error) {
			return reporter.Snapshot(ctx), nil
		},
		l,
	)

	// start
	primary.Start(root)
	retryWorker.Start(root)

	<-root.Done()

	// graceful drain, bounded; proceeds regardless of outcome
	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Drain.Timeout+5*time.Second)
	defer cancel()
	primary.Stop(shCtx)
	retryWorker.Stop(shCtx)

	msCtx, msCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer msCancel()
	_ = ms.Shutdown(msCtx)
	l.Info("bye")
}
