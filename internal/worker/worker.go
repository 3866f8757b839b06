package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/cradoe/puddle/internal/helper"
	"github.com/cradoe/puddle/internal/repository"
	"github.com/cradoe/puddle/internal/service"
	"github.com/cradoe/puddle/internal/smtp"
	"github.com/cradoe/puddle/internal/stream"
)

type Worker struct {
	KafkaStream *stream.KafkaStream
	DB          repository.Database
	Reconciler  Reconciler
	Mailer      smtp.MailerInterface
	Helper      *helper.HelperRepository
	Logger      *slog.Logger
}

// Reconciler is the part of the service the reconcile loop drives.
type Reconciler interface {
	Reconcile(ctx context.Context) (*service.ReconcileReport, error)
}

// MessageSource is what a Kafka consumer offers the workers.
type MessageSource interface {
	Poll(timeoutMs int) kafka.Event
	Close() error
}

const (
	// notificationGroupID is shared by every instance mailing members about
	// piggy bank events, so each event is mailed once
	notificationGroupID = "piggybank-notifications"

	pollTimeoutMs = 100

	DefaultReconcileInterval = time.Minute
)

// Our workers typically need access to the database and the event stream;
// worker-specific dependencies can be passed as arguments to the worker.
func New(wk *Worker) *Worker {
	return &Worker{
		KafkaStream: wk.KafkaStream,
		DB:          wk.DB,
		Reconciler:  wk.Reconciler,
		Mailer:      wk.Mailer,
		Helper:      wk.Helper,
		Logger:      wk.Logger,
	}
}
