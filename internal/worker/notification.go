package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/cradoe/puddle/internal/metrics"
	"github.com/cradoe/puddle/internal/models"
	"github.com/cradoe/puddle/internal/stream"
)

// eventTemplates maps an event to its e-mail. Events without an entry are
// not mailed.
var eventTemplates = map[string]string{
	models.EventPartnerInvited:      "invited.tmpl",
	models.EventDepositMade:         "deposit-made.tmpl",
	models.EventGoalMilestone:       "goal-milestone.tmpl",
	models.EventGoalReached:         "goal-reached.tmpl",
	models.EventWithdrawalRequested: "withdrawal-requested.tmpl",
	models.EventWithdrawalApproved:  "withdrawal-approved.tmpl",
	models.EventWithdrawalRejected:  "withdrawal-rejected.tmpl",
}

// NotificationWorker mails piggy bank members about events published on
// the events topic until ctx is done.
func (wk *Worker) NotificationWorker(ctx context.Context) error {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: notificationGroupID,
		Topic:   models.EventsTopic,
	})
	if err != nil {
		return fmt.Errorf("create notification consumer: %w", err)
	}

	wk.consume(ctx, consumer)
	return nil
}

func (wk *Worker) consume(ctx context.Context, source MessageSource) {
	defer source.Close()

	wk.Logger.Info("notification worker started", "topic", models.EventsTopic)

	for {
		select {
		case <-ctx.Done():
			wk.Logger.Info("notification worker stopped")
			return
		default:
		}

		switch e := source.Poll(pollTimeoutMs).(type) {
		case *kafka.Message:
			if err := wk.HandleEvent(ctx, e.Value); err != nil {
				wk.Logger.Error("notification failed", "partition", e.TopicPartition.String(), "error", err)
			}
		case kafka.Error:
			wk.Logger.Error("kafka consumer error", "error", e)
		}
	}
}

// HandleEvent mails every member with an e-mail address about event,
// except the member who caused it. Each mail is sent as a background task
// so a slow SMTP server does not hold up the consumer; delivery failures
// are logged and the remaining members are still mailed.
func (wk *Worker) HandleEvent(ctx context.Context, value []byte) error {
	var event models.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	template, ok := eventTemplates[event.Type]
	if !ok {
		return nil
	}

	members, err := wk.DB.Member().GetAllByPiggyBankID(ctx, event.PiggyBankID)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}

	for _, member := range members {
		if !member.Email.Valid || member.UserID == event.ActorID {
			continue
		}

		data := wk.Helper.NewEmailData()
		data["PiggyBankID"] = event.PiggyBankID
		data["PiggyBankName"] = event.PiggyBankName
		data["ActorAddress"] = event.ActorAddress
		data["Amount"] = event.Amount
		data["CurrentAmount"] = event.CurrentAmount
		data["GoalAmount"] = event.GoalAmount
		data["Milestone"] = event.Milestone

		wk.Helper.BackgroundTask(func() error {
			if err := wk.Mailer.Send(member.Email.String, data, template); err != nil {
				metrics.NotificationsSent.WithLabelValues(event.Type, "failed").Inc()
				wk.Logger.Error("notification not delivered",
					"type", event.Type,
					"piggy_bank_id", event.PiggyBankID,
					"user_id", member.UserID,
					"error", err,
				)
				return nil
			}

			metrics.NotificationsSent.WithLabelValues(event.Type, "sent").Inc()
			return nil
		})
	}

	return nil
}
