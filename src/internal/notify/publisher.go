package notify

import (
	"encoding/json"
	"time"

	"fortnite-lobbybot-svc/src/internal/config"
	"fortnite-lobbybot-svc/src/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// Publisher fans session events out to the message broker: activity-log
// entries for the audit trail and notices for the chat front end to
// deliver. A publish failure or an owner with nowhere to deliver is not
// an error; everything here is best-effort.
type Publisher interface {
	PublishActivity(msg models.ActivityMessage)
	SendWarning(ownerID, accountID, epicUsername string, remainingSeconds int)
	SendTimeoutNotice(ownerID, accountID, epicUsername string)
	SendCrashNotice(ownerID, accountID, epicUsername string)
}

type publisher struct {
	channel *amqp.Channel
	cfg     *config.RabbitMQConfig
}

func NewPublisher(channel *amqp.Channel, cfg *config.Configuration) Publisher {
	return &publisher{
		channel: channel,
		cfg:     &cfg.Queue.RabbitMQ,
	}
}

func (p *publisher) PublishActivity(msg models.ActivityMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	p.publish(p.cfg.ActivityRoutingKey, msg)

	logrus.WithFields(logrus.Fields{
		"owner_id":   msg.OwnerID,
		"account_id": msg.AccountID,
		"action":     msg.Action,
	}).Debug("Activity message published")
}

func (p *publisher) SendWarning(ownerID, accountID, epicUsername string, remainingSeconds int) {
	p.publish(p.cfg.NoticeRoutingKey, models.Notice{
		OwnerID:          ownerID,
		AccountID:        accountID,
		EpicUsername:     epicUsername,
		Kind:             models.NoticeIdleWarning,
		RemainingSeconds: remainingSeconds,
		Timestamp:        time.Now().UTC(),
	})

	logrus.WithFields(logrus.Fields{
		"owner_id":      ownerID,
		"epic_username": epicUsername,
		"remaining":     models.FormatRemaining(remainingSeconds),
	}).Info("Idle warning sent")
}

func (p *publisher) SendTimeoutNotice(ownerID, accountID, epicUsername string) {
	p.publish(p.cfg.NoticeRoutingKey, models.Notice{
		OwnerID:      ownerID,
		AccountID:    accountID,
		EpicUsername: epicUsername,
		Kind:         models.NoticeTimedOut,
		Timestamp:    time.Now().UTC(),
	})
}

func (p *publisher) SendCrashNotice(ownerID, accountID, epicUsername string) {
	p.publish(p.cfg.NoticeRoutingKey, models.Notice{
		OwnerID:      ownerID,
		AccountID:    accountID,
		EpicUsername: epicUsername,
		Kind:         models.NoticeCrashed,
		Timestamp:    time.Now().UTC(),
	})
}

func (p *publisher) publish(routingKey string, payload any) {
	if p.channel == nil {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal broker message")
		return
	}

	err = p.channel.Publish(
		p.cfg.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
	if err != nil {
		logrus.WithError(err).WithField("routing_key", routingKey).Error("Failed to publish broker message")
	}
}
