package consumer

import (
	"encoding/json"
	"log"

	"github.com/maix-platform/registration-service/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlatformConsumer keeps the local event and membership copies in sync with
// the platform core. Events and organizations are owned there; this service
// only reads them.
type PlatformConsumer struct {
	db *gorm.DB
}

func NewPlatformConsumer(db *gorm.DB) *PlatformConsumer {
	return &PlatformConsumer{db: db}
}

type membershipMessage struct {
	OrganizationID uint   `json:"organization_id"`
	UserID         string `json:"user_id"`
	Role           string `json:"role"`
}

func (pc *PlatformConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			pc.handleMessage(msg)
		}
		log.Println("[PlatformConsumer] channel closed, stopping consumer")
	}()
}

func (pc *PlatformConsumer) handleMessage(msg amqp.Delivery) {
	var err error
	switch msg.RoutingKey {
	case "event.created", "event.updated":
		err = pc.upsertEvent(msg.Body)
	case "membership.added":
		err = pc.upsertMembership(msg.Body)
	case "membership.removed":
		err = pc.removeMembership(msg.Body)
	default:
		log.Printf("[PlatformConsumer] ignoring routing key %s", msg.RoutingKey)
		msg.Ack(false)
		return
	}

	if err != nil {
		if isUnmarshalError(err) {
			log.Printf("[PlatformConsumer] dropping malformed %s message: %v", msg.RoutingKey, err)
			msg.Nack(false, false)
			return
		}
		log.Printf("[PlatformConsumer] failed to process %s: %v", msg.RoutingKey, err)
		msg.Nack(false, true) // requeue
		return
	}

	msg.Ack(false)
}

func isUnmarshalError(err error) bool {
	switch err.(type) {
	case *json.SyntaxError, *json.UnmarshalTypeError:
		return true
	}
	return false
}

func (pc *PlatformConsumer) upsertEvent(body []byte) error {
	var event models.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return err
	}

	// Upsert: the platform is the source of truth for all event fields
	return pc.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "capacity", "status", "is_public", "organization_id", "updated_at"}),
	}).Create(&event).Error
}

func (pc *PlatformConsumer) upsertMembership(body []byte) error {
	var msg membershipMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return err
	}

	membership := models.Membership{
		OrganizationID: msg.OrganizationID,
		UserID:         msg.UserID,
		Role:           msg.Role,
	}
	return pc.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "organization_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role"}),
	}).Create(&membership).Error
}

func (pc *PlatformConsumer) removeMembership(body []byte) error {
	var msg membershipMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return err
	}

	return pc.db.
		Where("organization_id = ? AND user_id = ?", msg.OrganizationID, msg.UserID).
		Delete(&models.Membership{}).Error
}
