package actors

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"pillscare/internal/models"
	"pillscare/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for StoreActor
type (
	AppendMessageMsg struct {
		Message *models.Message
	}

	QueryMessagesBetweenMsg struct {
		UserA uuid.UUID
		UserB uuid.UUID
	}

	QueryMessagesForUserMsg struct {
		UserID uuid.UUID
	}

	SetReadMsg struct {
		SenderID   uuid.UUID
		ReceiverID uuid.UUID
		At         time.Time
	}

	CountUnreadMsg struct {
		RecipientID uuid.UUID
	}

	UpsertReminderMsg struct {
		Reminder *models.Reminder
	}

	GetReminderMsg struct {
		ReminderID uuid.UUID
	}

	ListActiveRemindersMsg struct {
		OwnerID uuid.UUID
	}

	DeactivateReminderMsg struct {
		ReminderID uuid.UUID
	}

	LogChatTurnMsg struct {
		Turn *models.ChatTurn
	}

	SaveEmergencyAlertMsg struct {
		Alert *models.EmergencyAlert
	}

	UpsertPatientContactMsg struct {
		Contact *models.PatientContact
	}

	GetPatientContactMsg struct {
		UserID uuid.UUID
	}

	GetCountsMsg struct{}
)

// StoreCounts is the reply to GetCountsMsg.
type StoreCounts struct {
	Messages  int `json:"messages"`
	Reminders int `json:"reminders"`
	ChatTurns int `json:"chatTurns"`
	Alerts    int `json:"alerts"`
	Patients  int `json:"patients"`
}

type pairKey struct {
	lo, hi uuid.UUID
}

func newPairKey(a, b uuid.UUID) pairKey {
	if b.String() < a.String() {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// StoreActor owns all in-memory state. Every read and write goes through
// its mailbox one at a time, so callers never see a half-applied change
// and replies are always copies.
type StoreActor struct {
	seq      int64
	messages map[uuid.UUID]*models.Message
	byPair   map[pairKey][]*models.Message
	byUser   map[uuid.UUID][]*models.Message
	unread   map[uuid.UUID]int64 // recipient -> unread count

	reminders map[uuid.UUID]*models.Reminder
	chatLog   []*models.ChatTurn
	alerts    map[uuid.UUID]*models.EmergencyAlert
	patients  map[uuid.UUID]*models.PatientContact

	metrics *utils.MetricsCollector
	logger  *slog.Logger
}

func NewStoreActor(metrics *utils.MetricsCollector, logger *slog.Logger) actor.Actor {
	return &StoreActor{
		messages:  make(map[uuid.UUID]*models.Message),
		byPair:    make(map[pairKey][]*models.Message),
		byUser:    make(map[uuid.UUID][]*models.Message),
		unread:    make(map[uuid.UUID]int64),
		reminders: make(map[uuid.UUID]*models.Reminder),
		alerts:    make(map[uuid.UUID]*models.EmergencyAlert),
		patients:  make(map[uuid.UUID]*models.PatientContact),
		metrics:   metrics,
		logger:    logger,
	}
}

func (a *StoreActor) Receive(context actor.Context) {
	startTime := time.Now()

	switch msg := context.Message().(type) {
	case *actor.Started:
		a.logger.Debug("store actor started", "pid", context.Self().String())
		return
	case *actor.Stopping, *actor.Stopped, *actor.Restarting:
		return

	case *AppendMessageMsg:
		a.handleAppendMessage(context, msg)
	case *QueryMessagesBetweenMsg:
		context.Respond(cloneSorted(a.byPair[newPairKey(msg.UserA, msg.UserB)]))
	case *QueryMessagesForUserMsg:
		context.Respond(cloneSorted(a.byUser[msg.UserID]))
	case *SetReadMsg:
		a.handleSetRead(context, msg)
	case *CountUnreadMsg:
		context.Respond(a.unread[msg.RecipientID])

	case *UpsertReminderMsg:
		a.reminders[msg.Reminder.ID] = msg.Reminder.Clone()
		context.Respond(true)
	case *GetReminderMsg:
		a.handleGetReminder(context, msg)
	case *ListActiveRemindersMsg:
		a.handleListActiveReminders(context, msg)
	case *DeactivateReminderMsg:
		a.handleDeactivateReminder(context, msg)

	case *LogChatTurnMsg:
		turn := *msg.Turn
		a.chatLog = append(a.chatLog, &turn)
		context.Respond(true)
	case *SaveEmergencyAlertMsg:
		a.handleSaveAlert(context, msg)

	case *UpsertPatientContactMsg:
		c := *msg.Contact
		a.patients[c.UserID] = &c
		context.Respond(true)
	case *GetPatientContactMsg:
		if c, ok := a.patients[msg.UserID]; ok {
			copied := *c
			context.Respond(&copied)
		} else {
			context.Respond(utils.NewNotFoundError("patient"))
		}

	case *GetCountsMsg:
		context.Respond(&StoreCounts{
			Messages:  len(a.messages),
			Reminders: len(a.reminders),
			ChatTurns: len(a.chatLog),
			Alerts:    len(a.alerts),
			Patients:  len(a.patients),
		})

	default:
		a.logger.Warn("store actor: unknown message type", "type", fmt.Sprintf("%T", msg))
		return
	}

	if a.metrics != nil {
		a.metrics.AddOperationLatency("store", time.Since(startTime))
	}
}

func (a *StoreActor) handleAppendMessage(context actor.Context, msg *AppendMessageMsg) {
	stored := msg.Message.Clone()
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if _, exists := a.messages[stored.ID]; exists {
		context.Respond(utils.NewValidationError("message id already used"))
		return
	}
	a.seq++
	stored.Seq = a.seq

	a.messages[stored.ID] = stored
	key := newPairKey(stored.SenderID, stored.ReceiverID)
	a.byPair[key] = append(a.byPair[key], stored)
	a.byUser[stored.SenderID] = append(a.byUser[stored.SenderID], stored)
	if stored.ReceiverID != stored.SenderID {
		a.byUser[stored.ReceiverID] = append(a.byUser[stored.ReceiverID], stored)
	}
	if !stored.Read {
		a.unread[stored.ReceiverID]++
	}

	context.Respond(stored.Clone())
}

func (a *StoreActor) handleSetRead(context actor.Context, msg *SetReadMsg) {
	var changed int64
	for _, m := range a.byPair[newPairKey(msg.SenderID, msg.ReceiverID)] {
		if m.SenderID != msg.SenderID || m.ReceiverID != msg.ReceiverID || m.Read {
			continue
		}
		at := msg.At
		m.Read = true
		m.ReadAt = &at
		changed++
	}
	a.unread[msg.ReceiverID] -= changed
	if a.unread[msg.ReceiverID] <= 0 {
		delete(a.unread, msg.ReceiverID)
	}
	context.Respond(changed)
}

func (a *StoreActor) handleGetReminder(context actor.Context, msg *GetReminderMsg) {
	r, ok := a.reminders[msg.ReminderID]
	if !ok {
		context.Respond(utils.NewNotFoundError("reminder"))
		return
	}
	context.Respond(r.Clone())
}

func (a *StoreActor) handleListActiveReminders(context actor.Context, msg *ListActiveRemindersMsg) {
	out := make([]*models.Reminder, 0)
	for _, r := range a.reminders {
		if r.OwnerID == msg.OwnerID && r.Active {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	context.Respond(out)
}

func (a *StoreActor) handleDeactivateReminder(context actor.Context, msg *DeactivateReminderMsg) {
	r, ok := a.reminders[msg.ReminderID]
	if !ok {
		context.Respond(utils.NewNotFoundError("reminder"))
		return
	}
	r.Active = false
	context.Respond(true)
}

func (a *StoreActor) handleSaveAlert(context actor.Context, msg *SaveEmergencyAlertMsg) {
	if _, exists := a.alerts[msg.Alert.ID]; exists {
		context.Respond(utils.NewValidationError("emergency alert already recorded"))
		return
	}
	alert := *msg.Alert
	alert.Recipients = append([]string(nil), msg.Alert.Recipients...)
	a.alerts[alert.ID] = &alert
	a.logger.Info("emergency alert recorded", "alert", alert.ID, "patient", alert.PatientID, "delivered", alert.Delivered)
	context.Respond(true)
}

func cloneSorted(in []*models.Message) []*models.Message {
	out := make([]*models.Message, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
