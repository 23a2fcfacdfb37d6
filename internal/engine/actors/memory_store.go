package actors

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pillscare/internal/database"
	"pillscare/internal/models"
	"pillscare/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// MemoryStore implements database.Store on top of a StoreActor. A future
// that times out surfaces as STORE_UNAVAILABLE, like a dead connection.
type MemoryStore struct {
	root    *actor.RootContext
	pid     *actor.PID
	timeout time.Duration
}

var _ database.Store = (*MemoryStore)(nil)

func NewMemoryStore(system *actor.ActorSystem, timeout time.Duration, metrics *utils.MetricsCollector, logger *slog.Logger) *MemoryStore {
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewStoreActor(metrics, logger)
	})
	return &MemoryStore{
		root:    system.Root,
		pid:     system.Root.Spawn(props),
		timeout: timeout,
	}
}

func (s *MemoryStore) request(ctx context.Context, op string, msg interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, utils.NewStoreUnavailableError(op, err)
	}
	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	result, err := s.root.RequestFuture(s.pid, msg, timeout).Result()
	if err != nil {
		return nil, utils.NewStoreUnavailableError(op, err)
	}
	if appErr, ok := result.(*utils.AppError); ok {
		return nil, appErr
	}
	return result, nil
}

func unexpected(op string, result interface{}) error {
	return utils.NewStoreUnavailableError(op, fmt.Errorf("unexpected reply %T", result))
}

func (s *MemoryStore) AppendMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	result, err := s.request(ctx, "append message", &AppendMessageMsg{Message: msg})
	if err != nil {
		return nil, err
	}
	stored, ok := result.(*models.Message)
	if !ok {
		return nil, unexpected("append message", result)
	}
	return stored, nil
}

func (s *MemoryStore) queryMessages(ctx context.Context, op string, msg interface{}) ([]*models.Message, error) {
	result, err := s.request(ctx, op, msg)
	if err != nil {
		return nil, err
	}
	messages, ok := result.([]*models.Message)
	if !ok {
		return nil, unexpected(op, result)
	}
	return messages, nil
}

func (s *MemoryStore) QueryMessagesBetween(ctx context.Context, a, b uuid.UUID) ([]*models.Message, error) {
	return s.queryMessages(ctx, "query conversation", &QueryMessagesBetweenMsg{UserA: a, UserB: b})
}

func (s *MemoryStore) QueryMessagesForUser(ctx context.Context, user uuid.UUID) ([]*models.Message, error) {
	return s.queryMessages(ctx, "query user messages", &QueryMessagesForUserMsg{UserID: user})
}

func (s *MemoryStore) countReply(ctx context.Context, op string, msg interface{}) (int64, error) {
	result, err := s.request(ctx, op, msg)
	if err != nil {
		return 0, err
	}
	n, ok := result.(int64)
	if !ok {
		return 0, unexpected(op, result)
	}
	return n, nil
}

func (s *MemoryStore) SetRead(ctx context.Context, sender, receiver uuid.UUID, at time.Time) (int64, error) {
	return s.countReply(ctx, "mark read", &SetReadMsg{SenderID: sender, ReceiverID: receiver, At: at})
}

func (s *MemoryStore) CountUnread(ctx context.Context, recipient uuid.UUID) (int64, error) {
	return s.countReply(ctx, "count unread", &CountUnreadMsg{RecipientID: recipient})
}

func (s *MemoryStore) ack(ctx context.Context, op string, msg interface{}) error {
	_, err := s.request(ctx, op, msg)
	return err
}

func (s *MemoryStore) UpsertReminder(ctx context.Context, r *models.Reminder) error {
	return s.ack(ctx, "upsert reminder", &UpsertReminderMsg{Reminder: r})
}

func (s *MemoryStore) GetReminder(ctx context.Context, id uuid.UUID) (*models.Reminder, error) {
	result, err := s.request(ctx, "get reminder", &GetReminderMsg{ReminderID: id})
	if err != nil {
		return nil, err
	}
	r, ok := result.(*models.Reminder)
	if !ok {
		return nil, unexpected("get reminder", result)
	}
	return r, nil
}

func (s *MemoryStore) ListActiveReminders(ctx context.Context, owner uuid.UUID) ([]*models.Reminder, error) {
	result, err := s.request(ctx, "list reminders", &ListActiveRemindersMsg{OwnerID: owner})
	if err != nil {
		return nil, err
	}
	list, ok := result.([]*models.Reminder)
	if !ok {
		return nil, unexpected("list reminders", result)
	}
	return list, nil
}

func (s *MemoryStore) DeactivateReminder(ctx context.Context, id uuid.UUID) error {
	return s.ack(ctx, "deactivate reminder", &DeactivateReminderMsg{ReminderID: id})
}

func (s *MemoryStore) LogChatTurn(ctx context.Context, turn *models.ChatTurn) error {
	return s.ack(ctx, "log chat turn", &LogChatTurnMsg{Turn: turn})
}

func (s *MemoryStore) SaveEmergencyAlert(ctx context.Context, alert *models.EmergencyAlert) error {
	return s.ack(ctx, "save emergency alert", &SaveEmergencyAlertMsg{Alert: alert})
}

func (s *MemoryStore) UpsertPatientContact(ctx context.Context, c *models.PatientContact) error {
	return s.ack(ctx, "upsert patient contact", &UpsertPatientContactMsg{Contact: c})
}

func (s *MemoryStore) GetPatientContact(ctx context.Context, userID uuid.UUID) (*models.PatientContact, error) {
	result, err := s.request(ctx, "get patient contact", &GetPatientContactMsg{UserID: userID})
	if err != nil {
		return nil, err
	}
	c, ok := result.(*models.PatientContact)
	if !ok {
		return nil, unexpected("get patient contact", result)
	}
	return c, nil
}

// Counts reports how many records of each kind are held.
func (s *MemoryStore) Counts(ctx context.Context) (*StoreCounts, error) {
	result, err := s.request(ctx, "counts", &GetCountsMsg{})
	if err != nil {
		return nil, err
	}
	counts, ok := result.(*StoreCounts)
	if !ok {
		return nil, unexpected("counts", result)
	}
	return counts, nil
}

// Close stops the backing actor. The actor system itself belongs to the caller.
func (s *MemoryStore) Close(ctx context.Context) error {
	return s.root.StopFuture(s.pid).Wait()
}
