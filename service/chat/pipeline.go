package chat

import (
	"context"
	"time"

	"wavechat/logger"
	msgmodel "wavechat/module/message/model"
	msgsvc "wavechat/module/message/service"
	usermodel "wavechat/module/user/model"
	"wavechat/tools/errs"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageCreator persists new chat messages.
type MessageCreator interface {
	Create(ctx context.Context, p msgsvc.CreateParams) (*msgmodel.Message, error)
}

// UserDirectory resolves display metadata for payload enrichment.
// (nil, nil) means unknown user.
type UserDirectory interface {
	PublicByID(ctx context.Context, id string) (*usermodel.PublicUser, error)
}

const sendTimeout = 5 * time.Second

// Pipeline validates, persists, enriches, shapes, and routes outgoing
// chat messages, and relays the non-persisted typing indicators with the
// same addressing.
type Pipeline struct {
	hub      *Hub
	messages MessageCreator
	users    UserDirectory
}

func NewPipeline(hub *Hub, messages MessageCreator, users UserDirectory) *Pipeline {
	return &Pipeline{hub: hub, messages: messages, users: users}
}

// Send processes one message:send command from c. Failures surface as a
// message:error on c only; no presence or room state is ever touched.
func (p *Pipeline) Send(c *Client, data *SendPayload) {
	senderOID, err := primitive.ObjectIDFromHex(c.userID)
	if err != nil {
		c.enqueue(EvtMessageError, &ErrorPayload{Error: "failed to send message", Details: "bad sender id"})
		return
	}

	var receiverOID *primitive.ObjectID
	if data.Receiver != "" {
		oid, err := primitive.ObjectIDFromHex(data.Receiver)
		if err != nil {
			c.enqueue(EvtMessageError, &ErrorPayload{Error: "invalid receiver id"})
			return
		}
		receiverOID = &oid
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	msg, err := p.messages.Create(ctx, msgsvc.CreateParams{
		Sender:   senderOID,
		Receiver: receiverOID,
		Room:     data.Room,
		Content:  data.Content,
		Type:     data.Type,
	})
	if err != nil {
		if errs.ErrEmptyContent.Is(err) {
			c.enqueue(EvtMessageError, &ErrorPayload{Error: "message content is required"})
			return
		}
		if ce := errs.CodeOf(err); ce != nil {
			c.enqueue(EvtMessageError, &ErrorPayload{Error: ce.Msg, Details: ce.Detail})
			return
		}
		logger.Errorf("[pipeline] persist failed user=%s err=%v", c.userID, err)
		c.enqueue(EvtMessageError, &ErrorPayload{Error: "failed to send message", Details: err.Error()})
		return
	}

	payload, err := p.shape(ctx, c, msg)
	if err != nil {
		logger.Errorf("[pipeline] enrich failed user=%s msg=%s err=%v", c.userID, msg.ID.Hex(), err)
		c.enqueue(EvtMessageError, &ErrorPayload{Error: "failed to send message", Details: err.Error()})
		return
	}

	p.hub.RouteMessage(c.userID, data.Receiver, msg.Room, payload)
	logger.Infof("[pipeline] message sent id=%s sender=%s receiver=%s room=%s",
		msg.ID.Hex(), c.userID, data.Receiver, msg.Room)
}

// Typing relays a typing indicator. Nothing is persisted and the sender
// never receives its own event.
func (p *Pipeline) Typing(c *Client, data *TypingPayload, stop bool) {
	p.hub.RelayTyping(c.userID, c.username, data.Receiver, data.Room, stop)
}

// shape builds the canonical payload: ids as hex, sender/receiver display
// metadata resolved through the user directory (cache first), timestamps
// in ISO-8601.
func (p *Pipeline) shape(ctx context.Context, c *Client, msg *msgmodel.Message) (*MessagePayload, error) {
	sender, err := p.users.PublicByID(ctx, msg.Sender.Hex())
	if err != nil {
		return nil, err
	}
	senderRef := UserRef{ID: msg.Sender.Hex(), Username: c.username}
	if sender != nil {
		senderRef = UserRef{ID: sender.ID, Username: sender.Username, Avatar: sender.Avatar, Status: sender.Status}
	}

	var receiverRef *UserRef
	if msg.Receiver != nil {
		recv, err := p.users.PublicByID(ctx, msg.Receiver.Hex())
		if err != nil {
			return nil, err
		}
		receiverRef = &UserRef{ID: msg.Receiver.Hex()}
		if recv != nil {
			receiverRef.Username = recv.Username
		}
	}

	return &MessagePayload{
		ID:        msg.ID.Hex(),
		Sender:    senderRef,
		Receiver:  receiverRef,
		Room:      msg.Room,
		Content:   msg.Content,
		Type:      msg.Type,
		IsRead:    msg.IsRead,
		IsEdited:  msg.IsEdited,
		CreatedAt: msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}
