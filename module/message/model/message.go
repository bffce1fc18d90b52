package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CollectionName = "messages"

	// DefaultRoom receives messages addressed to neither a user nor a room.
	DefaultRoom = "general"

	MaxContentLength = 2000
)

// Message types.
const (
	TypeText   = "text"
	TypeImage  = "image"
	TypeFile   = "file"
	TypeSystem = "system"
)

func ValidType(t string) bool {
	switch t {
	case TypeText, TypeImage, TypeFile, TypeSystem:
		return true
	}
	return false
}

type Attachment struct {
	URL      string `bson:"url" json:"url"`
	Filename string `bson:"filename" json:"filename"`
	MimeType string `bson:"mimetype" json:"mimetype"`
	Size     int64  `bson:"size" json:"size"`
}

// Message is the durable chat message document. Receiver is nil for room
// messages. Messages are only ever soft-deleted.
type Message struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Sender      primitive.ObjectID  `bson:"sender" json:"sender"`
	Receiver    *primitive.ObjectID `bson:"receiver" json:"receiver,omitempty"`
	Room        string              `bson:"room" json:"room"`
	Content     string              `bson:"content" json:"content"`
	Type        string              `bson:"type" json:"type"`
	Attachments []Attachment        `bson:"attachments,omitempty" json:"attachments,omitempty"`
	IsRead      bool                `bson:"is_read" json:"isRead"`
	ReadAt      *time.Time          `bson:"read_at,omitempty" json:"readAt,omitempty"`
	IsEdited    bool                `bson:"is_edited" json:"isEdited"`
	EditedAt    *time.Time          `bson:"edited_at,omitempty" json:"editedAt,omitempty"`
	IsDeleted   bool                `bson:"is_deleted" json:"isDeleted"`
	DeletedAt   *time.Time          `bson:"deleted_at,omitempty" json:"deletedAt,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updatedAt"`
}

func (m *Message) IsPrivate() bool { return m.Receiver != nil }
