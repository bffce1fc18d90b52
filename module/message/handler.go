package message

import (
	"net/http"
	"strconv"
	"time"

	"wavechat/logger"
	mwsecurity "wavechat/middleware/security"
	"wavechat/module/message/model"
	"wavechat/module/message/service"
	usermodel "wavechat/module/user/model"
	usersvc "wavechat/module/user/service"
	"wavechat/tools/errs"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Handler exposes the message history REST surface.
type Handler struct {
	messages *service.Store
	users    *usersvc.Store
}

func NewHandler(messages *service.Store, users *usersvc.Store) *Handler {
	return &Handler{messages: messages, users: users}
}

// RegisterRoutes mounts the handlers; every endpoint requires auth.
func (h *Handler) RegisterRoutes(r gin.IRouter, auth gin.HandlerFunc) {
	g := r.Group("/api/messages", auth)
	g.GET("", h.List)
	g.POST("/:id/read", h.MarkRead)
	g.PUT("/:id", h.Edit)
	g.DELETE("/:id", h.Delete)
}

type userRef struct {
	ID       string `json:"_id"`
	Username string `json:"username,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Status   string `json:"status,omitempty"`
}

type msgResp struct {
	ID        string   `json:"_id"`
	Sender    userRef  `json:"sender"`
	Receiver  *userRef `json:"receiver,omitempty"`
	Room      string   `json:"room,omitempty"`
	Content   string   `json:"content"`
	Type      string   `json:"type"`
	IsRead    bool     `json:"isRead"`
	IsEdited  bool     `json:"isEdited"`
	CreatedAt string   `json:"createdAt"`
}

// List returns history for a room (?room=) or a private conversation
// (?targetId=) in chronological order. Defaults to the general room.
func (h *Handler) List(c *gin.Context) {
	u, ok := mwsecurity.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errs.ErrAuthRequired)
		return
	}

	limit := queryInt64(c, "limit", 50)
	skip := queryInt64(c, "skip", 0)

	var (
		msgs []*model.Message
		err  error
	)
	if target := c.Query("targetId"); target != "" {
		oid, perr := primitive.ObjectIDFromHex(target)
		if perr != nil {
			c.JSON(http.StatusBadRequest, errs.ErrValidation.WithDetail("invalid targetId"))
			return
		}
		msgs, err = h.messages.DirectHistory(c.Request.Context(), u.ID, oid, limit, skip)
	} else {
		room := c.Query("room")
		if room == "" {
			room = model.DefaultRoom
		}
		msgs, err = h.messages.RoomHistory(c.Request.Context(), room, limit, skip)
	}
	if err != nil {
		logger.Errorf("[messages] list failed user=%s err=%v", u.ID.Hex(), err)
		c.JSON(http.StatusInternalServerError, errs.ErrInternal)
		return
	}

	out := make([]*msgResp, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, h.hydrate(c, m))
	}
	c.JSON(http.StatusOK, out)
}

// MarkRead flips the read flag. Only the receiver of a private message
// may mark it read.
func (h *Handler) MarkRead(c *gin.Context) {
	u, m, ok := h.load(c)
	if !ok {
		return
	}
	if m.Receiver == nil || *m.Receiver != u.ID {
		c.JSON(http.StatusForbidden, errs.ErrForbidden)
		return
	}
	if err := h.messages.MarkRead(c.Request.Context(), m.ID); err != nil {
		h.fail(c, err, "mark read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type editReq struct {
	Content string `json:"content" binding:"required"`
}

// Edit replaces the content. Sender only.
func (h *Handler) Edit(c *gin.Context) {
	u, m, ok := h.load(c)
	if !ok {
		return
	}
	if m.Sender != u.ID {
		c.JSON(http.StatusForbidden, errs.ErrForbidden)
		return
	}

	var req editReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrValidation.WithDetail(err.Error()))
		return
	}

	edited, err := h.messages.Edit(c.Request.Context(), m.ID, req.Content)
	if err != nil {
		h.fail(c, err, "edit")
		return
	}
	c.JSON(http.StatusOK, h.hydrate(c, edited))
}

// Delete soft-deletes. Sender only.
func (h *Handler) Delete(c *gin.Context) {
	u, m, ok := h.load(c)
	if !ok {
		return
	}
	if m.Sender != u.ID {
		c.JSON(http.StatusForbidden, errs.ErrForbidden)
		return
	}
	if err := h.messages.SoftDelete(c.Request.Context(), m.ID); err != nil {
		h.fail(c, err, "delete")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// load resolves the authenticated user and the :id message, writing the
// error response itself when either step fails.
func (h *Handler) load(c *gin.Context) (u *usermodel.User, m *model.Message, ok bool) {
	user, has := mwsecurity.CurrentUser(c)
	if !has {
		c.JSON(http.StatusUnauthorized, errs.ErrAuthRequired)
		return nil, nil, false
	}

	oid, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrValidation.WithDetail("invalid message id"))
		return nil, nil, false
	}

	msg, err := h.messages.FindByID(c.Request.Context(), oid)
	if err != nil {
		logger.Errorf("[messages] load failed id=%s err=%v", oid.Hex(), err)
		c.JSON(http.StatusInternalServerError, errs.ErrInternal)
		return nil, nil, false
	}
	if msg == nil || msg.IsDeleted {
		c.JSON(http.StatusNotFound, errs.ErrNotFound)
		return nil, nil, false
	}
	return user, msg, true
}

func (h *Handler) fail(c *gin.Context, err error, op string) {
	if errs.ErrNotFound.Is(err) {
		c.JSON(http.StatusNotFound, errs.ErrNotFound)
		return
	}
	if ce := errs.CodeOf(err); ce != nil {
		c.JSON(http.StatusBadRequest, ce)
		return
	}
	logger.Errorf("[messages] %s failed: %v", op, err)
	c.JSON(http.StatusInternalServerError, errs.ErrInternal)
}

// hydrate resolves sender/receiver display metadata through the user
// store (cache-backed). Lookup failures degrade to bare ids.
func (h *Handler) hydrate(c *gin.Context, m *model.Message) *msgResp {
	resp := &msgResp{
		ID:        m.ID.Hex(),
		Sender:    userRef{ID: m.Sender.Hex()},
		Room:      m.Room,
		Content:   m.Content,
		Type:      m.Type,
		IsRead:    m.IsRead,
		IsEdited:  m.IsEdited,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if p, err := h.users.PublicByID(c.Request.Context(), resp.Sender.ID); err == nil && p != nil {
		resp.Sender = userRef{ID: p.ID, Username: p.Username, Avatar: p.Avatar, Status: p.Status}
	}
	if m.Receiver != nil {
		ref := &userRef{ID: m.Receiver.Hex()}
		if p, err := h.users.PublicByID(c.Request.Context(), ref.ID); err == nil && p != nil {
			ref.Username = p.Username
		}
		resp.Receiver = ref
	}
	return resp
}

func queryInt64(c *gin.Context, key string, def int64) int64 {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return def
	}
	return n
}
