package user

import (
	"net/http"
	"time"

	"wavechat/logger"
	mwsecurity "wavechat/middleware/security"
	"wavechat/module/user/service"
	"wavechat/tools/errs"
	jwtlib "wavechat/tools/security"

	"github.com/gin-gonic/gin"
)

// Handler exposes the auth REST surface: register, login, me.
type Handler struct {
	users *service.Store
	jwt   jwtlib.Options
}

func NewHandler(users *service.Store, jwt jwtlib.Options) *Handler {
	return &Handler{users: users, jwt: jwt}
}

// RegisterRoutes mounts the handlers. auth guards the /me endpoint only;
// register and login are public by definition.
func (h *Handler) RegisterRoutes(r gin.IRouter, auth gin.HandlerFunc) {
	g := r.Group("/api/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.GET("/me", auth, h.Me)
}

type registerReq struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginReq struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResp struct {
	Token    string         `json:"token"`
	ExpireAt string         `json:"expireAt"`
	User     any            `json:"user"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrValidation.WithDetail(err.Error()))
		return
	}

	u, err := h.users.Create(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errs.ErrDuplicate.Is(err) {
			c.JSON(http.StatusConflict, errs.CodeOf(err))
			return
		}
		if ce := errs.CodeOf(err); ce != nil {
			c.JSON(http.StatusBadRequest, ce)
			return
		}
		logger.Errorf("[auth] register failed: %v", err)
		c.JSON(http.StatusInternalServerError, errs.ErrInternal)
		return
	}

	token, expireAt, err := jwtlib.Generate(h.jwt, u.ID.Hex())
	if err != nil {
		logger.Errorf("[auth] token issue failed: %v", err)
		c.JSON(http.StatusInternalServerError, errs.ErrInternal)
		return
	}
	c.JSON(http.StatusCreated, authResp{
		Token:    token,
		ExpireAt: expireAt.UTC().Format(time.RFC3339),
		User:     u.Public(),
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrValidation.WithDetail(err.Error()))
		return
	}

	u, err := h.users.Authenticate(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		if ce := errs.CodeOf(err); ce != nil {
			c.JSON(http.StatusUnauthorized, ce)
			return
		}
		logger.Errorf("[auth] login failed: %v", err)
		c.JSON(http.StatusInternalServerError, errs.ErrInternal)
		return
	}

	token, expireAt, err := jwtlib.Generate(h.jwt, u.ID.Hex())
	if err != nil {
		logger.Errorf("[auth] token issue failed: %v", err)
		c.JSON(http.StatusInternalServerError, errs.ErrInternal)
		return
	}
	c.JSON(http.StatusOK, authResp{
		Token:    token,
		ExpireAt: expireAt.UTC().Format(time.RFC3339),
		User:     u.Public(),
	})
}

func (h *Handler) Me(c *gin.Context) {
	u, ok := mwsecurity.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errs.ErrAuthRequired)
		return
	}
	c.JSON(http.StatusOK, u.Public())
}
