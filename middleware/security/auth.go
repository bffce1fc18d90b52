package security

import (
	"context"
	"net/http"

	usermodel "wavechat/module/user/model"
	"wavechat/tools/errs"
	jwtlib "wavechat/tools/security"

	"github.com/gin-gonic/gin"
)

// Context keys set for authenticated requests.
const (
	CtxUserIDKey = "authUserId"
	CtxUserKey   = "authUser"
)

// UserFinder loads the token subject; (nil, nil) means unknown.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*usermodel.User, error)
}

// Middleware verifies the bearer token and loads the active user into the
// request context. The WebSocket endpoint has its own gate; this guards
// the REST surface.
func Middleware(opts jwtlib.Options, users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := jwtlib.ExtractBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrAuthRequired)
			return
		}

		userID, err := jwtlib.Verify(opts, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
			return
		}

		u, err := users.FindByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, errs.ErrInternal)
			return
		}
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUserNotFound)
			return
		}
		if !u.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUserInactive)
			return
		}

		c.Set(CtxUserIDKey, u.ID.Hex())
		c.Set(CtxUserKey, u)
		c.Next()
	}
}

// CurrentUser reads the user loaded by Middleware.
func CurrentUser(c *gin.Context) (*usermodel.User, bool) {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*usermodel.User)
	return u, ok
}
