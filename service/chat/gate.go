package chat

import (
	"context"
	"net/http"
	"time"

	usermodel "wavechat/module/user/model"
	"wavechat/tools/errs"
	security "wavechat/tools/security"
)

// UserFinder resolves an authenticated token subject to a user document.
// (nil, nil) means unknown user.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*usermodel.User, error)
}

const gateTimeout = 5 * time.Second

// Gate authenticates a connection exactly once, at handshake time.
// Everything after the upgrade trusts the identity it resolved here.
type Gate struct {
	opts  security.Options
	users UserFinder
}

func NewGate(opts security.Options, users UserFinder) *Gate {
	return &Gate{opts: opts, users: users}
}

// Authenticate extracts the bearer credential from the handshake request
// ("token" query parameter or Authorization header) and resolves it to an
// active user. Any failure rejects the connection attempt before a
// Client ever exists.
func (g *Gate) Authenticate(r *http.Request) (*usermodel.User, *errs.CodeError) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = security.ExtractBearer(r.Header.Get("Authorization"))
	}
	if token == "" {
		return nil, errs.ErrAuthRequired
	}

	userID, err := security.Verify(g.opts, token)
	if err != nil {
		return nil, errs.ErrTokenInvalid
	}

	ctx, cancel := context.WithTimeout(r.Context(), gateTimeout)
	defer cancel()

	u, err := g.users.FindByID(ctx, userID)
	if err != nil {
		return nil, errs.ErrInternal.WithDetail(err.Error())
	}
	if u == nil {
		return nil, errs.ErrUserNotFound
	}
	if !u.IsActive {
		return nil, errs.ErrUserInactive
	}
	return u, nil
}
