package chat

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	usermodel "wavechat/module/user/model"
	"wavechat/tools/errs"
	security "wavechat/tools/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeFinder struct {
	users map[string]*usermodel.User
	err   error
}

func (f *fakeFinder) FindByID(ctx context.Context, id string) (*usermodel.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[id], nil
}

func testGate(t *testing.T) (*Gate, *usermodel.User, string) {
	t.Helper()
	opts := security.DefaultOptions([]byte("test-secret"))
	u := &usermodel.User{
		ID:       primitive.NewObjectID(),
		Username: "alice",
		IsActive: true,
	}
	token, _, err := security.Generate(opts, u.ID.Hex())
	require.NoError(t, err)

	g := NewGate(opts, &fakeFinder{users: map[string]*usermodel.User{u.ID.Hex(): u}})
	return g, u, token
}

func TestGateTokenFromQuery(t *testing.T) {
	g, u, token := testGate(t)
	r := httptest.NewRequest("GET", "/ws?token="+token, nil)

	got, cerr := g.Authenticate(r)
	require.Nil(t, cerr)
	assert.Equal(t, u.ID, got.ID)
}

func TestGateTokenFromHeader(t *testing.T) {
	g, u, token := testGate(t)
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	got, cerr := g.Authenticate(r)
	require.Nil(t, cerr)
	assert.Equal(t, u.ID, got.ID)
}

func TestGateMissingToken(t *testing.T) {
	g, _, _ := testGate(t)
	r := httptest.NewRequest("GET", "/ws", nil)

	_, cerr := g.Authenticate(r)
	require.NotNil(t, cerr)
	assert.Equal(t, errs.ErrAuthRequired.Code, cerr.Code)
}

func TestGateBadToken(t *testing.T) {
	g, _, _ := testGate(t)
	r := httptest.NewRequest("GET", "/ws?token=garbage", nil)

	_, cerr := g.Authenticate(r)
	require.NotNil(t, cerr)
	assert.Equal(t, errs.ErrTokenInvalid.Code, cerr.Code)
}

func TestGateUnknownUser(t *testing.T) {
	opts := security.DefaultOptions([]byte("test-secret"))
	token, _, err := security.Generate(opts, primitive.NewObjectID().Hex())
	require.NoError(t, err)
	g := NewGate(opts, &fakeFinder{})
	r := httptest.NewRequest("GET", "/ws?token="+token, nil)

	_, cerr := g.Authenticate(r)
	require.NotNil(t, cerr)
	assert.Equal(t, errs.ErrUserNotFound.Code, cerr.Code)
}

func TestGateInactiveUser(t *testing.T) {
	g, u, token := testGate(t)
	u.IsActive = false
	r := httptest.NewRequest("GET", "/ws?token="+token, nil)

	_, cerr := g.Authenticate(r)
	require.NotNil(t, cerr)
	assert.Equal(t, errs.ErrUserInactive.Code, cerr.Code)
}

func TestGateFinderFailure(t *testing.T) {
	opts := security.DefaultOptions([]byte("test-secret"))
	token, _, err := security.Generate(opts, primitive.NewObjectID().Hex())
	require.NoError(t, err)
	g := NewGate(opts, &fakeFinder{err: errors.New("db down")})
	r := httptest.NewRequest("GET", "/ws?token="+token, nil)

	_, cerr := g.Authenticate(r)
	require.NotNil(t, cerr)
	assert.Equal(t, errs.ErrInternal.Code, cerr.Code)
}
