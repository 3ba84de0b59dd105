package mockapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, target string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec.Code, body
}

func TestListDefaultBehavior(t *testing.T) {
	srv := New(DefaultBehavior(), nil)

	status, body := get(t, srv, "/api/test/users?gender=any")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []any{1.0, 2.0, 5.0, 8.0}, body["idList"])

	status, body = get(t, srv, "/api/test/users?gender=mccloud")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{8.0}, body["idList"])

	status, body = get(t, srv, "/api/test/users")
	assert.Equal(t, http.StatusOK, status, "missing filter is silently accepted")
	assert.Len(t, body["idList"], 4)

	status, body = get(t, srv, "/api/test/users?gender=robot")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, float64(CodeInvalidParameter), body["errorCode"])
	assert.NotEmpty(t, body["errorMessage"])
}

func TestListConformingBehavior(t *testing.T) {
	srv := New(ConformingBehavior(), nil)

	status, body := get(t, srv, "/api/test/users?gender=female")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["isSuccess"])
	assert.Equal(t, []any{1.0}, body["result"])

	status, body = get(t, srv, "/api/test/users")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, float64(CodeMissingParameter), body["errorCode"])
}

func TestListQuirks(t *testing.T) {
	b := DefaultBehavior()
	b.AcceptInvalidFilter = true
	b.ListZeroID = true
	srv := New(b, nil)

	_, body := get(t, srv, "/api/test/users?gender=robot")
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []any{0.0}, body["idList"])
}

func TestProfile(t *testing.T) {
	srv := New(DefaultBehavior(), nil)

	status, body := get(t, srv, "/api/test/user/2")
	assert.Equal(t, http.StatusOK, status)
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2.0, user["id"])
	assert.Equal(t, "Bob", user["name"])
	assert.Nil(t, body["errorMessage"])
}

func TestProfileInvalidIDs(t *testing.T) {
	for _, target := range []string{"/api/test/user/-1", "/api/test/user/abc", "/api/test/user/12abc", "/api/test/user/"} {
		t.Run(target, func(t *testing.T) {
			status, body := get(t, New(DefaultBehavior(), nil), target)
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, float64(CodeInvalidParameter), body["errorCode"])

			status, _ = get(t, New(ConformingBehavior(), nil), target)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}
}

func TestProfileNotFoundShapes(t *testing.T) {
	tests := []struct {
		shape   NotFoundShape
		channel ErrorChannel
		status  int
		check   func(t *testing.T, body map[string]any)
	}{
		{NotFoundStatus, ChannelBodyFlag, http.StatusNotFound, func(t *testing.T, body map[string]any) {
			assert.Equal(t, float64(CodeNotFound), body["errorCode"])
		}},
		{NotFoundNullProfile, ChannelBodyFlag, http.StatusOK, func(t *testing.T, body map[string]any) {
			assert.Equal(t, true, body["success"])
			assert.Contains(t, body, "user")
			assert.Nil(t, body["user"])
		}},
		{NotFoundErrorBody, ChannelBodyFlag, http.StatusOK, func(t *testing.T, body map[string]any) {
			assert.Equal(t, false, body["success"])
		}},
		{NotFoundErrorBody, ChannelStatus, http.StatusNotFound, func(t *testing.T, body map[string]any) {
			assert.Equal(t, false, body["success"])
		}},
		{NotFoundCollision, ChannelBodyFlag, http.StatusOK, func(t *testing.T, body map[string]any) {
			assert.NotNil(t, body["user"])
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.shape)+"/"+string(tt.channel), func(t *testing.T) {
			b := DefaultBehavior()
			b.NotFound = tt.shape
			b.ErrorChannel = tt.channel
			status, body := get(t, New(b, nil), "/api/test/user/2147483647")
			assert.Equal(t, tt.status, status)
			tt.check(t, body)
		})
	}
}

func TestAcceptInvalidID(t *testing.T) {
	b := DefaultBehavior()
	b.AcceptInvalidID = true
	status, body := get(t, New(b, nil), "/api/test/user/abc")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.NotNil(t, body["user"])
}

func TestOmitErrorMessage(t *testing.T) {
	b := DefaultBehavior()
	b.OmitErrorMessage = true
	_, body := get(t, New(b, nil), "/api/test/user/-1")
	assert.NotContains(t, body, "errorMessage")
}

func TestFailFirst(t *testing.T) {
	b := DefaultBehavior()
	b.FailFirst = 2
	srv := New(b, nil)

	status, _ := get(t, srv, "/api/test/user/1")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	status, _ = get(t, srv, "/api/test/user/1")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	status, _ = get(t, srv, "/api/test/user/1")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(3), srv.Requests())
}

func TestCustomUsers(t *testing.T) {
	srv := New(DefaultBehavior(), []User{})
	_, body := get(t, srv, "/api/test/users?gender=any")
	assert.Equal(t, []any{}, body["idList"])
}
