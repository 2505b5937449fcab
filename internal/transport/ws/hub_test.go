package ws

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"preflight/internal/logger"
	"preflight/internal/model"
)

type fakeValidator map[string]string

func (f fakeValidator) ValidateToken(token string) (*model.UserClaims, error) {
	uid, ok := f[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &model.UserClaims{UserID: uid}, nil
}

func dial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestHub_DeliversToOwnerOnly(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(logger.Nop())
	h := NewHandler(hub, fakeValidator{"tok-a": "alice", "tok-b": "bob"}, "*", logger.Nop())
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))

	a, _, err := dial(t, srv, "tok-a")
	require.NoError(t, err)
	b, _, err := dial(t, srv, "tok-b")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return hub.Connections("alice") == 1 && hub.Connections("bob") == 1
	}, time.Second, 10*time.Millisecond)

	hub.BroadcastToOwner("alice", "questionnaire_updated", map[string]string{"questionnaireId": "qn-1"})

	var msg Message
	require.NoError(t, a.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, a.ReadJSON(&msg))
	assert.Equal(t, "questionnaire_updated", msg.Type)
	assert.JSONEq(t, `{"questionnaireId":"qn-1"}`, string(msg.Payload))

	require.NoError(t, b.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = b.ReadMessage()
	assert.Error(t, err, "bob receives nothing")

	a.Close()
	b.Close()
	hub.Stop()
	srv.Close()
}

func TestHub_UnregisterOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(logger.Nop())
	h := NewHandler(hub, fakeValidator{"tok": "alice"}, "*", logger.Nop())
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))

	c, _, err := dial(t, srv, "tok")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Connections("alice") == 1 }, time.Second, 10*time.Millisecond)

	c.Close()
	require.Eventually(t, func() bool { return hub.Connections("alice") == 0 }, time.Second, 10*time.Millisecond)

	hub.Stop()
	hub.BroadcastToOwner("alice", "questionnaire_updated", nil)
	srv.Close()
}

func TestHandler_RejectsBadToken(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(logger.Nop())
	h := NewHandler(hub, fakeValidator{}, "*", logger.Nop())
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))

	_, resp, err := dial(t, srv, "")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dial(t, srv, "forged")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	hub.Stop()
	srv.Close()
}

func TestOriginChecker(t *testing.T) {
	check := originChecker("https://app.example.com, https://admin.example.com")

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(r), "no origin header")

	r.Header.Set("Origin", "https://admin.example.com")
	assert.True(t, check(r))

	r.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(r))

	assert.True(t, originChecker("*")(r))
}
