package lockprovider

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ttlockStub struct {
	t         *testing.T
	authCalls atomic.Int32
	handlers  map[string]http.HandlerFunc
}

func newTTLockStub(t *testing.T) (*ttlockStub, *httptest.Server) {
	stub := &ttlockStub{t: t, handlers: map[string]http.HandlerFunc{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		if r.URL.Path == "/oauth2/token" {
			stub.authCalls.Add(1)
			w.Write([]byte(`{"access_token":"tok","expires_in":7200}`))
			return
		}
		assert.Equal(t, "tok", r.Form.Get("accessToken"))
		assert.Equal(t, "client", r.Form.Get("clientId"))
		h, ok := stub.handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return stub, srv
}

func newTestClient(t *testing.T, baseURL string, password string) *TTLockClient {
	c, err := NewTTLockClient(Config{
		BaseURL:      baseURL,
		ClientID:     "client",
		ClientSecret: "secret",
		Username:     "hotel",
		Password:     password,
		Timeout:      time.Second,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestNewTTLockClient_MissingConfig(t *testing.T) {
	_, err := NewTTLockClient(Config{ClientID: "x"}, nil)
	require.Error(t, err)
	assert.True(t, IsConfig(err))
	assert.Contains(t, err.Error(), "client_secret")
}

func TestTTLockClient_CreatePasscode(t *testing.T) {
	stub, srv := newTTLockStub(t)
	start := time.Date(2026, 10, 16, 14, 0, 0, 0, time.UTC)
	end := time.Date(2026, 10, 18, 11, 0, 0, 0, time.UTC)

	stub.handlers["/v3/keyboardPwd/add"] = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "LOCK_101", r.Form.Get("lockId"))
		assert.Equal(t, "123456", r.Form.Get("keyboardPwd"))
		assert.Equal(t, "Jane Doe", r.Form.Get("keyboardPwdName"))
		assert.Equal(t, "1792159200000", r.Form.Get("startDate"))
		assert.Equal(t, "1792321200000", r.Form.Get("endDate"))
		assert.Equal(t, "3", r.Form.Get("keyboardPwdType"))
		w.Write([]byte(`{"keyboardPwdId":42}`))
	}

	c := newTestClient(t, srv.URL, "plain")
	c.newPIN = func() (string, error) { return "123456", nil }

	p, err := c.CreatePasscode(context.Background(), "LOCK_101", start, end, "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, Passcode{Code: "123456", RemoteID: "42"}, p)

	_, err = c.CreatePasscode(context.Background(), "LOCK_101", start, end, "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, int32(1), stub.authCalls.Load(), "token must be cached")
}

func TestTTLockClient_PasswordIsHashed(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.URL.Path == "/oauth2/token" {
			got = r.Form.Get("password")
		}
		w.Write([]byte(`{"access_token":"tok","expires_in":7200}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "plain")
	require.NoError(t, c.RemoteUnlock(context.Background(), "LOCK_1"))

	sum := md5.Sum([]byte("plain"))
	assert.Equal(t, hex.EncodeToString(sum[:]), got)

	hashed := hex.EncodeToString(sum[:])
	c = newTestClient(t, srv.URL, hashed)
	require.NoError(t, c.RemoteUnlock(context.Background(), "LOCK_1"))
	assert.Equal(t, hashed, got)
}

func TestTTLockClient_ErrorMapping(t *testing.T) {
	stub, srv := newTTLockStub(t)
	stub.handlers["/v3/lock/unlock"] = func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":-2012,"errmsg":"gateway offline"}`))
	}
	stub.handlers["/v3/keyboardPwd/delete"] = func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":-3,"errmsg":"invalid parameter"}`))
	}
	stub.handlers["/v3/key/send"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}

	c := newTestClient(t, srv.URL, "plain")

	err := c.RemoteUnlock(context.Background(), "LOCK_1")
	assert.True(t, IsConfig(err))
	assert.Contains(t, err.Error(), "gateway offline")

	err = c.DeletePasscode(context.Background(), "LOCK_1", "7")
	assert.Equal(t, KindRejected, KindOf(err))

	_, err = c.SendCredentialToGuestApp(context.Background(), "LOCK_1", "guest@example.com", time.Now(), time.Now(), "")
	assert.Equal(t, KindUnavailable, KindOf(err))
}

func TestTTLockClient_TimeoutIsAmbiguous(t *testing.T) {
	stub, srv := newTTLockStub(t)
	release := make(chan struct{})
	defer close(release)
	stub.handlers["/v3/keyboardPwd/add"] = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}

	c := newTestClient(t, srv.URL, "plain")
	c.cfg.Timeout = 50 * time.Millisecond

	_, err := c.CreatePasscode(context.Background(), "LOCK_1", time.Now(), time.Now().Add(time.Hour), "Guest")
	require.Error(t, err)
	assert.True(t, IsAmbiguous(err))
}

func TestTTLockClient_FindPasscode(t *testing.T) {
	stub, srv := newTTLockStub(t)
	start := time.UnixMilli(1792159200000)
	end := time.UnixMilli(1792321200000)
	stub.handlers["/v3/lock/listKeyboardPwd"] = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"list":[
			{"keyboardPwdId":1,"keyboardPwd":"111111","keyboardPwdName":"Other","startDate":1792159200000,"endDate":1792321200000},
			{"keyboardPwdId":2,"keyboardPwd":"222222","keyboardPwdName":"Jane Doe","startDate":1792159200000,"endDate":1792321200000}
		]}`))
	}

	c := newTestClient(t, srv.URL, "plain")

	p, err := c.FindPasscode(context.Background(), "LOCK_1", "Jane Doe", start, end)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "222222", p.Code)
	assert.Equal(t, "2", p.RemoteID)

	p, err = c.FindPasscode(context.Background(), "LOCK_1", "Nobody", start, end)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestTTLockClient_FindPasscodeFollowsPages(t *testing.T) {
	stub, srv := newTTLockStub(t)
	start := time.UnixMilli(1792159200000)
	end := time.UnixMilli(1792321200000)
	var requested []string
	stub.handlers["/v3/lock/listKeyboardPwd"] = func(w http.ResponseWriter, r *http.Request) {
		page := r.Form.Get("pageNo")
		requested = append(requested, page)
		switch page {
		case "1", "2":
			w.Write([]byte(`{"pages":3,"list":[{"keyboardPwdId":9,"keyboardPwd":"999999","keyboardPwdName":"Other","startDate":1,"endDate":2}]}`))
		default:
			w.Write([]byte(`{"pages":3,"list":[{"keyboardPwdId":3,"keyboardPwd":"333333","keyboardPwdName":"Jane Doe","startDate":1792159200000,"endDate":1792321200000}]}`))
		}
	}

	c := newTestClient(t, srv.URL, "plain")

	p, err := c.FindPasscode(context.Background(), "LOCK_1", "Jane Doe", start, end)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "3", p.RemoteID)
	assert.Equal(t, []string{"1", "2", "3"}, requested)

	requested = nil
	p, err = c.FindPasscode(context.Background(), "LOCK_1", "Nobody", start, end)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, []string{"1", "2", "3"}, requested)
}

func TestRandomPIN(t *testing.T) {
	for i := 0; i < 200; i++ {
		pin, err := randomPIN()
		require.NoError(t, err)
		assert.Len(t, pin, 6)
		assert.NotEqual(t, byte('0'), pin[0])
	}
}
