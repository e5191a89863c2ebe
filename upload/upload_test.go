package upload

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/iwls/types"
)

func batch() types.MetricSet {
	ts := time.Unix(1700000000, 0).UTC()
	return types.MetricSet{
		Networks: types.NetworkCollection{{SSID: "home", BSSID: "aa", Channel: 6, Timestamp: ts}},
		Pings:    types.PingCollection{{Timestamp: ts, RTT: 1200}},
	}
}

func TestEndpointSend(t *testing.T) {
	var got types.MetricSet
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "office", r.URL.Query().Get("loop"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := &Endpoint{URL: srv.URL + "/ingest", APIKey: "secret", Loop: "office"}
	require.NoError(t, e.Send(context.Background(), batch()))
	assert.Equal(t, batch(), got)
}

func TestEndpointRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	e := &Endpoint{URL: srv.URL, APIKey: "wrong", Loop: "office"}
	err := e.Send(context.Background(), batch())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

type fakeToken struct {
	paho.Token
	err error
}

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t *fakeToken) Error() error { return t.err }

type publish struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	paho.Client
	err       error
	published []publish
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.published = append(c.published, publish{topic: topic, qos: qos, payload: payload.([]byte)})
	return &fakeToken{err: c.err}
}

func TestMQTTSend(t *testing.T) {
	client := &fakeClient{}
	m := NewMQTT(client, "iwls/surveys", "office", 1)
	assert.Equal(t, "iwls/surveys/office", m.Topic())

	require.NoError(t, m.Send(context.Background(), batch()))
	require.Len(t, client.published, 1)
	assert.Equal(t, "iwls/surveys/office", client.published[0].topic)
	assert.Equal(t, byte(1), client.published[0].qos)

	var got types.MetricSet
	require.NoError(t, json.Unmarshal(client.published[0].payload, &got))
	assert.Equal(t, batch(), got)
}

func TestClientID(t *testing.T) {
	assert.Equal(t, "agent-7", clientID("agent-7"))
	a, b := clientID(""), clientID("")
	assert.True(t, strings.HasPrefix(a, "iwls-"))
	assert.NotEqual(t, a, b)
}

func TestMQTTSendError(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	err := NewMQTT(client, "iwls", "", 0).Send(context.Background(), batch())
	assert.Error(t, err)
}

type countingSink struct {
	calls int
	err   error
}

func (s *countingSink) Send(context.Context, types.MetricSet) error {
	s.calls++
	return s.err
}

func TestMulti(t *testing.T) {
	a, b := &countingSink{err: errors.New("down")}, &countingSink{}
	err := Multi{a, b}.Send(context.Background(), batch())
	assert.EqualError(t, err, "down")
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}
