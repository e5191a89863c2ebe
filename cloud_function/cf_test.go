package cloud_function

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/iwls/logging"
	"github.com/taigrr/iwls/types"
)

type fakeInserter struct {
	err   error
	loops []string
	sets  []types.MetricSet
}

func (f *fakeInserter) Insert(_ context.Context, data types.MetricSet, loop string) error {
	f.loops = append(f.loops, loop)
	f.sets = append(f.sets, data)
	return f.err
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestIngest(t *testing.T) {
	store := &fakeInserter{}
	h := NewHandler("secret", store, logging.Noop())

	body := `{"networks":[{"ssid":"home","bssid":"aa","channel":6}],"pings":[{"rtt":1200}]}`
	rec := serve(h, http.MethodPost, "/?key=secret&loop=office", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, store.sets, 1)
	assert.Equal(t, "office", store.loops[0])
	require.Len(t, store.sets[0].Networks, 1)
	assert.Equal(t, "home", store.sets[0].Networks[0].SSID)
	assert.Equal(t, int64(1200), store.sets[0].Pings[0].RTT)
}

func TestIngestRejects(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"wrong key", http.MethodPost, "/?key=nope&loop=office", "{}", http.StatusUnauthorized},
		{"missing key", http.MethodPost, "/?loop=office", "{}", http.StatusUnauthorized},
		{"missing loop", http.MethodPost, "/?key=secret", "{}", http.StatusBadRequest},
		{"get", http.MethodGet, "/?key=secret&loop=office", "", http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, "/?key=secret&loop=office", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeInserter{}
			rec := serve(NewHandler("secret", store, logging.Noop()), tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, rec.Code)
			assert.Empty(t, store.sets)
		})
	}
}

func TestIngestEmptyKeyRejectsAll(t *testing.T) {
	rec := serve(NewHandler("", &fakeInserter{}, logging.Noop()), http.MethodPost, "/?key=&loop=office", "{}")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIngestInsertFailure(t *testing.T) {
	store := &fakeInserter{err: errors.New("quota exceeded")}
	rec := serve(NewHandler("secret", store, logging.Noop()), http.MethodPost, "/?key=secret&loop=office", "{}")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
