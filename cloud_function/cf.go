// Package cloud_function is the HTTP ingest for batches uploaded by iwls
// agents. It is deployed as a Google Cloud Function with Ingest as the entry
// point.
package cloud_function

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/taigrr/iwls/cloud_function/bq"
	"github.com/taigrr/iwls/logging"
	"github.com/taigrr/iwls/types"
)

const Package = "save_metrics"

// maxBody bounds an uploaded batch.
const maxBody = 32 << 20

// Inserter stores a decoded batch for a loop.
type Inserter interface {
	Insert(ctx context.Context, data types.MetricSet, loop string) error
}

var (
	once    sync.Once
	handler http.Handler
)

// Ingest is the function entry point. Its configuration is read from the
// environment on first use; set IWLS_LOG_FORMAT=json for Cloud Logging.
func Ingest(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		log := logging.NewFromEnv()
		cfg, err := bq.ConfigFromEnv(os.Getenv)
		if err != nil {
			log.WithError(err).Error("function is not configured")
			handler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			})
			return
		}
		handler = NewHandler(os.Getenv("METRICS_KEY"), bq.NewInserter(cfg), log)
	})
	handler.ServeHTTP(w, r)
}

type ingestHandler struct {
	key   string
	store Inserter
	log   logrus.FieldLogger
	count int64
}

// NewHandler checks the key and loop query parameters and hands POSTed
// batches to store.
func NewHandler(key string, store Inserter, log logrus.FieldLogger) http.Handler {
	return &ingestHandler{key: key, store: store, log: log}
}

func (h *ingestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.key == "" || r.URL.Query().Get("key") != h.key {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	loop := r.URL.Query().Get("loop")
	if loop == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte("Only POST supported."))
		return
	}

	var data types.MetricSet
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&data); err != nil {
		h.log.WithError(err).WithField("loop", loop).Warn("rejecting malformed batch")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	n := atomic.AddInt64(&h.count, 1)
	log := h.log.WithFields(logrus.Fields{"loop": loop, "request": n})
	if err := h.store.Insert(r.Context(), data, loop); err != nil {
		log.WithError(err).Error("bigquery insertion failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	log.WithField("networks", len(data.Networks)).Info("batch stored")
	w.WriteHeader(http.StatusOK)
}
