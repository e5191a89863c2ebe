// Package history keeps survey results across passes: channel loads and probe
// results go to a time series database, network snapshots to a key/value store.
package history

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"git.mills.io/prologic/bitcask"
	"github.com/nakabonne/tstorage"

	"github.com/taigrr/iwls/spectrum"
	"github.com/taigrr/iwls/types"
)

const (
	metricLoad         = "channel_load"
	metricAccessPoints = "access_points"
	metricConnectivity = "connectivity"
	metricPing         = "ping"

	snapshotPrefix = "networks/"
	startKey       = "startKey"
)

// Store is the on-disk history of an agent.
type Store struct {
	ts tstorage.Storage
	kv *bitcask.Bitcask
}

// Open opens (or creates) the stores under dir/ts and dir/bc.
func Open(dir string) (*Store, error) {
	ts, err := tstorage.NewStorage(
		tstorage.WithDataPath(filepath.Join(dir, "ts")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
	)
	if err != nil {
		return nil, fmt.Errorf("could not initialize time series database: %w", err)
	}
	kv, err := bitcask.Open(filepath.Join(dir, "bc"), bitcask.WithMaxValueSize(1<<22))
	if err != nil {
		ts.Close()
		return nil, fmt.Errorf("could not initialize keyval database: %w", err)
	}
	return &Store{ts: ts, kv: kv}, nil
}

func (s *Store) Close() error {
	kvErr := s.kv.Close()
	if err := s.ts.Close(); err != nil {
		return err
	}
	return kvErr
}

// Record stores one pass worth of results taken at ts. Probe results can be
// recorded on their own; the access point count is only written for scan
// passes.
func (s *Store) Record(m types.MetricSet, ts time.Time) error {
	unix := ts.Unix()
	var rows []tstorage.Row
	if len(m.Loads) > 0 {
		rows = append(rows, tstorage.Row{
			Metric:    metricAccessPoints,
			DataPoint: tstorage.DataPoint{Timestamp: unix, Value: float64(len(m.Networks))},
		})
	}
	for _, l := range m.Loads {
		rows = append(rows, tstorage.Row{
			Metric:    metricLoad,
			Labels:    channelLabel(l.Channel),
			DataPoint: tstorage.DataPoint{Timestamp: unix, Value: l.Load},
		})
	}
	for _, c := range m.Connectivity {
		value := 0.0
		if c.Connected {
			value = 1.0
		}
		rows = append(rows, tstorage.Row{
			Metric:    metricConnectivity,
			DataPoint: tstorage.DataPoint{Timestamp: c.Timestamp.Unix(), Value: value},
		})
	}
	for _, p := range m.Pings {
		rows = append(rows, tstorage.Row{
			Metric:    metricPing,
			DataPoint: tstorage.DataPoint{Timestamp: p.Timestamp.Unix(), Value: float64(p.RTT)},
		})
	}
	if len(rows) > 0 {
		if err := s.ts.InsertRows(rows); err != nil {
			return fmt.Errorf("inserting rows: %w", err)
		}
	}

	if len(m.Networks) == 0 && len(m.Suggestions) == 0 {
		return nil
	}
	data, err := encodeSnapshot(snapshot{Networks: m.Networks, Suggestions: m.Suggestions})
	if err != nil {
		return err
	}
	if err := s.kv.Put(snapshotKey(unix), data); err != nil {
		return fmt.Errorf("storing snapshot: %w", err)
	}
	return nil
}

// Loads returns the recorded load of a channel in [start, end).
func (s *Store) Loads(channel int, start, end time.Time) (types.ChannelLoadCollection, error) {
	points, err := s.selectPoints(metricLoad, channelLabel(channel), start, end)
	if err != nil {
		return nil, err
	}
	loads := make(types.ChannelLoadCollection, 0, len(points))
	for _, p := range points {
		loads = append(loads, types.ChannelLoad{Channel: channel, Load: p.Value, Timestamp: time.Unix(p.Timestamp, 0)})
	}
	return loads, nil
}

// Networks returns the networks of every snapshot stored in [start, end].
func (s *Store) Networks(start, end time.Time) (types.NetworkCollection, error) {
	var networks types.NetworkCollection
	err := s.snapshots(start, end, func(snap snapshot) {
		networks = append(networks, snap.Networks...)
	})
	return networks, err
}

func (s *Store) snapshots(start, end time.Time, fn func(snapshot)) error {
	keys, err := s.snapshotKeys(start, end)
	if err != nil {
		return err
	}
	for _, key := range keys {
		val, err := s.kv.Get(key)
		if err != nil {
			return fmt.Errorf("getting key %s: %w", key, err)
		}
		snap, err := decodeSnapshot(val)
		if err != nil {
			return err
		}
		fn(snap)
	}
	return nil
}

// Collect gathers everything recorded in [start, end) for the channels of band.
func (s *Store) Collect(band spectrum.Band, start, end time.Time) (types.MetricSet, error) {
	var m types.MetricSet
	for c := spectrum.MinChannel; c <= band.MaxChannel; c++ {
		loads, err := s.Loads(int(c), start, end)
		if err != nil {
			return m, err
		}
		m.Loads = append(m.Loads, loads...)
	}

	points, err := s.selectPoints(metricConnectivity, nil, start, end)
	if err != nil {
		return m, err
	}
	for _, p := range points {
		m.Connectivity = append(m.Connectivity, types.Connectivity{Timestamp: time.Unix(p.Timestamp, 0), Connected: p.Value == 1})
	}

	points, err = s.selectPoints(metricPing, nil, start, end)
	if err != nil {
		return m, err
	}
	for _, p := range points {
		m.Pings = append(m.Pings, types.Ping{Timestamp: time.Unix(p.Timestamp, 0), RTT: int64(p.Value)})
	}

	// snapshot keys are inclusive on both ends
	err = s.snapshots(start, end.Add(-time.Second), func(snap snapshot) {
		m.Networks = append(m.Networks, snap.Networks...)
		m.Suggestions = append(m.Suggestions, snap.Suggestions...)
	})
	return m, err
}

// AccessPointCounts returns how many access points each recorded pass saw.
func (s *Store) AccessPointCounts(start, end time.Time) ([]*tstorage.DataPoint, error) {
	return s.selectPoints(metricAccessPoints, nil, start, end)
}

// Start returns the beginning of the data not yet shipped elsewhere.
func (s *Store) Start() (time.Time, bool) {
	v, err := s.kv.Get([]byte(startKey))
	if err != nil {
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(n, 0), true
}

func (s *Store) SetStart(ts time.Time) error {
	return s.kv.Put([]byte(startKey), []byte(strconv.FormatInt(ts.Unix(), 10)))
}

// Prune deletes the snapshots stored in [start, end].
func (s *Store) Prune(start, end time.Time) error {
	keys, err := s.snapshotKeys(start, end)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.kv.Delete(key); err != nil {
			return fmt.Errorf("deleting key %s: %w", key, err)
		}
	}
	return nil
}

func (s *Store) selectPoints(metric string, labels []tstorage.Label, start, end time.Time) ([]*tstorage.DataPoint, error) {
	points, err := s.ts.Select(metric, labels, start.Unix(), end.Unix())
	if errors.Is(err, tstorage.ErrNoDataPoints) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("selecting %s: %w", metric, err)
	}
	return points, nil
}

func (s *Store) snapshotKeys(start, end time.Time) ([][]byte, error) {
	if end.Before(start) {
		return nil, nil
	}
	var keys [][]byte
	err := s.kv.Range(snapshotKey(start.Unix()), snapshotKey(end.Unix()), func(key []byte) error {
		keys = append(keys, append([]byte(nil), key...))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("range scanning: %w", err)
	}
	return keys, nil
}

// snapshotKey pads the timestamp so keys sort in time order.
func snapshotKey(unix int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", snapshotPrefix, unix))
}

func channelLabel(channel int) []tstorage.Label {
	return []tstorage.Label{{Name: "channel", Value: strconv.Itoa(channel)}}
}

// snapshot is the gob encoded value of a snapshot key.
type snapshot struct {
	Networks    types.NetworkCollection
	Suggestions types.SuggestionCollection
}

func encodeSnapshot(snap snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeSnapshot(b []byte) (snapshot, error) {
	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&snap); err != nil {
		return snap, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}
