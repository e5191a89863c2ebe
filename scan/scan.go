// Package scan collects raw access point records and the current association
// from the host's wireless stack.
package scan

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/taigrr/iwls/spectrum"
)

var (
	// ErrDeviceBusy is returned while the radio is busy with another scan.
	ErrDeviceBusy = errors.New("wireless device is busy")

	ErrNoInterface = errors.New("no wireless interfaces detected")
)

const busyBackoff = time.Millisecond

// Scanner produces the access points currently visible to the host.
type Scanner interface {
	Scan(ctx context.Context) ([]spectrum.RawRecord, error)
}

// Resolver reports the hardware address of the access point the host is
// associated with.
type Resolver interface {
	CurrentAddress(ctx context.Context) (string, error)
}

// Source is a scanner that can also tell the current association.
type Source interface {
	Scanner
	Resolver
	Close() error
}

// LinkEvent is a change of association reported by the wireless stack.
type LinkEvent struct {
	Name      string
	Connected bool
	Detail    string
}

// Watcher streams association changes. The channel is closed once ctx is done.
type Watcher interface {
	Watch(ctx context.Context) <-chan LinkEvent
}

// ScanWithRetry scans until the device stops reporting busy. Any other failure
// is logged and treated as an empty scan.
func ScanWithRetry(ctx context.Context, s Scanner, log logrus.FieldLogger) ([]spectrum.RawRecord, error) {
	for {
		records, err := s.Scan(ctx)
		if err == nil {
			return records, nil
		}
		if !errors.Is(err, ErrDeviceBusy) {
			log.WithError(err).Warn("scan failed")
			return nil, err
		}
		log.Debug("device busy, retrying scan")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(busyBackoff):
		}
	}
}

// Current returns the associated access point's address, or "" when it cannot
// be determined.
func Current(ctx context.Context, r Resolver, log logrus.FieldLogger) string {
	addr, err := r.CurrentAddress(ctx)
	if err != nil {
		log.WithError(err).Debug("current access point unknown")
		return ""
	}
	return addr
}
