package scan

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/taigrr/go-wireless"

	"github.com/taigrr/iwls/spectrum"
)

// WPA talks to wpa_supplicant over its control socket.
type WPA struct {
	iface  string
	conn   *wireless.Conn
	client *wireless.Client
}

// DialWPA connects to the wpa_supplicant instance managing iface. An empty
// iface picks the first wireless interface found.
func DialWPA(iface string) (*WPA, error) {
	if iface == "" {
		ifaces := wireless.Interfaces()
		if len(ifaces) < 1 {
			return nil, ErrNoInterface
		}
		iface = ifaces[0]
	}
	conn, err := wireless.Dial(iface)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", iface, err)
	}
	return &WPA{iface: iface, conn: conn, client: wireless.NewClientFromConn(conn)}, nil
}

func (w *WPA) Interface() string { return w.iface }

func (w *WPA) Scan(ctx context.Context) ([]spectrum.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	aps, err := w.client.Scan()
	if err != nil {
		if strings.Contains(strings.ToUpper(err.Error()), "BUSY") {
			return nil, fmt.Errorf("%w: %v", ErrDeviceBusy, err)
		}
		return nil, fmt.Errorf("scanning %s: %w", w.iface, err)
	}
	records := make([]spectrum.RawRecord, 0, len(aps))
	for _, ap := range aps {
		records = append(records, wpaRecord(ap.SSID, ap.BSSID.String(), ap.Signal, ap.Frequency))
	}
	return records, nil
}

func (w *WPA) CurrentAddress(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	st, err := w.client.Status()
	if err != nil {
		return "", fmt.Errorf("status of %s: %w", w.iface, err)
	}
	if st.BSSID == "" {
		return "", fmt.Errorf("%s is not associated", w.iface)
	}
	return strings.ToLower(st.BSSID), nil
}

func (w *WPA) Close() error {
	w.client.Close()
	return nil
}

// Watch forwards connect, disconnect and authentication failure events. The
// subscription lives as long as the control connection.
func (w *WPA) Watch(ctx context.Context) <-chan LinkEvent {
	sub := w.conn.Subscribe(wireless.EventConnected, wireless.EventAuthReject, wireless.EventDisconnected)
	out := make(chan LinkEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub.Next():
				if !ok {
					return
				}
				le, known := linkEvent(ev.Name)
				if !known {
					continue
				}
				le.Detail = fmt.Sprint(ev.Arguments)
				select {
				case out <- le:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func linkEvent(name string) (LinkEvent, bool) {
	switch name {
	case wireless.EventConnected:
		return LinkEvent{Name: name, Connected: true}, true
	case wireless.EventDisconnected, wireless.EventAuthReject:
		return LinkEvent{Name: name}, true
	}
	return LinkEvent{}, false
}

func wpaRecord(ssid, bssid string, signal, frequency int) spectrum.RawRecord {
	return spectrum.RawRecord{
		SSID:            ssid,
		HardwareAddress: strings.ToLower(bssid),
		SignalLevel:     strconv.Itoa(signal),
		Channel:         strconv.Itoa(FrequencyToChannel(frequency)),
	}
}
