package scan

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/taigrr/iwls/spectrum"
)

// iw exits with 240 (-EBUSY) while another scan is running.
const iwBusyStatus = 240

const systemPath = "/usr/sbin:/sbin"

// Runner executes an external command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	path := systemPath
	if p := os.Getenv("PATH"); p != "" {
		path = p + ":" + systemPath
	}
	cmd.Env = append(os.Environ(), "PATH="+path)
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == iwBusyStatus {
		return out, fmt.Errorf("%w: %v", ErrDeviceBusy, err)
	}
	return out, err
}

// IW scans by running the iw utility and parsing its text output.
type IW struct {
	iface  string
	runner Runner

	// associated is the BSS the last scan marked as associated.
	associated string
}

// NewIW returns an iw backed source. An empty iface is resolved from `iw dev`
// on first use.
func NewIW(iface string) *IW {
	return &IW{iface: iface, runner: execRunner{}}
}

func (w *IW) interfaceName(ctx context.Context) (string, error) {
	if w.iface != "" {
		return w.iface, nil
	}
	out, err := w.runner.Run(ctx, "iw", "dev")
	if err != nil {
		return "", fmt.Errorf("iw dev: %w", err)
	}
	iface, ok := parseInterface(out)
	if !ok {
		return "", ErrNoInterface
	}
	w.iface = iface
	return iface, nil
}

func (w *IW) Scan(ctx context.Context) ([]spectrum.RawRecord, error) {
	iface, err := w.interfaceName(ctx)
	if err != nil {
		return nil, err
	}
	out, err := w.runner.Run(ctx, "iw", "dev", iface, "scan")
	if err != nil {
		return nil, fmt.Errorf("iw scan on %s: %w", iface, err)
	}
	records, associated := parseScan(out)
	w.associated = associated
	return records, nil
}

func (w *IW) CurrentAddress(ctx context.Context) (string, error) {
	iface, err := w.interfaceName(ctx)
	if err != nil {
		return "", err
	}
	out, err := w.runner.Run(ctx, "iw", "dev", iface, "link")
	if err != nil {
		if w.associated != "" {
			return w.associated, nil
		}
		return "", fmt.Errorf("iw link on %s: %w", iface, err)
	}
	addr, ok := parseLink(out)
	if !ok {
		return "", fmt.Errorf("%s is not associated", iface)
	}
	return addr, nil
}

func (w *IW) Close() error { return nil }

var (
	bssLine     = regexp.MustCompile(`^BSS ([0-9a-fA-F:]{17})`)
	signalLine  = regexp.MustCompile(`^signal: (-?[0-9.]+) dBm`)
	freqLine    = regexp.MustCompile(`^freq: ([0-9]+)`)
	dsChannel   = regexp.MustCompile(`^DS Parameter set: channel ([0-9]+)`)
	primaryChan = regexp.MustCompile(`^\* primary channel: ([0-9]+)`)
	linkLine    = regexp.MustCompile(`Connected to ([0-9a-fA-F:]{17})`)
)

// parseScan reads `iw dev <if> scan` output. It also returns the address of
// the BSS marked as associated, if any.
func parseScan(out []byte) ([]spectrum.RawRecord, string) {
	var (
		records    []spectrum.RawRecord
		associated string
		cur        *spectrum.RawRecord
		freq       int
	)
	flush := func() {
		if cur == nil {
			return
		}
		if cur.Channel == "" {
			cur.Channel = strconv.Itoa(FrequencyToChannel(freq))
		}
		records = append(records, *cur)
		cur = nil
		freq = 0
	}

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		raw := sc.Text()
		line := strings.TrimSpace(raw)
		if m := bssLine.FindStringSubmatch(raw); m != nil {
			flush()
			cur = &spectrum.RawRecord{HardwareAddress: strings.ToLower(m[1])}
			if strings.Contains(raw, "-- associated") {
				associated = cur.HardwareAddress
			}
			continue
		}
		if cur == nil {
			continue
		}
		switch {
		case strings.HasPrefix(line, "SSID:"):
			cur.SSID = strings.TrimSpace(strings.TrimPrefix(line, "SSID:"))
		case signalLine.MatchString(line):
			cur.SignalLevel = signalLine.FindStringSubmatch(line)[1]
		case freqLine.MatchString(line):
			freq, _ = strconv.Atoi(freqLine.FindStringSubmatch(line)[1])
		case dsChannel.MatchString(line):
			cur.Channel = dsChannel.FindStringSubmatch(line)[1]
		case primaryChan.MatchString(line) && cur.Channel == "":
			cur.Channel = primaryChan.FindStringSubmatch(line)[1]
		}
	}
	flush()
	return records, associated
}

// parseInterface returns the first interface listed by `iw dev`.
func parseInterface(out []byte) (string, bool) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "Interface ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "Interface ")), true
		}
	}
	return "", false
}

// parseLink extracts the associated BSSID from `iw dev <if> link`.
func parseLink(out []byte) (string, bool) {
	m := linkLine.FindSubmatch(out)
	if m == nil {
		return "", false
	}
	return strings.ToLower(string(m[1])), true
}
