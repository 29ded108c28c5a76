// Package audit provides a tamper-evident operation log for vault files.
//
// Events are appended as JSON lines to a sidecar file next to the vault.
// Each event carries an HMAC over its content chained to the previous
// event's HMAC, so truncation, reordering, or edits anywhere in the file
// break verification from that point on. The HMAC key is derived with
// HKDF-SHA256 from a random seed stored beside the log with 0600
// permissions.
package audit

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// Operation types.
const (
	OpVaultOpen       = "vault.open"
	OpVaultOpenFailed = "vault.open_failed"
	OpVaultCreate     = "vault.create"
	OpVaultSave       = "vault.save"
	OpVaultRekey      = "vault.rekey"

	OpEntryCreate = "entry.create"
	OpEntryUpdate = "entry.update"
	OpEntryDelete = "entry.delete"

	OpGroupCreate = "group.create"
	OpGroupUpdate = "group.update"
	OpGroupDelete = "group.delete"

	OpImport = "import"
)

// Event outcomes.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// File name suffixes relative to the vault path.
const (
	logSuffix = ".log"
	keySuffix = ".logkey"
)

const chainGenesis = "genesis"

// ErrChainBroken reports that the HMAC chain does not verify.
var ErrChainBroken = errors.New("audit: log chain broken")

// Event is a single operation record.
type Event struct {
	Version   int    `json:"v"`
	ID        string `json:"id"`
	Timestamp string `json:"ts"`
	Op        string `json:"op"`
	Target    string `json:"target,omitempty"`
	Result    string `json:"result"`
	Error     string `json:"error,omitempty"`
	Chain     Chain  `json:"chain"`
}

// Chain links an event to its predecessor.
type Chain struct {
	Sequence int64  `json:"seq"`
	Prev     string `json:"prev"`
	HMAC     string `json:"hmac"`
}

// Logger appends chained events to the log beside one vault file.
type Logger struct {
	mu      sync.Mutex
	logPath string
	keyPath string
	hmacKey []byte
	seq     int64
	prev    string
}

// Open prepares a logger for the vault at path. The seed key is created
// on first use; an existing log has its chain tail loaded so appends
// continue the chain.
func Open(vaultPath string) (*Logger, error) {
	l := &Logger{
		logPath: vaultPath + logSuffix,
		keyPath: vaultPath + keySuffix,
		prev:    chainGenesis,
	}
	if err := l.loadKey(); err != nil {
		return nil, err
	}
	if err := l.loadTail(); err != nil {
		return nil, err
	}
	return l, nil
}

// Record appends one event. Target names the affected object, typically
// an entry or group ID; opErr marks the event as failed when non-nil.
func (l *Logger) Record(op, target string, opErr error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	event := Event{
		Version:   1,
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Op:        op,
		Target:    target,
		Result:    ResultSuccess,
	}
	if opErr != nil {
		event.Result = ResultError
		event.Error = opErr.Error()
	}

	event.Chain.Sequence = l.seq + 1
	event.Chain.Prev = l.prev
	event.Chain.HMAC = l.sign(&event)

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: encode event: %w", err)
	}
	f, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("audit: open log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write event: %w", err)
	}

	l.seq = event.Chain.Sequence
	l.prev = event.Chain.HMAC
	return nil
}

// Events returns all recorded events in order. A missing log is empty,
// not an error.
func (l *Logger) Events() ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readAll()
}

// Verify replays the log and checks every event's HMAC and chain link.
// It returns the number of valid events; on a broken chain the count
// says how many events verified before the break.
func (l *Logger) Verify() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.readAll()
	if err != nil {
		return 0, err
	}
	prev := chainGenesis
	for i := range events {
		e := &events[i]
		if e.Chain.Sequence != int64(i)+1 || e.Chain.Prev != prev {
			return i, fmt.Errorf("%w: sequence %d", ErrChainBroken, e.Chain.Sequence)
		}
		want := e.Chain.HMAC
		e.Chain.HMAC = ""
		if got := l.sign(e); !hmac.Equal([]byte(got), []byte(want)) {
			return i, fmt.Errorf("%w: sequence %d", ErrChainBroken, e.Chain.Sequence)
		}
		e.Chain.HMAC = want
		prev = want
	}
	return len(events), nil
}

func (l *Logger) sign(e *Event) string {
	data := fmt.Sprintf("%d|%s|%s|%s|%s|%s|%s|%d|%s",
		e.Version, e.ID, e.Timestamp, e.Op, e.Target, e.Result, e.Error,
		e.Chain.Sequence, e.Chain.Prev)
	mac := hmac.New(sha256.New, l.hmacKey)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// loadKey reads the seed beside the log, creating it on first use, and
// derives the HMAC key from it.
func (l *Logger) loadKey() error {
	seed, err := os.ReadFile(l.keyPath)
	if errors.Is(err, os.ErrNotExist) {
		seed = make([]byte, 32)
		if _, err := rand.Read(seed); err != nil {
			return fmt.Errorf("audit: generate seed: %w", err)
		}
		if err := os.WriteFile(l.keyPath, seed, 0600); err != nil {
			return fmt.Errorf("audit: write seed: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("audit: read seed: %w", err)
	}

	reader := hkdf.New(sha256.New, seed, nil, []byte("oplog-v1"))
	l.hmacKey = make([]byte, 32)
	if _, err := reader.Read(l.hmacKey); err != nil {
		return fmt.Errorf("audit: derive key: %w", err)
	}
	return nil
}

// loadTail resumes sequence and previous-HMAC state from the last line
// of an existing log.
func (l *Logger) loadTail() error {
	events, err := l.readAll()
	if err != nil {
		return err
	}
	if n := len(events); n > 0 {
		l.seq = events[n-1].Chain.Sequence
		l.prev = events[n-1].Chain.HMAC
	}
	return nil
}

func (l *Logger) readAll() ([]Event, error) {
	f, err := os.Open(l.logPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audit: open log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			return events, fmt.Errorf("audit: malformed event at line %d: %w", len(events)+1, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("audit: read log: %w", err)
	}
	return events, nil
}
