// Package ledger applies an ordered transaction log to the reputation
// state machine.
//
// Entries are applied one at a time, strictly in delivered order; this is
// the single-writer discipline every replica shares. Deterministic
// rejections are counted and skipped — every replica skips the same
// entries — while store failures abort the replay: an entry that was
// ordered into the log but cannot be applied leaves the replica diverged.
package ledger

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/intercomtrust/trustledger/internal/platform/errors"
	"github.com/intercomtrust/trustledger/internal/trust/command"
	"github.com/intercomtrust/trustledger/internal/trust/domain"
)

// Entry is one ordered transaction log record. Regular transactions carry
// the authenticated caller address and a wire command; timer feature
// entries carry a key/value pair instead.
type Entry struct {
	Seq     uint64          `json:"seq,omitempty"`
	Address string          `json:"address,omitempty"`
	Command string          `json:"command,omitempty"`
	Key     string          `json:"key,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
}

// Stats summarizes one replay pass.
type Stats struct {
	Applied  int
	Rejected int
}

// Applier feeds ordered entries into the command router.
type Applier struct {
	Router *command.Router
	// Logger, when set, notes rejected entries.
	Logger *log.Logger
	// Results, when set, receives one TRUST_RESULT line per applied entry.
	Results io.Writer
}

// Apply executes a single log entry and returns its flat result record.
// A nil result with a nil error means the entry was recognized but carries
// nothing for this state machine (a feature entry for a foreign key).
func (a Applier) Apply(ctx context.Context, entry Entry) (any, error) {
	if a.Router == nil {
		return nil, fmt.Errorf("command router is not configured")
	}

	if entry.Key != "" {
		return a.applyFeature(ctx, entry)
	}

	if entry.Address == "" {
		return nil, errors.New(errors.CodeInvalidInput, "entry has no caller address")
	}
	cmd, err := command.Parse(entry.Command)
	if err != nil {
		return nil, err
	}
	return a.Router.Execute(ctx, entry.Address, cmd)
}

func (a Applier) applyFeature(ctx context.Context, entry Entry) (any, error) {
	// Only the timer key feeds this state machine; other feature entries
	// pass through untouched, as on the original wire.
	if entry.Key != domain.CurrentTimeKey {
		return nil, nil
	}
	var value int64
	if err := json.Unmarshal(entry.Value, &value); err != nil {
		return nil, errors.Wrap(errors.CodeInvalidInput, "timer value is not an integer", err)
	}
	return a.Router.Transitions().RecordTime(ctx, value)
}

// Replay applies a JSONL transaction log in order. Deterministic rejections
// are skipped and counted; any other failure aborts with the entry's line
// number.
func (a Applier) Replay(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			stats.Rejected++
			a.reject(line, fmt.Errorf("malformed entry: %w", err))
			continue
		}

		result, err := a.Apply(ctx, entry)
		if err != nil {
			if code := errors.CodeOf(err); code.IsRejection() || code == errors.CodeUnknownCommand {
				stats.Rejected++
				a.reject(line, err)
				continue
			}
			return stats, fmt.Errorf("apply entry at line %d: %w", line, err)
		}
		stats.Applied++
		if result != nil && a.Results != nil {
			payload, err := json.Marshal(result)
			if err != nil {
				return stats, fmt.Errorf("encode result at line %d: %w", line, err)
			}
			fmt.Fprintf(a.Results, "TRUST_RESULT:%s\n", payload)
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read transaction log: %w", err)
	}

	return stats, nil
}

func (a Applier) reject(line int, err error) {
	if a.Logger != nil {
		a.Logger.Printf("rejected entry at line %d: %v", line, err)
	}
}
