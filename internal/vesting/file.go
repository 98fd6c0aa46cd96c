package vesting

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/tidwall/gjson"

	"FeeRouter/internal/calculator"
	"FeeRouter/internal/errors"
	"FeeRouter/internal/model"
)

// FileOracle serves streams from a JSON document of the form
//
//	{"streams": [{"key": "...", "recipient": "...", "net_deposited": 1000, ...}]}
type FileOracle struct {
	path string

	mu      sync.RWMutex
	order   []solana.PublicKey
	streams map[solana.PublicKey]Stream
}

// LoadFile reads the stream document at path.
func LoadFile(path string) (*FileOracle, error) {
	o := &FileOracle{path: path}
	if err := o.Reload(); err != nil {
		return nil, err
	}
	return o, nil
}

// Reload re-reads the document. On error the previous streams are kept.
func (o *FileOracle) Reload() error {
	data, err := os.ReadFile(o.path)
	if err != nil {
		return fmt.Errorf("read streams: %w", err)
	}
	order, streams, err := ParseStreams(data)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.order, o.streams = order, streams
	o.mu.Unlock()
	return nil
}

// ParseStreams decodes a stream document.
func ParseStreams(data []byte) ([]solana.PublicKey, map[solana.PublicKey]Stream, error) {
	if !gjson.ValidBytes(data) {
		return nil, nil, errors.ErrInvalidInput.New("stream document is not valid JSON")
	}
	list := gjson.GetBytes(data, "streams")
	if !list.IsArray() {
		return nil, nil, errors.ErrInvalidStream.New("streams must be an array")
	}
	var (
		order    []solana.PublicKey
		streams  = map[solana.PublicKey]Stream{}
		parseErr error
	)
	list.ForEach(func(_, v gjson.Result) bool {
		s, err := parseStream(v)
		if err != nil {
			parseErr = err
			return false
		}
		if _, dup := streams[s.Key]; dup {
			parseErr = errors.ErrDuplicate.Newf("stream %s", s.Key)
			return false
		}
		streams[s.Key] = s
		order = append(order, s.Key)
		return true
	})
	if parseErr != nil {
		return nil, nil, parseErr
	}
	return order, streams, nil
}

func parseStream(v gjson.Result) (Stream, error) {
	key, err := solana.PublicKeyFromBase58(v.Get("key").String())
	if err != nil {
		return Stream{}, errors.Wrapf(errors.ErrInvalidStream, "key %q", v.Get("key").String())
	}
	recipient, err := solana.PublicKeyFromBase58(v.Get("recipient").String())
	if err != nil {
		return Stream{}, errors.Wrapf(errors.ErrInvalidStream, "stream %s recipient", key)
	}
	s := Stream{Key: key, Recipient: recipient}
	if !v.Get("net_deposited").Exists() {
		return Stream{}, errors.ErrInvalidStream.Newf("stream %s has no net_deposited", key)
	}
	for _, f := range []struct {
		name string
		dst  *uint64
	}{
		{"net_deposited", &s.NetDeposited},
		{"amount_per_period", &s.AmountPerPeriod},
		{"cliff_amount", &s.CliffAmount},
	} {
		if *f.dst, err = uintField(v, f.name); err != nil {
			return Stream{}, errors.Wrapf(err, "stream %s", key)
		}
	}
	for _, f := range []struct {
		name string
		dst  *int64
	}{
		{"start", &s.Start},
		{"period", &s.Period},
		{"cliff", &s.Cliff},
	} {
		if *f.dst, err = intField(v, f.name); err != nil {
			return Stream{}, errors.Wrapf(err, "stream %s", key)
		}
	}
	if s.Period < 0 {
		return Stream{}, errors.ErrInvalidStream.Newf("stream %s has negative period", key)
	}
	return s, nil
}

// uintField reads an optional amount. Absent means zero. Anything but a
// plain unsigned integer literal is rejected.
func uintField(v gjson.Result, name string) (uint64, error) {
	f := v.Get(name)
	if !f.Exists() {
		return 0, nil
	}
	if f.Type != gjson.Number {
		return 0, errors.ErrInvalidStream.Newf("%s is not a number: %s", name, f.Raw)
	}
	n, err := strconv.ParseUint(f.Raw, 10, 64)
	if err != nil {
		return 0, errors.ErrInvalidStream.Newf("%s is not an unsigned integer: %s", name, f.Raw)
	}
	return n, nil
}

func intField(v gjson.Result, name string) (int64, error) {
	f := v.Get(name)
	if !f.Exists() {
		return 0, nil
	}
	if f.Type != gjson.Number {
		return 0, errors.ErrInvalidStream.Newf("%s is not a number: %s", name, f.Raw)
	}
	n, err := strconv.ParseInt(f.Raw, 10, 64)
	if err != nil {
		return 0, errors.ErrInvalidStream.Newf("%s is not an integer: %s", name, f.Raw)
	}
	return n, nil
}

func (o *FileOracle) LockedAmount(_ context.Context, stream solana.PublicKey, asOf time.Time) (uint64, error) {
	o.mu.RLock()
	s, ok := o.streams[stream]
	o.mu.RUnlock()
	if !ok {
		return 0, errors.ErrInvalidStream.Newf("unknown stream %s", stream)
	}
	return s.Locked(asOf), nil
}

func (o *FileOracle) Investors(context.Context) ([]model.Investor, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]model.Investor, 0, len(o.order))
	for _, k := range o.order {
		out = append(out, o.streams[k].Investor())
	}
	return out, nil
}

// Total returns the sum of net deposits, the natural baseline allocation.
func (o *FileOracle) Total() (uint64, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var (
		total uint64
		err   error
	)
	for _, k := range o.order {
		if total, err = calculator.Add(total, o.streams[k].NetDeposited); err != nil {
			return 0, errors.Wrap(err, "sum net deposits")
		}
	}
	return total, nil
}
