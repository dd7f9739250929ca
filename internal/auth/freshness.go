package auth

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

type freshnessKind uint8

const (
	freshnessUnknown freshnessKind = iota
	freshnessBool
	freshnessEpoch
)

// Freshness is the access token "fresh" claim. It is either a boolean or an
// integer epoch (seconds) until which the token counts as fresh. Any other
// JSON shape decodes to an unknown value that never verifies as fresh.
type Freshness struct {
	kind  freshnessKind
	fresh bool
	epoch int64
}

// FreshBool builds the boolean form.
func FreshBool(v bool) Freshness {
	return Freshness{kind: freshnessBool, fresh: v}
}

// FreshUntil builds the epoch form.
func FreshUntil(t time.Time) Freshness {
	return Freshness{kind: freshnessEpoch, epoch: t.Unix()}
}

// Bool returns the boolean value and whether f is the boolean form.
func (f Freshness) Bool() (bool, bool) {
	return f.fresh, f.kind == freshnessBool
}

// Epoch returns the epoch value and whether f is the epoch form.
func (f Freshness) Epoch() (int64, bool) {
	return f.epoch, f.kind == freshnessEpoch
}

// IsFreshAt reports whether the claim counts as fresh at now.
func (f Freshness) IsFreshAt(now time.Time) bool {
	switch f.kind {
	case freshnessBool:
		return f.fresh
	case freshnessEpoch:
		return f.epoch >= now.Unix()
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler.
func (f Freshness) MarshalJSON() ([]byte, error) {
	switch f.kind {
	case freshnessBool:
		return json.Marshal(f.fresh)
	case freshnessEpoch:
		return []byte(strconv.FormatInt(f.epoch, 10)), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. It never fails: shapes other
// than a boolean or an integer become the unknown form.
func (f *Freshness) UnmarshalJSON(data []byte) error {
	*f = Freshness{}
	data = bytes.TrimSpace(data)

	switch {
	case bytes.Equal(data, []byte("true")):
		*f = FreshBool(true)
	case bytes.Equal(data, []byte("false")):
		*f = FreshBool(false)
	default:
		if n, err := strconv.ParseInt(string(data), 10, 64); err == nil {
			*f = Freshness{kind: freshnessEpoch, epoch: n}
		}
	}
	return nil
}
