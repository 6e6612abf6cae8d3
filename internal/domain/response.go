package domain

import (
	"fmt"
	"strconv"
)

// ResponseValue is one attendee's availability for one weekend.
// The zero value, Empty, means "no entry": either never answered or cleared.
type ResponseValue string

const (
	Empty ResponseValue = ""
	Yes   ResponseValue = "yes"
	Maybe ResponseValue = "maybe"
	No    ResponseValue = "no"
)

// Next returns the value one click further along the cycle
// Empty -> Yes -> Maybe -> No -> Empty. Unknown values restart the cycle.
func (v ResponseValue) Next() ResponseValue {
	switch v {
	case Empty:
		return Yes
	case Yes:
		return Maybe
	case Maybe:
		return No
	default:
		return Empty
	}
}

// Valid reports whether v is one of the three storable values.
func (v ResponseValue) Valid() bool {
	return v == Yes || v == Maybe || v == No
}

// ParseResponseValue converts a wire string into a ResponseValue.
// The empty string is not accepted here: clearing is expressed as JSON null.
func ParseResponseValue(s string) (ResponseValue, error) {
	v := ResponseValue(s)
	if !v.Valid() {
		return Empty, fmt.Errorf("unknown response value %q", s)
	}
	return v, nil
}

// Responses maps a weekend index to the attendee's answer. Absent keys are
// Empty. It encodes to JSON as an object keyed by the decimal index,
// e.g. {"0":"yes","2":"maybe"}.
type Responses map[int]ResponseValue

// Get returns the value stored for index, or Empty.
func (r Responses) Get(index int) ResponseValue {
	return r[index]
}

// Apply sets index to v, or deletes the key when v is Empty. Apply on a nil
// map with a non-empty value panics; callers own the allocation.
func (r Responses) Apply(index int, v ResponseValue) {
	if v == Empty {
		delete(r, index)
		return
	}
	r[index] = v
}

// Clone returns an independent copy. A nil receiver yields an empty map.
func (r Responses) Clone() Responses {
	out := make(Responses, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Key returns the JSON object key used to store index.
func Key(index int) string {
	return strconv.Itoa(index)
}
