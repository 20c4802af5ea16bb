package types

import "math"

// Payload is the structured argument passed to a host binding
type Payload map[string]interface{}

// Result is a normalized host binding reply. It is always a plain mapping.
type Result map[string]interface{}

// String returns the string stored under key
func (r Result) String(key string) (string, bool) {
	v, ok := r[key].(string)
	return v, ok
}

// Int returns the integer stored under key. JSON numbers decode as float64,
// so integral floats are accepted.
func (r Result) Int(key string) (int64, bool) {
	return toInt(r[key])
}

// Bool returns the bool stored under key
func (r Result) Bool(key string) (bool, bool) {
	v, ok := r[key].(bool)
	return v, ok
}

// Has reports whether key is present
func (r Result) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// String returns the string stored under key
func (p Payload) String(key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok
}

// Int returns the integer stored under key
func (p Payload) Int(key string) (int64, bool) {
	return toInt(p[key])
}

// Clone returns a shallow copy; nil clones to an empty payload
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func toInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case float32:
		f := float64(n)
		if f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}
