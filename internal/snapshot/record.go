package snapshot

// Keys every Record may carry regardless of what the page exposes.
const (
	KeyTicker = "Ticker"
	KeyError  = "Error"
)

// Record is one ticker's row: an insertion-ordered mapping from field label
// to field value. It always holds KeyTicker first; a failed ticker holds
// KeyTicker and KeyError only. Records are built by this package and treated
// as read-only afterwards.
type Record struct {
	keys   []string
	fields map[string]string
}

// NewRecord returns a Record holding only the ticker.
func NewRecord(ticker string) Record {
	r := Record{fields: make(map[string]string)}
	r.set(KeyTicker, ticker)
	return r
}

// ErrorRecord returns the reduced Record used for any per-ticker failure.
func ErrorRecord(ticker, message string) Record {
	r := NewRecord(ticker)
	r.set(KeyError, message)
	return r
}

// FromPairs builds a Record from label/value pairs following the ticker.
// An odd trailing label is ignored.
func FromPairs(ticker string, pairs ...string) Record {
	r := NewRecord(ticker)
	for i := 0; i+1 < len(pairs); i += 2 {
		r.set(pairs[i], pairs[i+1])
	}
	return r
}

// set adds or overwrites a field. Overwriting keeps the original position.
func (r *Record) set(key, value string) {
	if _, ok := r.fields[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.fields[key] = value
}

// Get returns the value stored under key.
func (r Record) Get(key string) (string, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// Value returns the value stored under key, or "" when absent.
func (r Record) Value(key string) string {
	return r.fields[key]
}

// Keys returns the field labels in insertion order.
func (r Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of fields, Ticker included.
func (r Record) Len() int {
	return len(r.keys)
}

// Map returns a copy of the fields.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.fields))
	for k, v := range r.fields {
		m[k] = v
	}
	return m
}

// Ticker returns the symbol the record belongs to.
func (r Record) Ticker() string {
	return r.fields[KeyTicker]
}

// ErrorMessage returns the failure message, if any.
func (r Record) ErrorMessage() (string, bool) {
	return r.Get(KeyError)
}

// Failed reports whether the record is an error marker.
func (r Record) Failed() bool {
	_, ok := r.fields[KeyError]
	return ok
}
