package udm

import (
	"encoding/base64"
	"time"
)

// Layouts used to render and parse the date-time family.
const (
	DateLayout          = "2006-01-02"
	TimeLayout          = "15:04:05.999999999"
	LocalDateTimeLayout = "2006-01-02T15:04:05.999999999"
	DateTimeLayout      = time.RFC3339Nano
)

// Date is a calendar date without time of day or zone.
type Date struct{ T time.Time }

// Time is a time of day without date or zone.
type Time struct{ T time.Time }

// LocalDateTime is a date and time without zone.
type LocalDateTime struct{ T time.Time }

// DateTime is a zoned instant.
type DateTime struct{ T time.Time }

func (Date) Kind() Kind          { return KindDate }
func (Time) Kind() Kind          { return KindTime }
func (LocalDateTime) Kind() Kind { return KindLocalDateTime }
func (DateTime) Kind() Kind      { return KindDateTime }

func (Date) udm()          {}
func (Time) udm()          {}
func (LocalDateTime) udm() {}
func (DateTime) udm()      {}

func (d Date) String() string          { return d.T.Format(DateLayout) }
func (t Time) String() string          { return t.T.Format(TimeLayout) }
func (l LocalDateTime) String() string { return l.T.Format(LocalDateTimeLayout) }
func (d DateTime) String() string      { return d.T.Format(DateTimeLayout) }

// Instant returns the underlying time of a date-time family value.
func Instant(v Value) (time.Time, bool) {
	switch v := v.(type) {
	case Date:
		return v.T, true
	case Time:
		return v.T, true
	case LocalDateTime:
		return v.T, true
	case DateTime:
		return v.T, true
	}
	return time.Time{}, false
}

// IsTemporal reports whether v belongs to the date-time family.
func IsTemporal(v Value) bool {
	_, ok := Instant(v)
	return ok
}

// ParseTemporal parses s as the most specific date-time variant it matches:
// DateTime (with zone), LocalDateTime, Date, then Time.
func ParseTemporal(s string) (Value, bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return DateTime{T: t}, true
	}
	if t, err := time.Parse(LocalDateTimeLayout, s); err == nil {
		return LocalDateTime{T: t}, true
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{T: t}, true
	}
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return Time{T: t}, true
	}
	return nil, false
}

// Binary is an immutable byte sequence.
type Binary struct {
	data string
}

// NewBinary copies b into a Binary.
func NewBinary(b []byte) Binary { return Binary{data: string(b)} }

func (Binary) Kind() Kind { return KindBinary }
func (Binary) udm()       {}

// Len returns the number of bytes.
func (b Binary) Len() int { return len(b.data) }

// Bytes returns a copy of the content.
func (b Binary) Bytes() []byte { return []byte(b.data) }

// String renders the content as standard base64.
func (b Binary) String() string {
	return base64.StdEncoding.EncodeToString([]byte(b.data))
}
