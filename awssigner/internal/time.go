package awssigner

import (
	"time"
)

// SigningTime is the timestamp a request is signed with. The formatted
// values are computed once and reused between the canonical request,
// the string to sign and the credential scope.
type SigningTime struct {
	time.Time
	timeFormat      string
	shortTimeFormat string
}

func NewSigningTime(t time.Time) SigningTime {
	return SigningTime{
		Time: t,
	}
}

func (m *SigningTime) TimeFormat() string {
	return m.format(&m.timeFormat, TimeFormat)
}

// ShortTimeFormat provides a time formatted of 20060102.
func (m *SigningTime) ShortTimeFormat() string {
	return m.format(&m.shortTimeFormat, ShortTimeFormat)
}

func (m *SigningTime) format(target *string, format string) string {
	if len(*target) > 0 {
		return *target
	}
	v := m.Time.Format(format)
	*target = v
	return v
}

func isSameDay(x, y time.Time) bool {
	xYear, xMonth, xDay := x.Date()
	yYear, yMonth, yDay := y.Date()

	if xYear != yYear {
		return false
	}

	if xMonth != yMonth {
		return false
	}

	return xDay == yDay
}
