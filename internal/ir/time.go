package ir

import (
	"fmt"
	"time"
)

// isoDateTimeLayout is the only textual datetime form: millisecond precision,
// UTC, literal Z suffix.
const isoDateTimeLayout = "2006-01-02T15:04:05.000Z"

// LocalDate is a calendar date without time or timezone.
// The zero value is the empty date.
type LocalDate struct {
	Year  int
	Month int
	Day   int
}

// NewLocalDate validates and returns a date.
func NewLocalDate(year, month, day int) (LocalDate, error) {
	if year < 1 || year > 9999 {
		return LocalDate{}, Errorf(CodeTypeMismatch, "year %d out of range", year)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return LocalDate{}, Errorf(CodeTypeMismatch, "invalid date %04d-%02d-%02d", year, month, day)
	}
	return LocalDate{Year: year, Month: month, Day: day}, nil
}

// IsZero reports whether d is the empty date.
func (d LocalDate) IsZero() bool {
	return d == LocalDate{}
}

// IsoInt returns the date as the integer yyyymmdd.
func (d LocalDate) IsoInt() int32 {
	return int32(d.Year*10000 + d.Month*100 + d.Day)
}

// String returns yyyy-mm-dd.
func (d LocalDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// LocalDateFromIsoInt parses the integer form yyyymmdd.
func LocalDateFromIsoInt(v int64) (LocalDate, error) {
	if v < 10000101 || v > 99991231 {
		return LocalDate{}, Errorf(CodeTypeMismatch, "date integer %d is not of the form yyyymmdd", v)
	}
	return NewLocalDate(int(v/10000), int(v/100%100), int(v%100))
}

// LocalTime is a time of day with millisecond precision.
// The zero value is midnight; use a pointer where absence must be expressed.
type LocalTime struct {
	Hour        int
	Minute      int
	Second      int
	Millisecond int
}

// NewLocalTime validates and returns a time of day.
func NewLocalTime(hour, minute, second, millisecond int) (LocalTime, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 ||
		millisecond < 0 || millisecond > 999 {
		return LocalTime{}, Errorf(CodeTypeMismatch, "invalid time %02d:%02d:%02d.%03d",
			hour, minute, second, millisecond)
	}
	return LocalTime{Hour: hour, Minute: minute, Second: second, Millisecond: millisecond}, nil
}

// IsoInt returns the time as the integer hhmmssfff.
func (t LocalTime) IsoInt() int32 {
	return int32(t.Hour*10000000 + t.Minute*100000 + t.Second*1000 + t.Millisecond)
}

// String returns hh:mm:ss.fff.
func (t LocalTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d.%03d", t.Hour, t.Minute, t.Second, t.Millisecond)
}

// LocalTimeFromIsoInt parses the integer form hhmmssfff.
func LocalTimeFromIsoInt(v int64) (LocalTime, error) {
	if v < 0 || v > 235959999 {
		return LocalTime{}, Errorf(CodeTypeMismatch, "time integer %d is not of the form hhmmssfff", v)
	}
	return NewLocalTime(int(v/10000000), int(v/100000%100), int(v/1000%100), int(v%1000))
}

// LocalMinute is a time of day with minute precision.
type LocalMinute struct {
	Hour   int
	Minute int
}

// NewLocalMinute validates and returns a minute of the day.
func NewLocalMinute(hour, minute int) (LocalMinute, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return LocalMinute{}, Errorf(CodeTypeMismatch, "invalid minute %02d:%02d", hour, minute)
	}
	return LocalMinute{Hour: hour, Minute: minute}, nil
}

// IsoInt returns the minute as the integer hhmm.
func (m LocalMinute) IsoInt() int32 {
	return int32(m.Hour*100 + m.Minute)
}

// String returns hh:mm.
func (m LocalMinute) String() string {
	return fmt.Sprintf("%02d:%02d", m.Hour, m.Minute)
}

// LocalMinuteFromIsoInt parses the integer form hhmm.
func LocalMinuteFromIsoInt(v int64) (LocalMinute, error) {
	if v < 0 || v > 2359 {
		return LocalMinute{}, Errorf(CodeTypeMismatch, "minute integer %d is not of the form hhmm", v)
	}
	return NewLocalMinute(int(v/100), int(v%100))
}

// LocalDateTime is a UTC date and time with millisecond precision.
// The zero value is the empty datetime.
type LocalDateTime struct {
	Date LocalDate
	Time LocalTime
}

// LocalDateTimeFromTime converts t to UTC and truncates it to milliseconds.
func LocalDateTimeFromTime(t time.Time) LocalDateTime {
	u := t.UTC()
	return LocalDateTime{
		Date: LocalDate{Year: u.Year(), Month: int(u.Month()), Day: u.Day()},
		Time: LocalTime{Hour: u.Hour(), Minute: u.Minute(), Second: u.Second(),
			Millisecond: u.Nanosecond() / int(time.Millisecond)},
	}
}

// IsZero reports whether dt is the empty datetime.
func (dt LocalDateTime) IsZero() bool {
	return dt == LocalDateTime{}
}

// IsoLong returns the datetime as the 17-digit integer yyyymmddhhmmssfff.
func (dt LocalDateTime) IsoLong() int64 {
	return int64(dt.Date.IsoInt())*1000000000 + int64(dt.Time.IsoInt())
}

// AsTime returns dt as a UTC time.Time.
func (dt LocalDateTime) AsTime() time.Time {
	return time.Date(dt.Date.Year, time.Month(dt.Date.Month), dt.Date.Day,
		dt.Time.Hour, dt.Time.Minute, dt.Time.Second, dt.Time.Millisecond*int(time.Millisecond), time.UTC)
}

// String returns the ISO-8601 form yyyy-mm-ddThh:mm:ss.fffZ.
func (dt LocalDateTime) String() string {
	return dt.AsTime().Format(isoDateTimeLayout)
}

// LocalDateTimeFromIsoLong parses the integer form yyyymmddhhmmssfff.
func LocalDateTimeFromIsoLong(v int64) (LocalDateTime, error) {
	if v < 0 {
		return LocalDateTime{}, Errorf(CodeTypeMismatch, "datetime integer %d is negative", v)
	}
	d, err := LocalDateFromIsoInt(v / 1000000000)
	if err != nil {
		return LocalDateTime{}, err
	}
	t, err := LocalTimeFromIsoInt(v % 1000000000)
	if err != nil {
		return LocalDateTime{}, err
	}
	return LocalDateTime{Date: d, Time: t}, nil
}

// ParseLocalDateTime parses the ISO-8601 form yyyy-mm-ddThh:mm:ss.fffZ.
// Only the UTC designator Z is accepted.
func ParseLocalDateTime(s string) (LocalDateTime, error) {
	t, err := time.Parse(isoDateTimeLayout, s)
	if err != nil {
		return LocalDateTime{}, Errorf(CodeFormatError, "datetime %q is not of the form yyyy-mm-ddThh:mm:ss.fffZ", s)
	}
	return LocalDateTimeFromTime(t), nil
}
