package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Locale parses upstream date strings and formats them for search, listing
// and export.
type Locale struct {
	Location   *time.Location
	YearOffset int       // added to the Gregorian year when formatting
	Months     [12]string // long month names; empty uses English
}

var thaiMonths = [12]string{
	"มกราคม", "กุมภาพันธ์", "มีนาคม", "เมษายน", "พฤษภาคม", "มิถุนายน",
	"กรกฎาคม", "สิงหาคม", "กันยายน", "ตุลาคม", "พฤศจิกายน", "ธันวาคม",
}

// DefaultLocale is Thai: Bangkok time, Buddhist-era years, Thai month names.
var DefaultLocale = Locale{Location: bangkok(), YearOffset: 543, Months: thaiMonths}

func bangkok() *time.Location {
	if loc, err := time.LoadLocation("Asia/Bangkok"); err == nil {
		return loc
	}
	return time.FixedZone("ICT", 7*60*60)
}

// LoadLocale returns DefaultLocale moved to the named time zone.
func LoadLocale(tz string) (Locale, error) {
	l := DefaultLocale
	if tz == "" {
		return l, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return l, NewValidationError("timezone", tz, ErrInvalidParam)
	}
	l.Location = loc
	return l, nil
}

func (l Locale) loc() *time.Location {
	if l.Location == nil {
		return time.UTC
	}
	return l.Location
}

// Layouts carrying their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	time.RFC1123Z,
	time.RFC1123,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
}

// Date-only forms are UTC, as in ECMAScript.
var utcLayouts = []string{"2006-01-02", "2006-01", "2006"}

// Date-time forms without an offset are local.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"2006/01/02",
}

// Parse parses an upstream date string. An all-digit string longer than a
// year is read as epoch milliseconds.
func (l Locale) Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if len(s) > 4 && isDigits(s) {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).In(l.loc()), true
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range utcLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, l.loc()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ShortDate formats t as D/M/YYYY in the locale.
func (l Locale) ShortDate(t time.Time) string {
	t = t.In(l.loc())
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year()+l.YearOffset)
}

// DateTime formats t as D/M/YYYY HH:MM:SS in the locale.
func (l Locale) DateTime(t time.Time) string {
	return l.ShortDate(t) + " " + t.In(l.loc()).Format("15:04:05")
}

// LongDateTime formats t as DD <month> YYYY HH:MM in the locale.
func (l Locale) LongDateTime(t time.Time) string {
	t = t.In(l.loc())
	month := l.Months[t.Month()-1]
	if month == "" {
		month = t.Month().String()
	}
	return fmt.Sprintf("%02d %s %d %s", t.Day(), month, t.Year()+l.YearOffset, t.Format("15:04"))
}

// FormatShort parses s and formats it with ShortDate; "" when unparsable.
func (l Locale) FormatShort(s string) string {
	t, ok := l.Parse(s)
	if !ok {
		return ""
	}
	return l.ShortDate(t)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
