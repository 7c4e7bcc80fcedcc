package jalali

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	datePattern   = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})(.*)$`)
	jalaliPattern = regexp.MustCompile(`^(13|14)\d{2}/\d{1,2}/\d{1,2}(?:\s+\d{1,2}:\d{1,2}(?::\d{1,2})?)?$`)
	digitFolder   = strings.NewReplacer(
		"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
		"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
		"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
		"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	)
)

// NormalizeDigits maps Persian and Arabic-Indic digits to ASCII.
func NormalizeDigits(s string) string {
	return digitFolder.Replace(s)
}

// LikelyJalaliYear is the heuristic the panel uses to tell a Jalali date
// from a Gregorian one.
func LikelyJalaliYear(y int) bool {
	return y >= 1300 && y <= 1600
}

// LooksJalali reports whether s is already a Jalali display string such as
// "1404/10/08 14:15:12".
func LooksJalali(s string) bool {
	return jalaliPattern.MatchString(strings.TrimSpace(NormalizeDigits(s)))
}

// NormalizeDate turns "YYYY-MM-DD" or "YYYY/MM/DD" in either calendar into a
// Gregorian "YYYY-MM-DD". Input that does not look like a date is returned
// trimmed; a Jalali year that cannot be converted is returned zero-padded.
func NormalizeDate(s string) string {
	out := normalize(s)
	if m := datePattern.FindStringSubmatch(out); m != nil && m[4] != "" {
		return strings.TrimSpace(NormalizeDigits(s))
	}
	return out
}

// NormalizeISO is NormalizeDate for timestamps: the time suffix is kept.
func NormalizeISO(s string) string {
	return normalize(s)
}

func normalize(s string) string {
	if s == "" {
		return ""
	}
	clean := strings.TrimSpace(NormalizeDigits(s))
	m := datePattern.FindStringSubmatch(clean)
	if m == nil {
		return clean
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	suffix := m[4]

	if LikelyJalaliYear(y) {
		if gy, gm, gd, err := ToGregorian(y, mo, d); err == nil {
			return pad(gy, gm, gd, "-") + suffix
		}
	}
	return pad(y, mo, d, "-") + suffix
}

// FormatJalali renders t's calendar day as "YYYY/MM/DD". Dates outside the
// supported range yield "".
func FormatJalali(t time.Time) string {
	jy, jm, jd, err := FromTime(t)
	if err != nil {
		return ""
	}
	return pad(jy, jm, jd, "/")
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime accepts API timestamps in either calendar. Values without a zone
// are read as UTC.
func ParseTime(s string) (time.Time, bool) {
	norm := NormalizeISO(s)
	if norm == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, norm); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func pad(y, m, d int, sep string) string {
	return fmt.Sprintf("%04d%s%02d%s%02d", y, sep, m, sep, d)
}
