package indi

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

var errBadSexagesimal = errors.New("bad sexagesimal value")

func isSexaSeparator(r rune) bool {
	switch r {
	case ':', ' ', ';', '*', '\'', '"', '°', 'ß', utf8.RuneError:
		// LX200 firmware sends the degree sign as a raw 0xDF byte.
		return true
	}
	return false
}

// ParseSexagesimal parses a plain decimal or a [-]D[:M[:S]] value. Mount
// replies such as "+45*30:15" are accepted as well. The sign applies to the
// whole value, so "-0:30" is -0.5.
func ParseSexagesimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errBadSexagesimal
	}
	if !strings.ContainsFunc(s, isSexaSeparator) {
		return strconv.ParseFloat(s, 64)
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	fields := strings.FieldsFunc(s, isSexaSeparator)
	if len(fields) == 0 || len(fields) > 3 {
		return 0, errBadSexagesimal
	}

	value, scale := 0.0, 1.0
	for _, f := range fields {
		if strings.ContainsAny(f, "+-eE") {
			return 0, errBadSexagesimal
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, errBadSexagesimal
		}
		value += v / scale
		scale *= 60
	}

	if neg {
		value = -value
	}
	return value, nil
}

// SplitSexagesimal rounds |v| to whole seconds and splits it.
func SplitSexagesimal(v float64) (neg bool, d, m, s int) {
	neg = v < 0
	total := int(math.Round(math.Abs(v) * 3600))
	return neg, total / 3600, total / 60 % 60, total % 60
}

// FormatSexagesimal renders v as [-]DD:MM:SS, or [-]DD:MM when fracbase is 60.
func FormatSexagesimal(v float64, fracbase int) string {
	sign := ""
	if v < 0 {
		sign = "-"
	}
	if fracbase == 60 {
		total := int(math.Round(math.Abs(v) * 60))
		return fmt.Sprintf("%s%02d:%02d", sign, total/60, total%60)
	}
	_, d, m, s := SplitSexagesimal(v)
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, d, m, s)
}
