package astro

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// ErrUnparseableTarget is returned when a source name does not follow the
// HHMM+DDMM radio naming convention.
var ErrUnparseableTarget = errors.New("astro: target name does not encode a position")

// TargetPosition is an ICRS position in degrees.
type TargetPosition struct {
	RA, Dec float64
}

// ParseTargetName decodes a position from a radio source name such as
// "1331+3030" or "J0319-1234". Only the first of several comma-separated names
// is used.
func ParseTargetName(name string) (TargetPosition, error) {
	if first, _, found := strings.Cut(name, ","); found {
		slog.Warn("multiple targets in name, using the first", "name", name, "target", first)
		name = first
	}
	name = strings.TrimPrefix(strings.TrimSpace(name), "J")

	sign := 1.0
	raPart, decPart, found := strings.Cut(name, "+")
	if !found {
		raPart, decPart, found = strings.Cut(name, "-")
		sign = -1
	}
	if !found {
		return TargetPosition{}, fmt.Errorf("%w: %q", ErrUnparseableTarget, name)
	}

	raHours, err := sexagesimal(raPart)
	if err != nil {
		return TargetPosition{}, fmt.Errorf("%w: %q: %v", ErrUnparseableTarget, name, err)
	}
	decDegrees, err := sexagesimal(decPart)
	if err != nil {
		return TargetPosition{}, fmt.Errorf("%w: %q: %v", ErrUnparseableTarget, name, err)
	}
	if raHours >= 24 || decDegrees > 90 {
		return TargetPosition{}, fmt.Errorf("%w: %q out of range", ErrUnparseableTarget, name)
	}

	return TargetPosition{RA: raHours * 15, Dec: sign * decDegrees}, nil
}

// sexagesimal reads "DD[MM[.m]]" as DD + MM/60. A single trailing digit after
// the whole part is read as tenths of the whole unit, as in "1331+305".
func sexagesimal(s string) (float64, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("component %q too short", s)
	}
	whole, err := strconv.Atoi(s[:2])
	if err != nil {
		return 0, err
	}
	rest := s[2:]
	switch {
	case rest == "":
		return float64(whole), nil
	case len(rest) == 1:
		tenths, err := strconv.Atoi(rest)
		if err != nil {
			return 0, err
		}
		return float64(whole) + float64(tenths)/10, nil
	default:
		text := rest[:2]
		if frac := strings.TrimPrefix(rest[2:], "."); frac != "" {
			text += "." + frac
		}
		minutes, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, err
		}
		if minutes >= 60 {
			return 0, fmt.Errorf("minutes %v out of range", minutes)
		}
		return float64(whole) + minutes/60, nil
	}
}
