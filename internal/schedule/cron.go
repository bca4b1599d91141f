// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package schedule parses cron expressions and computes their next
// activation.
//
// Standard 5-field expressions (minute hour day-of-month month day-of-week)
// are the primary format. A 6-field form with a leading seconds field is
// also accepted so that schedules written for second-resolution schedulers
// carry over unchanged; "?" is read as "*" in either form. Descriptors
// @hourly, @daily, @midnight, @weekly, @monthly, @yearly and @every <dur>
// are supported. Day-of-week 7 is Sunday, as is 0.
//
// Examples:
//   - "0 2 * * *" - daily at 02:00
//   - "0 */6 * * *" - every six hours
//   - "0 0 2 * * ?" - daily at 02:00, 6-field form
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Schedule is a parsed cron expression.
type Schedule struct {
	expr  string
	sched cron.Schedule
}

// Parse parses a 5-field or 6-field cron expression or a descriptor.
func Parse(expr string) (*Schedule, error) {
	spec := strings.TrimSpace(expr)
	if spec == "" {
		return nil, fmt.Errorf("empty cron expression")
	}
	if !strings.HasPrefix(spec, "@") {
		fields := strings.Fields(spec)
		if n := len(fields); n != 5 && n != 6 {
			return nil, fmt.Errorf("cron expression must have 5 or 6 fields, got %d", n)
		}
		fields[len(fields)-1] = sundayAsZero(fields[len(fields)-1])
		spec = strings.Join(fields, " ")
	}

	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return &Schedule{expr: expr, sched: sched}, nil
}

// MustParse is Parse for expressions known to be valid. It panics on error.
func MustParse(expr string) *Schedule {
	s, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate reports whether expr parses.
func Validate(expr string) error {
	_, err := Parse(expr)
	return err
}

// String returns the expression the schedule was parsed from.
func (s *Schedule) String() string {
	return s.expr
}

// Next returns the first activation strictly after t, in t's location.
// It returns the zero time when the schedule never fires.
func (s *Schedule) Next(t time.Time) time.Time {
	return s.sched.Next(t)
}

// sundayAsZero rewrites day-of-week 7 as 0, including as a range end.
func sundayAsZero(field string) string {
	parts := strings.Split(field, ",")
	for i, part := range parts {
		rng, step, hasStep := strings.Cut(part, "/")
		switch {
		case rng == "7", rng == "7-7":
			rng, hasStep = "0", false
		case strings.HasSuffix(rng, "-7") && !hasStep:
			rng = strings.TrimSuffix(rng, "-7") + "-6,0"
		case strings.HasSuffix(rng, "-7"):
			lo := strings.TrimSuffix(rng, "-7")
			rng = lo + "-6/" + step
			if from, err1 := strconv.Atoi(lo); err1 == nil {
				if n, err2 := strconv.Atoi(step); err2 == nil && n > 0 && (7-from)%n == 0 {
					rng += ",0"
				}
			}
			parts[i] = rng
			continue
		}
		if hasStep {
			rng += "/" + step
		}
		parts[i] = rng
	}
	return strings.Join(parts, ",")
}
