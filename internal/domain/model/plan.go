package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"telegram-channel-subscription/internal/domain"
)

// MaxPlanMinutes caps a plan at 100 years so expiry arithmetic never overflows time.Duration.
const MaxPlanMinutes = 100 * 365 * 24 * 60

// ValidMinutes reports whether minutes is a usable plan duration.
func ValidMinutes(minutes int) bool { return minutes > 0 && minutes <= MaxPlanMinutes }

// Plan is a (duration, price) offer for access to a channel. Price is opaque:
// it is only displayed and forwarded into payment instructions, never parsed.
type Plan struct {
	Minutes int    `json:"minutes" bson:"minutes"`
	Price   string `json:"price" bson:"price"`
}

// Duration returns the access period granted by the plan.
func (p Plan) Duration() time.Duration { return time.Duration(p.Minutes) * time.Minute }

// Label renders the duration in the largest whole unit (days, hours or minutes).
func (p Plan) Label() string {
	switch {
	case p.Minutes%(24*60) == 0:
		return pluralize(p.Minutes/(24*60), "day")
	case p.Minutes%60 == 0:
		return pluralize(p.Minutes/60, "hour")
	default:
		return pluralize(p.Minutes, "minute")
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Catalog is a channel's plans ordered by duration, one plan per duration.
type Catalog []Plan

// NewCatalog validates a duration->price mapping and returns it ordered by duration.
func NewCatalog(prices map[int]string) (Catalog, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: no plans given", domain.ErrInvalidFormat)
	}
	out := make(Catalog, 0, len(prices))
	for minutes, price := range prices {
		if !ValidMinutes(minutes) {
			return nil, fmt.Errorf("%w: duration must be between 1 and %d minutes, got %d",
				domain.ErrInvalidFormat, MaxPlanMinutes, minutes)
		}
		price = strings.TrimSpace(price)
		if price == "" {
			return nil, fmt.Errorf("%w: empty price for %d minutes", domain.ErrInvalidFormat, minutes)
		}
		out = append(out, Plan{Minutes: minutes, Price: price})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Minutes < out[j].Minutes })
	return out, nil
}

// Find returns the plan for the given duration.
func (c Catalog) Find(minutes int) (Plan, bool) {
	for _, p := range c {
		if p.Minutes == minutes {
			return p, true
		}
	}
	return Plan{}, false
}

// ParsePlanList parses the admin's plan text, e.g. "1:5, 43200:199".
// Entries are separated by commas or newlines and have the form minutes:price.
// Later entries overwrite earlier ones with the same duration.
func ParsePlanList(text string) (map[int]string, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '\n' || r == ';' })
	out := make(map[int]string, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		minutesStr, price, ok := strings.Cut(f, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not minutes:price", domain.ErrInvalidFormat, f)
		}
		minutes, err := strconv.Atoi(strings.TrimSpace(minutesStr))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a whole number of minutes", domain.ErrInvalidFormat, minutesStr)
		}
		out[minutes] = strings.TrimSpace(price)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no plans given", domain.ErrInvalidFormat)
	}
	return out, nil
}
