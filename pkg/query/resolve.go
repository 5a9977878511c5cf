package query

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/model"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

// endOfDayNano places the end-of-day anchor at 23:59:59.999999 local
// time, microsecond precision.
const endOfDayNano = 999999 * int(time.Microsecond/time.Nanosecond)

// ResolveRange converts a time reference into a concrete UTC interval,
// evaluated in the given location at the given instant. The function
// is pure: the same (ref, loc, now) triple always yields the same
// range, and every successful result satisfies Start < End.
//
// Unrecognized kinds and non-positive magnitudes resolve to an error;
// the caller is expected to fall back to an unfiltered query.
//
// Note: months_ago is a flat 30-day-per-month approximation, not
// calendar arithmetic, and last_hours is an alias of hours_ago.
func ResolveRange(ref model.TimeReference, loc *time.Location, now time.Time) (model.ResolvedRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	localNow := now.In(loc)
	y, m, d := localNow.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	endOfDay := time.Date(y, m, d, 23, 59, 59, endOfDayNano, loc)

	var start, end time.Time

	switch ref.Kind {
	case types.TimeKindToday:
		start = midnight
		end = midnight.Add(24 * time.Hour)

	case types.TimeKindYesterday:
		end = midnight
		start = end.Add(-24 * time.Hour)

	case types.TimeKindThisWeek:
		start = midnight.Add(-time.Duration(daysSinceMonday(localNow)) * 24 * time.Hour)
		end = start.Add(7 * 24 * time.Hour)

	case types.TimeKindLastWeek:
		weekStart := midnight.Add(-time.Duration(daysSinceMonday(localNow)) * 24 * time.Hour)
		start = weekStart.Add(-7 * 24 * time.Hour)
		end = weekStart

	case types.TimeKindThisMonth:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		end = time.Date(y, m+1, 1, 0, 0, 0, 0, loc)

	case types.TimeKindLastMonth:
		start = time.Date(y, m-1, 1, 0, 0, 0, 0, loc)
		end = time.Date(y, m, 1, 0, 0, 0, 0, loc)

	case types.TimeKindDaysAgo:
		n, err := magnitude(ref)
		if err != nil {
			return model.ResolvedRange{}, err
		}
		end = endOfDay
		start = end.Add(-time.Duration(n) * 24 * time.Hour)

	case types.TimeKindHoursAgo, types.TimeKindLastHours:
		n, err := magnitude(ref)
		if err != nil {
			return model.ResolvedRange{}, err
		}
		end = localNow
		start = end.Add(-time.Duration(n) * time.Hour)

	case types.TimeKindWeeksAgo:
		n, err := magnitude(ref)
		if err != nil {
			return model.ResolvedRange{}, err
		}
		end = endOfDay
		start = end.Add(-time.Duration(n) * 7 * 24 * time.Hour)

	case types.TimeKindMonthsAgo:
		n, err := magnitude(ref)
		if err != nil {
			return model.ResolvedRange{}, err
		}
		end = endOfDay
		start = end.Add(-time.Duration(n) * 30 * 24 * time.Hour)

	default:
		return model.ResolvedRange{}, goerr.New("unrecognized time reference kind",
			goerr.V("kind", ref.Kind), goerr.V("raw", ref.RawText))
	}

	// Stored timestamps are naive UTC; normalize before comparison.
	return model.ResolvedRange{Start: start.UTC(), End: end.UTC()}, nil
}

// FirstRange resolves the first extracted time reference of a query,
// if any. Only the first reference is honored even when a query
// contains several (single-reference resolution).
func FirstRange(refs []model.TimeReference, loc *time.Location, now time.Time) (*model.ResolvedRange, *model.TimeReference) {
	if len(refs) == 0 {
		return nil, nil
	}
	ref := refs[0]
	rng, err := ResolveRange(ref, loc, now)
	if err != nil {
		return nil, &ref
	}
	return &rng, &ref
}

func daysSinceMonday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func magnitude(ref model.TimeReference) (int, error) {
	if ref.Magnitude < 1 {
		return 0, goerr.New("time reference requires a positive magnitude",
			goerr.V("kind", ref.Kind), goerr.V("magnitude", ref.Magnitude))
	}
	return ref.Magnitude, nil
}
