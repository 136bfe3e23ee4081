package pipeline

import (
	"errors"
	"sort"
	"time"

	"upsse/internal"
	"upsse/internal/util"
)

// ErrNoDates means no transactional row carried a parseable date, leaving
// nothing to stamp the batch with.
var ErrNoDates = errors.New("no valid invoice dates found in batch")

// DateOption is one candidate reading of the batch date.
type DateOption struct {
	Display string
	Value   time.Time
}

// DateResolution is either a resolved batch date or an explicit request
// for the caller to choose. The core never guesses between day-first and
// month-first readings; ambiguity round-trips to a human.
type DateResolution struct {
	ChoiceNeeded bool
	Options      []DateOption
	Date         time.Time
}

// ResolveBatchDate determines the single calendar date a batch is stamped
// with. A pre-confirmed date bypasses detection. Otherwise the batch must
// reference exactly one distinct date, and that date must not be
// day/month-swappable; anything else returns the candidate readings for
// the caller to present.
func ResolveBatchDate(records []internal.TransactionRecord, confirmed *time.Time) (DateResolution, error) {
	if confirmed != nil {
		return DateResolution{Date: *confirmed}, nil
	}

	distinct := map[time.Time]struct{}{}
	for _, rec := range records {
		if rec.HasDate {
			distinct[rec.Date] = struct{}{}
		}
	}
	if len(distinct) == 0 {
		return DateResolution{}, ErrNoDates
	}

	dates := make([]time.Time, 0, len(distinct))
	for d := range distinct {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	if len(dates) == 1 && !util.DateAmbiguous(dates[0]) {
		return DateResolution{Date: dates[0]}, nil
	}

	seen := map[time.Time]struct{}{}
	var options []DateOption
	add := func(d time.Time) {
		if _, dup := seen[d]; dup {
			return
		}
		seen[d] = struct{}{}
		options = append(options, DateOption{Display: d.Format("02/01/2006"), Value: d})
	}
	for _, d := range dates {
		add(d)
		if util.DateAmbiguous(d) {
			add(util.SwapDayMonth(d))
		}
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Value.Before(options[j].Value) })

	return DateResolution{ChoiceNeeded: true, Options: options}, nil
}
