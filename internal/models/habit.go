package models

import "time"

// streakWindow bounds how far back a streak is counted.
const streakWindow = 365

// DateLayout is the calendar-day format used for completion keys.
const DateLayout = "2006-01-02"

// DateKey formats t as a completion key in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// Streak returns the length of the unbroken run of completed days ending
// today. It is 0 when today itself is not completed.
func Streak(completions map[string]bool, today time.Time) int {
	streak := 0
	for i := 0; i < streakWindow; i++ {
		if !completions[DateKey(today.AddDate(0, 0, -i))] {
			break
		}
		streak++
	}
	return streak
}

// ToggleCompletion flips the completion for date and recomputes the streak
// relative to today.
func (h Habit) ToggleCompletion(date string, today time.Time) Habit {
	completions := cloneMap(h.Completions)
	if completions == nil {
		completions = map[string]bool{}
	}
	if completions[date] {
		delete(completions, date)
	} else {
		completions[date] = true
	}
	h.Completions = completions
	h.Streak = Streak(completions, today)
	return h
}
