package processor

import (
	"time"

	"FlightWeatherPipeline/src/utils"
)

// holidayCalendar holds the U.S. public holidays for a span of years as day
// numbers, so per-row checks are set lookups rather than scans over the
// holiday list.
type holidayCalendar struct {
	days map[int]bool
	near map[int]bool
}

// newHolidayCalendar builds the calendar for [firstYear, lastYear]. The near
// set covers every day within window days of a holiday, in either direction,
// inclusive.
func newHolidayCalendar(firstYear, lastYear, window int) *holidayCalendar {
	cal := &holidayCalendar{
		days: make(map[int]bool),
		near: make(map[int]bool),
	}
	// One year of slack on both ends so window checks at year boundaries see
	// the neighboring year's holidays.
	for year := firstYear - 1; year <= lastYear+1; year++ {
		for _, h := range usHolidays(year) {
			day := utils.DayNumber(h)
			cal.days[day] = true
			for d := day - window; d <= day+window; d++ {
				cal.near[d] = true
			}
		}
	}
	return cal
}

func (c *holidayCalendar) isHoliday(day int) bool {
	return c.days[day]
}

func (c *holidayCalendar) isNearHoliday(day int) bool {
	return c.near[day]
}

// usHolidays lists the U.S. federal holidays of a year, actual dates without
// observed-day shifting.
func usHolidays(year int) []time.Time {
	hs := []time.Time{
		date(year, time.January, 1),                          // New Year's Day
		nthWeekday(year, time.January, time.Monday, 3),       // Martin Luther King Jr. Day
		nthWeekday(year, time.February, time.Monday, 3),      // Washington's Birthday
		lastWeekday(year, time.May, time.Monday),             // Memorial Day
		date(year, time.July, 4),                             // Independence Day
		nthWeekday(year, time.September, time.Monday, 1),     // Labor Day
		nthWeekday(year, time.October, time.Monday, 2),       // Columbus Day
		date(year, time.November, 11),                        // Veterans Day
		nthWeekday(year, time.November, time.Thursday, 4),    // Thanksgiving
		date(year, time.December, 25),                        // Christmas
	}
	if year >= 2021 {
		hs = append(hs, date(year, time.June, 19)) // Juneteenth
	}
	return hs
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	t := date(year, month, 1)
	offset := (int(weekday) - int(t.Weekday()) + 7) % 7
	return t.AddDate(0, 0, offset+(n-1)*7)
}

func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	t := date(year, month+1, 1).AddDate(0, 0, -1) // last day of month
	offset := (int(t.Weekday()) - int(weekday) + 7) % 7
	return t.AddDate(0, 0, -offset)
}
