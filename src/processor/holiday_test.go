package processor

import (
	"testing"
	"time"

	"FlightWeatherPipeline/src/utils"
)

func dayOf(t *testing.T, s string) int {
	t.Helper()
	d, err := utils.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %s: %v", s, err)
	}
	return utils.DayNumber(d)
}

func TestHolidayCalendarFixedAndFloating(t *testing.T) {
	cal := newHolidayCalendar(2022, 2022, 3)

	holidays := []string{
		"2022-01-01", // New Year's Day
		"2022-01-17", // MLK, third Monday of January
		"2022-05-30", // Memorial Day, last Monday of May
		"2022-06-19", // Juneteenth
		"2022-07-04",
		"2022-09-05", // Labor Day, first Monday of September
		"2022-11-24", // Thanksgiving, fourth Thursday of November
		"2022-12-25",
	}
	for _, s := range holidays {
		if !cal.isHoliday(dayOf(t, s)) {
			t.Errorf("%s should be a holiday", s)
		}
	}
	if cal.isHoliday(dayOf(t, "2022-03-15")) {
		t.Error("2022-03-15 should not be a holiday")
	}
}

func TestHolidayCalendarNearWindow(t *testing.T) {
	cal := newHolidayCalendar(2022, 2022, 3)

	if !cal.isNearHoliday(dayOf(t, "2022-07-01")) {
		t.Error("2022-07-01 is within 3 days of July 4")
	}
	if !cal.isNearHoliday(dayOf(t, "2022-07-07")) {
		t.Error("2022-07-07 is within 3 days of July 4")
	}
	if cal.isNearHoliday(dayOf(t, "2022-07-08")) {
		t.Error("2022-07-08 is outside the 3 day window")
	}
	// The holiday itself counts as near.
	if !cal.isNearHoliday(dayOf(t, "2022-07-04")) {
		t.Error("the holiday itself should be near")
	}
}

func TestHolidayCalendarSpansYearBoundary(t *testing.T) {
	// Dec 29 2021 is within 3 days of Jan 1 2022; the calendar covers one
	// extra year on each side so boundary windows work.
	cal := newHolidayCalendar(2022, 2022, 3)
	if !cal.isNearHoliday(dayOf(t, "2021-12-29")) {
		t.Error("2021-12-29 is within 3 days of New Year 2022")
	}
}

func TestJuneteenthStartsIn2021(t *testing.T) {
	cal := newHolidayCalendar(2019, 2021, 0)
	if cal.isHoliday(dayOf(t, "2019-06-19")) {
		t.Error("Juneteenth was not a federal holiday in 2019")
	}
	if !cal.isHoliday(dayOf(t, "2021-06-19")) {
		t.Error("Juneteenth is a federal holiday from 2021")
	}
}

func TestNthWeekday(t *testing.T) {
	got := nthWeekday(2022, time.November, time.Thursday, 4)
	if got.Format(utils.DateLayout) != "2022-11-24" {
		t.Errorf("fourth Thursday of Nov 2022 = %s, want 2022-11-24", got.Format(utils.DateLayout))
	}
	got = lastWeekday(2022, time.May, time.Monday)
	if got.Format(utils.DateLayout) != "2022-05-30" {
		t.Errorf("last Monday of May 2022 = %s, want 2022-05-30", got.Format(utils.DateLayout))
	}
}
