package processor

import (
	"fmt"
	"math"
	"time"

	"FlightWeatherPipeline/src/config"
	"FlightWeatherPipeline/src/storage"
	"FlightWeatherPipeline/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// FeatureEngineer derives the engineered columns of the enriched table:
// calendar and time-of-day categories, cyclical encodings, holiday and
// working-day indicators, and the three rolling families. Every rolling
// feature of a row is computed from strictly earlier rows of its grouping
// key; the row's own day never feeds its own calendar-window feature.
type FeatureEngineer struct {
	cfg *config.Config
	log *storage.Logger
}

func NewFeatureEngineer(cfg *config.Config, log *storage.Logger) *FeatureEngineer {
	return &FeatureEngineer{cfg: cfg, log: log}
}

// Enrich returns a new table with the engineered columns attached. The input
// must not already carry engineered columns; re-enriching is not supported
// and fails fast.
func (f *FeatureEngineer) Enrich(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("input table in error state: %w", df.Err)
	}
	for _, col := range []string{"DepTimeBucket", "Month_Sin", "Origin_FlightSeq"} {
		if utils.HasColumn(df, col) {
			return dataframe.DataFrame{}, fmt.Errorf("input already contains engineered column %s", col)
		}
	}
	for _, col := range []string{"FlightDate", "Origin", "Dest", "CRSDepTime", "DepDelayMinutes"} {
		if !utils.HasColumn(df, col) {
			return dataframe.DataFrame{}, &SchemaError{File: "merged table", Column: col}
		}
	}

	n := df.Nrow()
	dateStrs := df.Col("FlightDate").Records()
	days := make([]int, n)
	months := make([]float64, n)
	weekdays := make([]float64, n)
	ydays := make([]float64, n)
	for i, s := range dateStrs {
		t, err := utils.ParseDate(s)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("row %d: %w", i, err)
		}
		days[i] = utils.DayNumber(t)
		months[i] = float64(t.Month())
		weekdays[i] = float64(t.Weekday()) // Sunday=0 .. Saturday=6
		ydays[i] = float64(t.YearDay())
	}

	origins := df.Col("Origin").Records()
	dests := df.Col("Dest").Records()
	depTime := df.Col("CRSDepTime").Float()
	arrTime := df.Col("CRSArrTime").Float()
	delays := df.Col("DepDelayMinutes").Float()

	out := df

	// Threshold buckets. Out-of-range raw values go to Unknown, never panic.
	airTimes := df.Col("AirTime").Float()
	distances := df.Col("Distance").Float()
	depBucket := make([]string, n)
	airBucket := make([]string, n)
	distBucket := make([]string, n)
	for i := 0; i < n; i++ {
		depBucket[i] = depTimeBucket(depTime[i])
		airBucket[i] = airTimeBucket(airTimes[i])
		distBucket[i] = distanceBucket(distances[i])
	}
	out = out.Mutate(series.New(depBucket, series.String, "DepTimeBucket"))
	out = out.Mutate(series.New(airBucket, series.String, "AirTimeBucket"))
	out = out.Mutate(series.New(distBucket, series.String, "DistanceBucket"))

	// Cyclical pairs. Scheduled times are minutes-since-midnight, so their
	// period is 1440; day-of-year keeps 365 on leap years too.
	out = mutateCyclical(out, "DepTime", depTime, 1440)
	out = mutateCyclical(out, "ArrTime", arrTime, 1440)
	out = mutateCyclical(out, "DayOfYear", ydays, 365)
	out = mutateCyclical(out, "DayOfWeek", weekdays, 7)
	out = mutateCyclical(out, "Month", months, 12)

	// Holiday and working-day indicators, set-based.
	firstYear, lastYear := yearSpan(dateStrs)
	cal := newHolidayCalendar(firstYear, lastYear, f.cfg.FinalData.HolidayWindow)
	holiday := make([]float64, n)
	nearHoliday := make([]float64, n)
	weekend := make([]float64, n)
	workingDay := make([]float64, n)
	for i := 0; i < n; i++ {
		if cal.isHoliday(days[i]) {
			holiday[i] = 1
		}
		if cal.isNearHoliday(days[i]) {
			nearHoliday[i] = 1
		}
		if wd := int(weekdays[i]); wd == 0 || wd == 6 {
			weekend[i] = 1
		}
		if weekend[i] == 0 && holiday[i] == 0 {
			workingDay[i] = 1
		}
	}
	out = out.Mutate(series.New(holiday, series.Float, "Holiday_Indicator"))
	out = out.Mutate(series.New(nearHoliday, series.Float, "Near_Holiday"))
	out = out.Mutate(series.New(weekend, series.Float, "Weekend_Indicator"))
	out = out.Mutate(series.New(workingDay, series.Float, "Working_Day"))
	f.log.Info("Calendar, cyclical and indicator features attached")

	// Rolling weather means per station role, element and window.
	for _, role := range []struct {
		name string
		keys []string
	}{{"Origin", origins}, {"Dest", dests}} {
		order := sortByKeyDayTime(role.keys, days, depTime)
		for _, elem := range weatherElements {
			src := df.Col(role.name + "_" + elem).Float()
			for _, w := range f.cfg.FinalData.DayWindows {
				feat := dailyRollingMean(role.keys, days, src, w)
				groupFill(order, role.keys, feat)
				out = out.Mutate(series.New(feat, series.Float,
					fmt.Sprintf("%s_%s_Roll%d", role.name, elem, w)))
			}
		}
	}
	f.log.Info("Rolling weather features attached")

	// Rolling delay means per origin.
	originOrder := sortByKeyDayTime(origins, days, depTime)
	for _, w := range f.cfg.FinalData.DayWindows {
		feat := dailyRollingMean(origins, days, delays, w)
		groupFill(originOrder, origins, feat)
		out = out.Mutate(series.New(feat, series.Float, fmt.Sprintf("Origin_DepDelay_Roll%d", w)))
	}

	// Last-N sequence means per origin, strictly prior flights only.
	for _, nWin := range f.cfg.FinalData.SequenceWindows {
		feat := sequenceRollingMean(originOrder, origins, delays, nWin)
		groupFill(originOrder, origins, feat)
		out = out.Mutate(series.New(feat, series.Float, fmt.Sprintf("Origin_DepDelay_Last%d", nWin)))
	}

	// Same-day zero-based flight counter per origin.
	seq := sameDaySequence(originOrder, origins, days)
	out = out.Mutate(series.New(seq, series.Float, "Origin_FlightSeq"))
	f.log.Info("Rolling delay and sequence features attached")

	if out.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("attach engineered columns: %w", out.Err)
	}
	return out, nil
}

func mutateCyclical(df dataframe.DataFrame, name string, values []float64, period float64) dataframe.DataFrame {
	sin := make([]float64, len(values))
	cos := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			sin[i] = math.NaN()
			cos[i] = math.NaN()
			continue
		}
		sin[i] = math.Sin(2 * math.Pi * v / period)
		cos[i] = math.Cos(2 * math.Pi * v / period)
	}
	df = df.Mutate(series.New(sin, series.Float, name+"_Sin"))
	return df.Mutate(series.New(cos, series.Float, name+"_Cos"))
}

func depTimeBucket(min float64) string {
	switch {
	case math.IsNaN(min) || min < 0 || min > 1439:
		return "Unknown"
	case min < 300:
		return "Night"
	case min < 720:
		return "Morning"
	case min < 1020:
		return "Afternoon"
	case min < 1320:
		return "Evening"
	default:
		return "Night"
	}
}

func airTimeBucket(minutes float64) string {
	switch {
	case math.IsNaN(minutes) || minutes < 0:
		return "Unknown"
	case minutes < 90:
		return "Short"
	case minutes < 180:
		return "Medium"
	case minutes < 360:
		return "Long"
	default:
		return "VeryLong"
	}
}

func distanceBucket(miles float64) string {
	switch {
	case math.IsNaN(miles) || miles < 0:
		return "Unknown"
	case miles < 500:
		return "Short"
	case miles < 1500:
		return "Medium"
	case miles < 3000:
		return "Long"
	default:
		return "VeryLong"
	}
}

func yearSpan(dates []string) (int, int) {
	first, last := 0, 0
	for _, s := range dates {
		if len(s) < 4 {
			continue
		}
		y := 0
		fmt.Sscanf(s[:4], "%d", &y)
		if y == 0 {
			continue
		}
		if first == 0 || y < first {
			first = y
		}
		if y > last {
			last = y
		}
	}
	if first == 0 {
		now := time.Now().Year()
		return now, now
	}
	return first, last
}
