package processor

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"FlightWeatherPipeline/src/config"
	"FlightWeatherPipeline/src/storage"
	"FlightWeatherPipeline/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/stat"
)

// labelColumn is the binary label the split stratifies on and the target
// encoder learns from.
const labelColumn = "DepDel15"

// regressionTarget is the continuous label; it is never scaled or encoded.
const regressionTarget = "DepDelayMinutes"

// DatasetFinalizer turns the enriched table into the train/test pair: residual
// nulls dropped, a seeded stratified split, then standardization and target
// encoding both fitted on the train partition only and applied unchanged to
// the test partition.
type DatasetFinalizer struct {
	cfg *config.Config
	log *storage.Logger
}

func NewDatasetFinalizer(cfg *config.Config, log *storage.Logger) *DatasetFinalizer {
	return &DatasetFinalizer{cfg: cfg, log: log}
}

func (d *DatasetFinalizer) Finalize(df dataframe.DataFrame) (dataframe.DataFrame, dataframe.DataFrame, error) {
	if df.Err != nil {
		return dataframe.DataFrame{}, dataframe.DataFrame{}, fmt.Errorf("input table in error state: %w", df.Err)
	}
	if !utils.HasColumn(df, labelColumn) {
		return dataframe.DataFrame{}, dataframe.DataFrame{}, &SchemaError{File: "enriched table", Column: labelColumn}
	}

	clean := dropNullRows(df)
	if clean.Nrow() == 0 {
		return dataframe.DataFrame{}, dataframe.DataFrame{}, fmt.Errorf("no rows left after null drop")
	}
	d.log.Info(fmt.Sprintf("Null drop: %s -> %s rows",
		utils.FormatCount(df.Nrow()), utils.FormatCount(clean.Nrow())))

	// The split happens before any statistic is fitted; scaler and encoder
	// never see test rows.
	trainIdx, testIdx := stratifiedSplit(clean.Col(labelColumn).Float(),
		d.cfg.FinalData.TestFraction, d.cfg.FinalData.Seed)
	train := clean.Subset(trainIdx)
	test := clean.Subset(testIdx)
	if train.Err != nil || test.Err != nil {
		return dataframe.DataFrame{}, dataframe.DataFrame{}, fmt.Errorf("split enriched table: train=%v test=%v", train.Err, test.Err)
	}
	d.log.Info(fmt.Sprintf("Stratified split: %s train / %s test rows",
		utils.FormatCount(train.Nrow()), utils.FormatCount(test.Nrow())))

	train, test, err := d.standardize(train, test)
	if err != nil {
		return dataframe.DataFrame{}, dataframe.DataFrame{}, err
	}

	train, test, err = d.targetEncode(train, test)
	if err != nil {
		return dataframe.DataFrame{}, dataframe.DataFrame{}, err
	}

	return train, test, nil
}

// dropNullRows removes every row with a remaining null in any column. After
// the engineer's fill passes these mark unrecoverable gaps.
func dropNullRows(df dataframe.DataFrame) dataframe.DataFrame {
	n := df.Nrow()
	bad := make([]bool, n)
	names := df.Names()
	types := df.Types()

	for c, name := range names {
		col := df.Col(name)
		if types[c] == series.Float {
			for i, v := range col.Float() {
				if math.IsNaN(v) {
					bad[i] = true
				}
			}
			continue
		}
		for i, v := range col.Records() {
			if v == "NaN" || v == "" {
				bad[i] = true
			}
		}
	}

	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !bad[i] {
			keep = append(keep, i)
		}
	}
	return df.Subset(keep)
}

// stratifiedSplit partitions row indices so both sides keep the label's class
// proportions. The shuffle is seeded; identical inputs and seed give the
// identical split.
func stratifiedSplit(labels []float64, testFraction float64, seed int64) ([]int, []int) {
	byClass := make(map[float64][]int)
	classes := make([]float64, 0, 2)
	for i, v := range labels {
		if _, ok := byClass[v]; !ok {
			classes = append(classes, v)
		}
		byClass[v] = append(byClass[v], i)
	}
	sort.Float64s(classes)

	rng := rand.New(rand.NewSource(seed))
	var trainIdx, testIdx []int
	for _, cls := range classes {
		idx := byClass[cls]
		shuffled := make([]int, len(idx))
		copy(shuffled, idx)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		nTest := int(math.Round(float64(len(shuffled)) * testFraction))
		testIdx = append(testIdx, shuffled[:nTest]...)
		trainIdx = append(trainIdx, shuffled[nTest:]...)
	}
	sort.Ints(trainIdx)
	sort.Ints(testIdx)
	return trainIdx, testIdx
}

// standardize fits mean/σ per eligible numeric column on train and applies
// the same parameters to both partitions.
func (d *DatasetFinalizer) standardize(train, test dataframe.DataFrame) (dataframe.DataFrame, dataframe.DataFrame, error) {
	names := train.Names()
	types := train.Types()
	scaled := 0

	for c, name := range names {
		if types[c] != series.Float || d.scaleExcluded(name) {
			continue
		}

		trainVals := train.Col(name).Float()
		mean := stat.Mean(trainVals, nil)
		std := stat.StdDev(trainVals, nil)
		if std == 0 || math.IsNaN(std) {
			d.log.Warning(fmt.Sprintf("Column %s is constant on train; left unscaled", name))
			continue
		}

		train = train.Mutate(series.New(scaleValues(trainVals, mean, std), series.Float, name))
		test = test.Mutate(series.New(scaleValues(test.Col(name).Float(), mean, std), series.Float, name))
		scaled++
	}
	if train.Err != nil || test.Err != nil {
		return train, test, fmt.Errorf("standardize columns: train=%v test=%v", train.Err, test.Err)
	}
	d.log.Info(fmt.Sprintf("Standardized %d numeric columns on train statistics", scaled))
	return train, test, nil
}

// scaleExcluded: identifiers, labels, the cyclical pairs and indicator flags
// are never scaled; the config list adds to the built-ins.
func (d *DatasetFinalizer) scaleExcluded(name string) bool {
	switch name {
	case labelColumn, regressionTarget,
		"Holiday_Indicator", "Near_Holiday", "Weekend_Indicator", "Working_Day":
		return true
	}
	if strings.HasSuffix(name, "_Sin") || strings.HasSuffix(name, "_Cos") {
		return true
	}
	return utils.Contains(d.cfg.FinalData.ScaleExclude, name)
}

func scaleValues(vals []float64, mean, std float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = (v - mean) / std
	}
	return out
}

// targetEncode replaces each configured categorical column with the mean
// train label of its category. Categories unseen on train fall back to the
// global train label mean.
func (d *DatasetFinalizer) targetEncode(train, test dataframe.DataFrame) (dataframe.DataFrame, dataframe.DataFrame, error) {
	trainLabels := train.Col(labelColumn).Float()
	global := stat.Mean(trainLabels, nil)

	for _, name := range d.cfg.FinalData.TargetEncode {
		if !utils.HasColumn(train, name) {
			d.log.Warning(fmt.Sprintf("Target-encode column %s not present; skipped", name))
			continue
		}

		cats := train.Col(name).Records()
		sums := make(map[string]float64)
		counts := make(map[string]int)
		for i, cat := range cats {
			sums[cat] += trainLabels[i]
			counts[cat]++
		}
		encoding := make(map[string]float64, len(sums))
		for cat, sum := range sums {
			encoding[cat] = sum / float64(counts[cat])
		}

		train = train.Mutate(series.New(applyEncoding(cats, encoding, global), series.Float, name))

		testCats := test.Col(name).Records()
		unseen := 0
		encoded := make([]float64, len(testCats))
		for i, cat := range testCats {
			v, ok := encoding[cat]
			if !ok {
				v = global
				unseen++
			}
			encoded[i] = v
		}
		test = test.Mutate(series.New(encoded, series.Float, name))
		if unseen > 0 {
			d.log.Warning(fmt.Sprintf("Column %s: %d test rows with categories unseen on train; used global mean %.4f",
				name, unseen, global))
		}
	}
	if train.Err != nil || test.Err != nil {
		return train, test, fmt.Errorf("target-encode columns: train=%v test=%v", train.Err, test.Err)
	}
	return train, test, nil
}

func applyEncoding(cats []string, encoding map[string]float64, global float64) []float64 {
	out := make([]float64, len(cats))
	for i, cat := range cats {
		v, ok := encoding[cat]
		if !ok {
			v = global
		}
		out[i] = v
	}
	return out
}
