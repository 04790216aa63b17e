// Package pipeline drives the yearly batch run: clean and merge each
// configured year on a bounded worker pool, then enrich, split and persist
// the combined table.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"FlightWeatherPipeline/src/config"
	"FlightWeatherPipeline/src/datasource/file"
	"FlightWeatherPipeline/src/processor"
	"FlightWeatherPipeline/src/storage"
	"FlightWeatherPipeline/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

type Pipeline struct {
	cfg       *config.Config
	log       *storage.Logger
	cleaner   *processor.FlightCleaner
	reshaper  *processor.WeatherReshaper
	merger    *processor.TabularMerger
	engineer  *processor.FeatureEngineer
	finalizer *processor.DatasetFinalizer
}

func NewPipeline(cfg *config.Config, log *storage.Logger) (*Pipeline, error) {
	reshaper, err := processor.NewWeatherReshaper(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init weather reshaper: %w", err)
	}
	return &Pipeline{
		cfg:       cfg,
		log:       log,
		cleaner:   processor.NewFlightCleaner(cfg, log),
		reshaper:  reshaper,
		merger:    processor.NewTabularMerger(cfg, log),
		engineer:  processor.NewFeatureEngineer(cfg, log),
		finalizer: processor.NewDatasetFinalizer(cfg, log),
	}, nil
}

// yearResult carries one year's merged table out of the worker pool. Any
// per-year failure marks the year skipped; err is only set for run-level
// conditions such as cancellation.
type yearResult struct {
	year    int
	df      dataframe.DataFrame
	skipped bool
	err     error
}

// Run executes one full batch over the given years. Years override the
// configured list when non-empty. At least one year must survive the merge
// stage for the run to succeed.
func (p *Pipeline) Run(ctx context.Context, years []int) error {
	if len(years) == 0 {
		years = p.cfg.Overall.Years
	}
	if len(years) == 0 {
		return fmt.Errorf("no years configured")
	}

	p.log.Info(fmt.Sprintf("Batch run started for years %v with %d workers", years, p.cfg.Overall.MaxWorkers))

	results := p.runYears(ctx, years)

	var merged []yearResult
	for _, res := range results {
		if res.err != nil {
			// Only run-level conditions (cancellation) land here; per-year
			// failures were already logged and marked skipped.
			return res.err
		}
		if res.skipped {
			continue
		}
		merged = append(merged, res)
	}
	if len(merged) == 0 {
		return fmt.Errorf("no year produced a merged table")
	}
	// Concatenation order is fixed to ascending year regardless of worker
	// completion order.
	sort.Slice(merged, func(i, j int) bool { return merged[i].year < merged[j].year })

	if err := ctx.Err(); err != nil {
		return err
	}

	combined := merged[0].df
	for _, res := range merged[1:] {
		combined = combined.RBind(res.df)
	}
	if combined.Err != nil {
		return fmt.Errorf("concatenate yearly tables: %w", combined.Err)
	}
	p.log.Info(fmt.Sprintf("Merge stage done: %s rows across %d years",
		utils.FormatCount(combined.Nrow()), len(merged)))

	enriched, err := p.engineer.Enrich(combined)
	if err != nil {
		return fmt.Errorf("feature stage: %w", err)
	}
	p.log.Info(fmt.Sprintf("Feature stage done: %d columns", enriched.Ncol()))

	if err := ctx.Err(); err != nil {
		return err
	}

	train, test, err := p.finalizer.Finalize(enriched)
	if err != nil {
		return fmt.Errorf("finalize stage: %w", err)
	}

	if err := file.WriteDataFrame(train, p.cfg.Paths.FinalTrain); err != nil {
		return fmt.Errorf("write train set: %w", err)
	}
	if err := file.WriteDataFrame(test, p.cfg.Paths.FinalTest); err != nil {
		return fmt.Errorf("write test set: %w", err)
	}
	p.log.Info(fmt.Sprintf("Finalize stage done: %s train / %s test rows written",
		utils.FormatCount(train.Nrow()), utils.FormatCount(test.Nrow())))

	if p.cfg.FinalData.DeleteMerged {
		p.deleteMerged(merged)
	}

	if p.cfg.Paths.ReportFile != "" {
		if err := p.writeReport(years, merged, train.Nrow(), test.Nrow()); err != nil {
			p.log.Warning(fmt.Sprintf("Run report not written: %v", err))
		}
	}

	p.log.Info("Batch run finished")
	return nil
}

// runYears cleans and merges every year on a pool of MaxWorkers goroutines.
// Each year is independent; results come back in input order.
func (p *Pipeline) runYears(ctx context.Context, years []int) []yearResult {
	results := make([]yearResult, len(years))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := p.cfg.Overall.MaxWorkers
	if workers > len(years) {
		workers = len(years)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.processYear(years[i])
			}
		}()
	}

	for i := range years {
		if ctx.Err() != nil {
			results[i] = yearResult{year: years[i], err: ctx.Err()}
			continue
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

// processYear runs clean, reshape and merge for one year. Every failure is
// confined to the year: missing inputs log a warning, anything else (corrupt
// file, schema mismatch) logs an error, and the year is skipped either way.
func (p *Pipeline) processYear(year int) yearResult {
	res := yearResult{year: year}

	df, err := p.mergeOneYear(year)
	if err != nil {
		if errors.Is(err, processor.ErrMissingInput) {
			p.log.Warning(fmt.Sprintf("Year %d skipped: %v", year, err))
		} else {
			p.log.Error(fmt.Sprintf("Year %d failed and was skipped: %v", year, err))
		}
		res.skipped = true
		return res
	}
	res.df = df
	return res
}

func (p *Pipeline) mergeOneYear(year int) (dataframe.DataFrame, error) {
	if _, err := p.cleaner.CleanYear(year); err != nil {
		return dataframe.DataFrame{}, err
	}
	if _, err := p.reshaper.ReshapeYear(year); err != nil {
		return dataframe.DataFrame{}, err
	}
	return p.merger.MergeYear(year)
}

func (p *Pipeline) deleteMerged(merged []yearResult) {
	for _, res := range merged {
		path := filepath.Join(p.cfg.Paths.FinalByYear, fmt.Sprintf("final_%d.parquet", res.year))
		if err := os.Remove(path); err != nil {
			p.log.Warning(fmt.Sprintf("Could not delete merged file %s: %v", path, err))
		} else {
			p.log.Info(fmt.Sprintf("Deleted merged file: %s", path))
		}
	}
}

// writeReport saves a per-year summary workbook next to the outputs.
func (p *Pipeline) writeReport(years []int, merged []yearResult, trainRows, testRows int) error {
	rowsByYear := make(map[int]int, len(merged))
	for _, res := range merged {
		rowsByYear[res.year] = res.df.Nrow()
	}

	yearCol := make([]int, 0, len(years)+1)
	statusCol := make([]string, 0, len(years)+1)
	rowsCol := make([]string, 0, len(years)+1)
	for _, year := range years {
		yearCol = append(yearCol, year)
		if n, ok := rowsByYear[year]; ok {
			statusCol = append(statusCol, "merged")
			rowsCol = append(rowsCol, utils.FormatCount(n))
		} else {
			statusCol = append(statusCol, "skipped")
			rowsCol = append(rowsCol, "0")
		}
	}
	yearCol = append(yearCol, 0)
	statusCol = append(statusCol, fmt.Sprintf("train=%s test=%s", utils.FormatCount(trainRows), utils.FormatCount(testRows)))
	rowsCol = append(rowsCol, utils.FormatCount(trainRows+testRows))

	report := dataframe.New(
		series.New(yearCol, series.Int, "Year"),
		series.New(statusCol, series.String, "Status"),
		series.New(rowsCol, series.String, "Rows"),
	)
	if report.Err != nil {
		return report.Err
	}
	return utils.SaveToExcel(report, p.cfg.Paths.ReportFile)
}
