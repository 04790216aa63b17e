package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"FlightWeatherPipeline/src/config"
	"FlightWeatherPipeline/src/datasource/file"
	"FlightWeatherPipeline/src/pipeline"
	"FlightWeatherPipeline/src/storage"

	"github.com/robfig/cron"
)

func main() {
	configDir := flag.String("config", "config", "directory with yaml config files")
	runData := flag.Bool("data", false, "run the batch pipeline once")
	yearsFlag := flag.String("years", "", "comma separated year list overriding the config")
	watch := flag.Bool("watch", false, "re-run when new input files land")
	schedule := flag.String("schedule", "", "cron expression for periodic runs")
	flag.Parse()

	if !*runData && !*watch && *schedule == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -data, -watch or -schedule")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadDir(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	years, err := parseYears(*yearsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse -years: %v\n", err)
		os.Exit(2)
	}

	log, err := storage.NewLogger(cfg.Paths.LogName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	log.SetConsole(true)

	pipe, err := pipeline.NewPipeline(cfg, log)
	if err != nil {
		log.Fatal(err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Triggered modes can fire while a run is still going; runs never overlap.
	var runMu sync.Mutex
	runOnce := func(trigger string) {
		runMu.Lock()
		defer runMu.Unlock()
		if err := log.CheckRotate(cfg.FinalData.LogMaxSize); err != nil {
			log.Warning(fmt.Sprintf("Log rotation check failed: %v", err))
		}
		log.Info(fmt.Sprintf("Run triggered by %s", trigger))
		if err := pipe.Run(ctx, years); err != nil {
			log.Error(fmt.Sprintf("Run failed: %v", err))
		}
	}

	if *runData {
		runMu.Lock()
		err := pipe.Run(ctx, years)
		runMu.Unlock()
		if err != nil {
			log.Error(fmt.Sprintf("Run failed: %v", err))
			os.Exit(1)
		}
	}

	if *schedule != "" {
		c := cron.New()
		if err := c.AddFunc(*schedule, func() { runOnce("schedule") }); err != nil {
			log.Fatal(fmt.Sprintf("Invalid -schedule expression %q: %v", *schedule, err))
			os.Exit(2)
		}
		c.Start()
		defer c.Stop()
		log.Info(fmt.Sprintf("Scheduler started with expression %q", *schedule))
	}

	if *watch {
		mon, err := file.NewMonitor(cfg.Paths.ExtractedFlightData, cfg.Paths.ExtractedNoaaData)
		if err != nil {
			log.Fatal(fmt.Sprintf("Start input monitor: %v", err))
			os.Exit(1)
		}
		defer mon.Close()
		log.Info("Input monitor started")
		go func() {
			if err := mon.Watch(ctx, func(path string) { runOnce(path) }); err != nil {
				log.Error(fmt.Sprintf("Input monitor stopped: %v", err))
			}
		}()
	}

	if *watch || *schedule != "" {
		<-ctx.Done()
		log.Info("Shutting down")
	}
}

func parseYears(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	years := make([]int, 0, len(parts))
	for _, p := range parts {
		y, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad year %q", p)
		}
		years = append(years, y)
	}
	return years, nil
}
