package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/facette/natsort"
	"gorm.io/gorm"

	"github.com/wildstyl3r/lanexopt/internal/analysis"
	"github.com/wildstyl3r/lanexopt/internal/config"
	"github.com/wildstyl3r/lanexopt/internal/logging"
	"github.com/wildstyl3r/lanexopt/internal/store"
	"github.com/wildstyl3r/lanexopt/internal/surface"
)

type result struct {
	analysis *analysis.Analysis
	err      error
}

func main() {
	dataFlags := analysis.NewDataFlags(flag.CommandLine)
	var configFileNamePointer = flag.String("input", "lanex", "setup configuration in toml format")
	var verbose = flag.Bool("v", false, "log every setup in detail")
	var logLevel = flag.String("log", "info", "log level: debug, info, warn or error")
	var noColor = flag.Bool("nocolor", false, "disable colored log output")
	var dbPath = flag.String("db", "", "sqlite database to record the run in")
	var top = flag.Int("top", 0, "list this many least saturated setups stored in the database")
	flag.Parse()

	logger := logging.Setup(os.Stderr, *logLevel, *noColor)
	if err := run(logger, dataFlags, *configFileNamePointer, *verbose, *dbPath, *top); err != nil {
		logger.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, dataFlags analysis.DataFlags, input string, verbose bool, dbPath string, top int) error {
	startTime := time.Now()
	configFileName := strings.TrimSuffix(input, ".toml")

	cfg, meta, err := config.LoadConfig(configFileName)
	if err != nil {
		return err
	}

	if cfg.OutputDir != "" && cfg.OutputDir != "." {
		if err := os.MkdirAll(cfg.OutputDir, 0750); err != nil {
			return err
		}
		dataFlags.SetOutputPath(cfg.OutputDir)
	}

	names := make([]string, 0, len(cfg.Setups))
	for name := range cfg.Setups {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		switch {
		case natsort.Compare(a, b):
			return -1
		case natsort.Compare(b, a):
			return 1
		}
		return 0
	})

	var wg sync.WaitGroup
	dataflow := make(chan result)
	for _, name := range names {
		parameters := cfg.Setups[name]
		if err := parameters.CheckAndUnify(name, &cfg, &meta); err != nil {
			logger.Error("setup skipped", "setup", name, "err", err)
			continue
		}
		parameters.SetVerbosity(verbose)
		wg.Add(1)
		//worker
		go func() {
			defer wg.Done()
			a, err := analysis.NewAnalysis(name, &parameters)
			if err != nil {
				err = fmt.Errorf("setup %s: %w", name, err)
			}
			dataflow <- result{analysis: a, err: err}
		}()
	}

	// chan killer
	go func() {
		wg.Wait()
		close(dataflow)
	}()

	var analyses []*analysis.Analysis
	failed := 0
	for r := range dataflow {
		if r.err != nil {
			logger.Error("setup failed", "err", r.err)
			failed++
			continue
		}
		analyses = append(analyses, r.analysis)
	}
	slices.SortFunc(analyses, func(a, b *analysis.Analysis) int {
		return slices.Index(names, a.Name) - slices.Index(names, b.Name)
	})

	for _, a := range analyses {
		if a.Parameters.Verbose() {
			a.Log(logger)
		}
		if err := analysis.NewDataExtractor(a).Save(dataFlags); err != nil {
			logger.Error("saving outputs", "setup", a.Name, "err", err)
		}
	}

	if len(analyses) > 0 && dataFlags.Summary() {
		if err := analysis.SaveSummary(analyses, dataFlags, cfg.OutputUnits); err != nil {
			return err
		}
		logger.Info("summary saved", "setups", len(analyses))
	}

	var s *surface.Surface
	if sp := cfg.Surface; sp != nil {
		s, err = surface.Evaluate(sp.FNumbers, sp.FieldsOfView, sp.ImageHeight, sp.PixelPitch)
		if err != nil {
			return fmt.Errorf("surface: %w", err)
		}
		best := s.Rank()[0]
		logger.Info("surface evaluated",
			"best N", best.FNumber,
			"best field of view", config.SI(best.FieldOfView, config.Units("FocalLength"), cfg.OutputUnits, false),
		)
		if err := analysis.SaveSurface(s, sp, dataFlags, cfg.OutputUnits); err != nil {
			return err
		}
	}

	if dataFlags.HTML() {
		if err := renderCharts(dataFlags.GetOutputPath()+"charts.html", analyses, s, cfg.OutputUnits); err != nil {
			return err
		}
	}

	if dbPath != "" {
		previous, best, err := record(dbPath, configFileName, analyses, s, top)
		if err != nil {
			return err
		}
		density := func(v float64) float64 { return config.SI(v, config.Units("PeakDensity"), cfg.OutputUnits, false) }
		densityUnit := config.UnitLabel(config.Units("PeakDensity"), cfg.OutputUnits)
		if previous != nil {
			logger.Info("previous run", "id", previous.ID, "at", previous.CreatedAt.Format(time.DateTime), "setups", len(previous.Setups))
		}
		logger.Info("run recorded", "db", dbPath)
		for i, st := range best {
			logger.Info("least saturated", "rank", i+1, "setup", st.Name, "camera", st.Camera,
				"saturation ["+densityUnit+"]", density(st.SaturationDensity))
		}
	}

	logger.Info("done", "setups", len(analyses), "failed", failed, "elapsed", time.Since(startTime))
	if failed > 0 {
		return fmt.Errorf("%d of %d setups failed", failed, len(names))
	}
	return nil
}

func renderCharts(path string, analyses []*analysis.Analysis, s *surface.Surface, units []string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return analysis.RenderCharts(file, analyses, s, units)
}

// record stores the run and returns the previous run of the same input, nil
// for the first one, and up to top least saturated setups stored so far.
func record(dbPath, input string, analyses []*analysis.Analysis, s *surface.Surface, top int) (previous *store.Run, best []store.Setup, err error) {
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	previous, err = db.LatestRun(input)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		previous = nil
	} else if err != nil {
		return nil, nil, err
	}

	setups := make([]store.Setup, 0, len(analyses))
	for _, a := range analyses {
		r, err := a.Record()
		if err != nil {
			return nil, nil, err
		}
		setups = append(setups, r)
	}
	var points []store.SurfacePoint
	if s != nil {
		for i, p := range s.Rank() {
			points = append(points, store.SurfacePoint{
				Rank:        i + 1,
				FNumber:     p.FNumber,
				FieldOfView: p.FieldOfView,
				Value:       p.Value,
				Relative:    p.Relative,
			})
		}
	}
	if _, err := db.SaveRun(input, setups, points); err != nil {
		return nil, nil, err
	}
	if top > 0 {
		if best, err = db.LeastSaturated(top); err != nil {
			return nil, nil, err
		}
	}
	return previous, best, nil
}
