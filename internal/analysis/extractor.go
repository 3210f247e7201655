package analysis

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/wildstyl3r/lanexopt/internal/config"
	"github.com/wildstyl3r/lanexopt/internal/surface"
	"github.com/wildstyl3r/lanexopt/internal/utils"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func withUnit(name string, unit []config.UnitElement, units []string) string {
	if label := config.UnitLabel(unit, units); label != "" {
		return name + " (" + label + ")"
	}
	return name
}

type DataExtractor struct {
	analysis *Analysis
}

func NewDataExtractor(a *Analysis) *DataExtractor {
	return &DataExtractor{analysis: a}
}

// Save writes every enabled sequential output of the setup as CSV.
func (de *DataExtractor) Save(df DataFlags) error {
	p := de.analysis.Parameters
	units := p.OutputUnits()
	var errs []error
	for name, output := range df.sequentials {
		if !*output.saveFlag && !*df.all {
			continue
		}
		xColumnValue, yColumnValues, err := output.values(de.analysis)
		if err != nil {
			errs = append(errs, fmt.Errorf("unable to compute %s: %w", name, err))
			continue
		}
		columns := []string{withUnit(output.columnNames[0], output.xUnit, units)}
		for _, c := range output.columnNames[1:] {
			columns = append(columns, withUnit(c, output.yUnit, units))
		}
		rows := make(utils.CSV, 0, len(xColumnValue))
		for x := range xColumnValue {
			row := []string{formatFloat(config.SI(xColumnValue[x], output.xUnit, units, false))}
			for i := range yColumnValues[x] {
				row = append(row, formatFloat(config.SI(yColumnValues[x][i], output.yUnit, units, false)))
			}
			rows = append(rows, row)
		}

		file, err := utils.OpenFile(p.MakeDir, df.outputPath, output.fileSuffix, de.analysis.Name, ".csv")
		if err != nil {
			errs = append(errs, fmt.Errorf("unable to save %s: %w", name, err))
			continue
		}
		err = utils.WriteCSV(file, columns, rows, false)
		file.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("unable to save %s: %w", name, err))
			continue
		}
		slog.Debug("output saved", "setup", de.analysis.Name, "output", name)
	}
	return errors.Join(errs...)
}

var summaryColumns = []string{
	"setup", "N", "m", "focal length", "object distance",
	"peak fill", "regime", "saturation density", "noise floor density", "reference ADC counts",
}

// SaveSummary writes one row per setup, naturally ordered by setup name.
func SaveSummary(analyses []*Analysis, df DataFlags, units []string) error {
	columns := summaryHeader(units)
	rows := make(utils.CSV, 0, len(analyses))
	for _, a := range analyses {
		o := a.Chain.Optics()
		rows = append(rows, []string{
			a.Name,
			formatFloat(o.FNumber),
			formatFloat(o.Magnification),
			formatFloat(config.SI(o.FocalLength, lengthUnit, units, false)),
			formatFloat(config.SI(nanToZero(a.ObjectDistance), lengthUnit, units, false)),
			formatFloat(a.PeakFill),
			a.PeakRegime.String(),
			formatFloat(config.SI(a.Saturation.Density, densityUnit, units, false)),
			formatFloat(config.SI(nanToZero(a.noiseFloorDensity()), densityUnit, units, false)),
			formatFloat(a.ReferenceADC),
		})
	}
	return utils.WriteAsCSV(rows, df.outputPath, "", "summary", columns, false)
}

func summaryHeader(units []string) []string {
	columns := append([]string{}, summaryColumns...)
	for i, c := range columns {
		switch c {
		case "focal length", "object distance":
			columns[i] = withUnit(c, lengthUnit, units)
		case "saturation density", "noise floor density":
			columns[i] = withUnit(c, densityUnit, units)
		}
	}
	return columns
}

// SaveSurface writes the normalized grid and its ranking when df asks for the
// surface, and the configured lineouts when it asks for lineouts.
func SaveSurface(s *surface.Surface, sp *config.SurfaceParameters, df DataFlags, units []string) error {
	fov := func(v float64) string { return formatFloat(config.SI(v, lengthUnit, units, false)) }

	if df.Surface() {
		columns := []string{"N \\ " + withUnit("field of view", lengthUnit, units)}
		for _, v := range s.FieldsOfView {
			columns = append(columns, fov(v))
		}
		var rows utils.CSV
		for i, row := range s.Normalized() {
			r := []string{formatFloat(s.FNumbers[i])}
			for _, v := range row {
				r = append(r, formatFloat(v))
			}
			rows = append(rows, r)
		}
		if err := writeUnsorted(df, "surface", "", columns, rows); err != nil {
			return err
		}

		rows = nil
		for i, p := range s.Rank() {
			rows = append(rows, []string{strconv.Itoa(i + 1), formatFloat(p.FNumber), fov(p.FieldOfView), formatFloat(p.Relative)})
		}
		columns = []string{"rank", "N", withUnit("field of view", lengthUnit, units), "relative"}
		if err := writeUnsorted(df, "surface", "rank", columns, rows); err != nil {
			return err
		}
	}

	if df.Lineouts() {
		columns := []string{withUnit("field of view", lengthUnit, units)}
		var lineouts [][]float64
		for _, n := range sp.LineoutFNumbers {
			lo, err := s.LineoutAtFNumber(n)
			if err != nil {
				return err
			}
			columns = append(columns, "N="+formatFloat(n))
			lineouts = append(lineouts, lo)
		}
		if err := writeUnsorted(df, "lineout", "N", columns, transpose(s.FieldsOfView, lineouts, fov)); err != nil {
			return err
		}

		columns = []string{"N"}
		lineouts = nil
		for _, v := range sp.LineoutFieldsOfView {
			lo, err := s.LineoutAtFieldOfView(v)
			if err != nil {
				return err
			}
			columns = append(columns, withUnit("fov="+fov(v), lengthUnit, units))
			lineouts = append(lineouts, lo)
		}
		if err := writeUnsorted(df, "lineout", "fov", columns, transpose(s.FNumbers, lineouts, formatFloat)); err != nil {
			return err
		}
	}
	return nil
}

// transpose lays out series sharing the args axis as CSV rows.
func transpose(args []float64, series [][]float64, format func(float64) string) utils.CSV {
	rows := make(utils.CSV, len(args))
	for i, x := range args {
		rows[i] = []string{format(x)}
		for _, s := range series {
			rows[i] = append(rows[i], formatFloat(s[i]))
		}
	}
	return rows
}

func writeUnsorted(df DataFlags, name, suffix string, columns []string, rows utils.CSV) error {
	file, err := utils.OpenFile(false, df.outputPath, suffix, name, ".csv")
	if err != nil {
		return fmt.Errorf("unable to save %s: %w", name, err)
	}
	defer file.Close()
	return utils.WriteCSV(file, columns, rows, false)
}
