package analysis

import (
	"flag"

	"github.com/wildstyl3r/lanexopt/internal/config"
)

type DataItem struct {
	saveFlag   *bool
	fileSuffix string
}

type SequentialDataItem struct {
	DataItem
	columnNames []string
	values      func(*Analysis) (args []float64, values [][]float64, err error)
	xUnit       []config.UnitElement
	yUnit       []config.UnitElement
}

type DataFlags struct {
	all         *bool
	summary     *bool
	surface     *bool
	lineouts    *bool
	html        *bool
	sequentials map[string]SequentialDataItem
	outputPath  string
}

var (
	densityUnit = config.Units("PeakDensity")
	lengthUnit  = config.Units("FocalLength")
)

// NewDataFlags registers the output flags on fs.
func NewDataFlags(fs *flag.FlagSet) DataFlags {
	return DataFlags{
		all:      fs.Bool("all", false, "save every available output"),
		summary:  fs.Bool("sum", false, "save the setup summary table"),
		surface:  fs.Bool("surf", false, "save the normalized performance surface and its ranking"),
		lineouts: fs.Bool("lo", false, "save performance surface lineouts"),
		html:     fs.Bool("html", false, "render HTML charts"),
		sequentials: map[string]SequentialDataItem{
			"Fill fraction": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("fill", true, "save fill fraction against beam density"),
					fileSuffix: "fill",
				},
				columnNames: []string{"density", "fill fraction", "ADC counts"},
				values: func(a *Analysis) (args []float64, values [][]float64, err error) {
					cam := a.Chain.Camera()
					for i, d := range a.Densities {
						args = append(args, d)
						values = append(values, []float64{a.Fills[i], cam.ADCCounts(a.Fills[i])})
					}
					return args, values, nil
				},
				xUnit: densityUnit,
				yUnit: []config.UnitElement{},
			},
			"Object distance": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("od", false, "save object distance against focal length"),
					fileSuffix: "od",
				},
				columnNames: []string{"focal length", "object distance"},
				values: func(a *Analysis) (args []float64, values [][]float64, err error) {
					args = a.FocalLengths()
					distances, err := a.ObjectDistanceCurve(args)
					if err != nil {
						return nil, nil, err
					}
					for _, od := range distances {
						values = append(values, []float64{od})
					}
					return args, values, nil
				},
				xUnit: lengthUnit,
				yUnit: lengthUnit,
			},
		},
	}
}

func (df *DataFlags) SetOutputPath(path string) {

	if path != "" && path[len(path)-1] != '/' {
		df.outputPath = path + "/"
	} else {
		df.outputPath = path
	}
}

func (df *DataFlags) GetOutputPath() string {
	return df.outputPath
}

func (df *DataFlags) Summary() bool  { return *df.summary || *df.all }
func (df *DataFlags) Surface() bool  { return *df.surface || *df.all }
func (df *DataFlags) Lineouts() bool { return *df.lineouts || *df.all }
func (df *DataFlags) HTML() bool     { return *df.html || *df.all }
