package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wildstyl3r/lanexopt/internal/constants"
	"github.com/wildstyl3r/lanexopt/internal/optics"
	"github.com/wildstyl3r/lanexopt/internal/utils"
)

type Config struct {
	OutputDir string
	Setups    map[string]SetupParameters
	SetupParameters
	Lenses       string // file of "focal_length f_number" pairs, one setup per line
	Surface      *SurfaceParameters
	isDefinedMap map[string]struct{}

	InputUnits  []string
	OutputUnits []string
}

// SurfaceParameters describe the f-number by field-of-view comparison grid.
type SurfaceParameters struct {
	Camera       string
	FNumbers     []float64
	FieldsOfView []float64 // [Length]
	ImageHeight  float64   // [Length]
	PixelPitch   float64   // [Length]

	// grid coordinates to cut lineouts at, the grid ends by default
	LineoutFNumbers     []float64
	LineoutFieldsOfView []float64 // [Length]
}

func (c *Config) isDefined(path []string, meta *toml.MetaData) bool {
	if _, sureDefined := c.isDefinedMap[strings.Join(path, "#")]; sureDefined {
		return true
	} else {
		return meta.IsDefined(path...)
	}
}

func (c *Config) markDefined(path ...string) {
	c.isDefinedMap[strings.Join(path, "#")] = struct{}{}
}

func LoadConfig(configFileName string) (Config, toml.MetaData, error) {
	var config Config
	config.isDefinedMap = map[string]struct{}{}
	meta, err := toml.DecodeFile(configFileName+".toml", &config)
	if err != nil {
		return config, meta, fmt.Errorf("decoding %s.toml: %w", configFileName, err)
	}

	var unitsConflict []string
	config.InputUnits, unitsConflict = checkUnits(config.InputUnits)
	if len(unitsConflict) > 0 {
		return config, meta, fmt.Errorf("found input unit conflict: %v", unitsConflict)
	}
	if len(config.OutputUnits) == 0 {
		config.OutputUnits = config.InputUnits
	}
	config.OutputUnits, unitsConflict = checkUnits(config.OutputUnits)
	if len(unitsConflict) > 0 {
		return config, meta, fmt.Errorf("found output unit conflict: %v", unitsConflict)
	}

	if len(config.Lenses) > 0 {
		if len(config.Setups) > 0 {
			return config, meta, errors.New("simultaneous lens file listing and direct setup specification not supported")
		}
		lenses, err := utils.ReadFloatPairs(config.Lenses)
		if err != nil {
			return config, meta, fmt.Errorf("lens file reading error: %w", err)
		}
		filename := utils.GetFilename(config.Lenses)
		config.Setups = make(map[string]SetupParameters, len(lenses))
		for line := range lenses {
			setupName := filename + "_l" + strconv.Itoa(line+1)
			config.Setups[setupName] = SetupParameters{
				FocalLength: lenses[line][0],
				FNumber:     lenses[line][1],
			}
			config.markDefined("Setups", setupName, "FocalLength")
			config.markDefined("Setups", setupName, "FNumber")
		}
	}
	if len(config.Setups) == 0 && config.Surface == nil {
		return config, meta, errors.New("no setups provided")
	}

	if config.Surface != nil {
		if err := config.Surface.unify(&meta, config.InputUnits); err != nil {
			return config, meta, fmt.Errorf("surface: %w", err)
		}
	}

	return config, meta, nil
}

var defaultFNumbers = []float64{1.4, 2, 2.8, 4, 5.6, 8, 11, 16}

func (s *SurfaceParameters) unify(meta *toml.MetaData, units []string) error {
	for i := range s.FieldsOfView {
		s.FieldsOfView[i] = SI(s.FieldsOfView[i], lengthUnits, units, true)
	}
	for i := range s.LineoutFieldsOfView {
		s.LineoutFieldsOfView[i] = SI(s.LineoutFieldsOfView[i], lengthUnits, units, true)
	}
	s.ImageHeight = SI(s.ImageHeight, lengthUnits, units, true)
	s.PixelPitch = SI(s.PixelPitch, lengthUnits, units, true)

	if s.Camera != "" {
		preset, ok := constants.Presets[s.Camera]
		if !ok {
			return fmt.Errorf("unknown camera %q", s.Camera)
		}
		if !meta.IsDefined("Surface", "ImageHeight") {
			s.ImageHeight = preset.SensorHeight
		}
		if !meta.IsDefined("Surface", "PixelPitch") {
			s.PixelPitch = preset.PixelPitch
		}
	}
	if len(s.FNumbers) == 0 {
		s.FNumbers = slices.Clone(defaultFNumbers)
	}
	if len(s.FieldsOfView) == 0 {
		s.FieldsOfView = utils.Linspace(5e-2, 30e-2, 26)
	}
	if len(s.LineoutFNumbers) == 0 {
		s.LineoutFNumbers = ends(s.FNumbers)
	}
	if len(s.LineoutFieldsOfView) == 0 {
		s.LineoutFieldsOfView = ends(s.FieldsOfView)
	}

	var errs []error
	if s.ImageHeight == 0 {
		errs = append(errs, errors.New("ImageHeight not found"))
	}
	if s.PixelPitch == 0 {
		errs = append(errs, errors.New("PixelPitch not found"))
	}
	return errors.Join(errs...)
}

func ends(axis []float64) []float64 {
	return slices.Compact([]float64{axis[0], axis[len(axis)-1]})
}

type SetupParameters struct {
	Camera                 string  // preset name, see constants.Presets
	FocalLength            float64 // [Length]
	FNumber                float64
	Magnification          float64
	ImageHeight            float64 // [Length], negative: inverted image
	ObjectHeight           float64 // [Length]
	PixelPitch             float64 // [Length]
	QuantumEfficiency      float64
	FullWell               float64 // [counts]
	NoiseCounts            float64 // [ADC counts]
	BitDepth               int
	ScintillatorEfficiency float64 // [photons Charge^-1 sr^-1]

	PeakDensity      float64 // [Charge Length^-2]
	ReferenceDensity float64 // [Charge Length^-2]
	DensityMin       float64 // [Charge Length^-2]
	DensityMax       float64 // [Charge Length^-2]
	DensityPoints    int
	Guess            float64 // [Charge Length^-2]

	FocalLengthMin    float64 // [Length]
	FocalLengthMax    float64 // [Length]
	FocalLengthPoints int

	MakeDir bool

	_outputUnits []string
	_verbose     bool
}

func (p *SetupParameters) OutputUnits() []string {
	return p._outputUnits
}

func (p *SetupParameters) SetOutputUnits(u []string) {
	p._outputUnits = u
}

func (p *SetupParameters) Verbose() bool {
	return p._verbose
}

func (p *SetupParameters) SetVerbosity(verbose bool) {
	p._verbose = verbose
}

var defaultValues = map[string]any{ // in SI
	"ScintillatorEfficiency": constants.LanexEfficiency,    // [photons C^-1 sr^-1]
	"PeakDensity":            constants.PeakBeamDensity,    // [C m^-2]
	"ReferenceDensity":       constants.SingleCountDensity, // [C m^-2]
	"DensityMin":             1e-10,                        // [C m^-2]
	"DensityMax":             1e-1,                         // [C m^-2]
	"DensityPoints":          100,
	"Guess":                  1e-6, // [C m^-2]
	"FocalLengthMin":         10e-3,
	"FocalLengthMax":         85e-3,
	"FocalLengthPoints":      100,
	"MakeDir":                true,
}

var defaultUnits = []string{"mm", "pC"}

var fieldsXor = map[string][]string{
	"Magnification": {"ImageHeight"},
	"ImageHeight":   {"Magnification"},
}

var fieldsAnd = map[string][]string{
	"ImageHeight": {"ObjectHeight"},
}

var fieldsDerivable = map[string][]string{
	"ImageHeight": {"Magnification"},
}

var requiredFields = []string{"FNumber", "Magnification", "PixelPitch", "QuantumEfficiency", "FullWell"}

var (
	lengthUnits  = []UnitElement{{Class: Length, Power: 1}}
	densityUnits = []UnitElement{{Class: Charge, Power: 1}, {Class: Length, Power: -2}}
)

var valueUnits = map[string][]UnitElement{
	"FocalLength":            lengthUnits,
	"ImageHeight":            lengthUnits,
	"ObjectHeight":           lengthUnits,
	"PixelPitch":             lengthUnits,
	"FocalLengthMin":         lengthUnits,
	"FocalLengthMax":         lengthUnits,
	"PeakDensity":            densityUnits,
	"ReferenceDensity":       densityUnits,
	"DensityMin":             densityUnits,
	"DensityMax":             densityUnits,
	"Guess":                  densityUnits,
	"ScintillatorEfficiency": {{Class: Charge, Power: -1}},
}

// Units returns the unit signature of a field, nil for dimensionless ones.
func Units(field string) []UnitElement {
	return valueUnits[field]
}

var calculableFields = map[string]func(
	*SetupParameters,
	[]string,
) ([]string, error){
	"ImageHeight": func(sp *SetupParameters, definedFields []string) ([]string, error) {
		if !slices.Contains(definedFields, "ObjectHeight") {
			return nil, errors.New("field 'ObjectHeight' not found: required by Magnification calculation from ImageHeight")
		}
		m, err := optics.Magnification(sp.ImageHeight, sp.ObjectHeight)
		if err != nil {
			return nil, err
		}
		sp.Magnification = m
		return []string{"Magnification"}, nil
	},
}

func (setupConfig *SetupParameters) toSI(parameterNames, units []string) {
	setupConfigReflect := reflect.ValueOf(setupConfig).Elem()
	for name := range parameterNames {
		field := setupConfigReflect.FieldByName(parameterNames[name])
		if field.CanFloat() {
			field.SetFloat(SI(field.Float(), valueUnits[parameterNames[name]], units, true))
		}
	}
}

func (setupConfig *SetupParameters) checkFieldProblems(path []string, meta *toml.MetaData, globalConfig *Config) (ambiguities [][]string, missingDeps []string) {
	for field := range fieldsXor {
		if globalConfig.isDefined(slices.Concat(path, []string{field}), meta) {
			var foundAlternatives []string
			for _, alternative := range fieldsXor[field] {
				if globalConfig.isDefined(slices.Concat(path, []string{alternative}), meta) {
					foundAlternatives = append(foundAlternatives, alternative)
				}
			}
			if len(foundAlternatives) > 0 {
				ambiguities = append(ambiguities, append([]string{field}, foundAlternatives...))
			}
		}
	}

	for field := range fieldsAnd {
		if globalConfig.isDefined(slices.Concat(path, []string{field}), meta) {
			for _, requirement := range fieldsAnd[field] {
				if !globalConfig.isDefined(slices.Concat(path, []string{requirement}), meta) {
					missingDeps = append(missingDeps, requirement)
				}
			}
		}
	}
	return
}

/*
field value priority:
1. setup
2. setup-calculable
3. global
4. global-calculable
5. camera preset
6. default
*/

// CheckAndUnify fills setupConfig from the global section, the camera preset
// and the defaults, converts it to SI and derives the magnification.
func (setupConfig *SetupParameters) CheckAndUnify(setupName string, config *Config, meta *toml.MetaData) error {
	localPath := []string{"Setups", setupName}
	globalAmbiguities, globalMissingDeps := config.checkFieldProblems([]string{}, meta, config)
	localAmbiguities, localMissingDeps := setupConfig.checkFieldProblems(localPath, meta, config)
	if len(globalAmbiguities) > 0 {
		return fmt.Errorf("found global ambiguities %v", globalAmbiguities)
	}
	if len(localAmbiguities) > 0 {
		return fmt.Errorf("found setup ambiguities %v", localAmbiguities)
	}
	var missingIntersection []string
	for i := range globalMissingDeps {
		if slices.Contains(localMissingDeps, globalMissingDeps[i]) {
			missingIntersection = append(missingIntersection, globalMissingDeps[i])
		}
	}
	if len(missingIntersection) > 0 {
		return fmt.Errorf("required dependent fields not found %v", missingIntersection)
	}

	var discoveredParameters []string
	excludeFromLoadingDefaultOrOuter := make(map[string]struct{})
	setupConfigReflect := reflect.ValueOf(setupConfig).Elem()
	setupConfigType := setupConfigReflect.Type()
	for i := range setupConfigReflect.NumField() {
		fieldName := setupConfigType.Field(i).Name
		if config.isDefined(slices.Concat(localPath, []string{fieldName}), meta) {
			discoveredParameters = append(discoveredParameters, fieldName)
			for _, x := range fieldsXor[fieldName] {
				excludeFromLoadingDefaultOrOuter[x] = struct{}{}
			}
			for _, x := range fieldsDerivable[fieldName] {
				excludeFromLoadingDefaultOrOuter[x] = struct{}{}
			}
		}
	}

	globalConfigReflect := reflect.ValueOf(&config.SetupParameters).Elem()
	for i := range globalConfigReflect.NumField() {
		fieldName := setupConfigType.Field(i).Name
		if !setupConfigType.Field(i).IsExported() {
			continue
		}
		if _, some := excludeFromLoadingDefaultOrOuter[fieldName]; !some && !slices.Contains(discoveredParameters, fieldName) && meta.IsDefined(fieldName) {
			setupConfigReflect.Field(i).Set(globalConfigReflect.Field(i))
			discoveredParameters = append(discoveredParameters, fieldName)
			excludeFromLoadingDefaultOrOuter[fieldName] = struct{}{}
			for _, x := range fieldsXor[fieldName] {
				excludeFromLoadingDefaultOrOuter[x] = struct{}{}
			}
		}
	}

	setupConfig.toSI(discoveredParameters, config.InputUnits)

	if setupConfig.Camera != "" {
		preset, ok := constants.Presets[setupConfig.Camera]
		if !ok {
			return fmt.Errorf("unknown camera %q", setupConfig.Camera)
		}
		discoveredParameters = setupConfig.applyPreset(preset, discoveredParameters)
	}

	for fieldName := range defaultValues {
		if _, x := excludeFromLoadingDefaultOrOuter[fieldName]; !x && !slices.Contains(discoveredParameters, fieldName) {
			setupConfigReflect.FieldByName(fieldName).Set(reflect.ValueOf(defaultValues[fieldName]))
			discoveredParameters = append(discoveredParameters, fieldName)
		}
	}

	var enabledParameters []string
	for _, fieldName := range discoveredParameters {
		field := setupConfigReflect.FieldByName(fieldName)
		if field.Kind() != reflect.Bool || field.Bool() {
			enabledParameters = append(enabledParameters, fieldName)
		}
	}

	var errs []error
	for i := range enabledParameters {
		for _, requirement := range fieldsAnd[enabledParameters[i]] {
			if !slices.Contains(enabledParameters, requirement) {
				errs = append(errs, fmt.Errorf("for parameter %s requirement %s not found", enabledParameters[i], requirement))
			}
		}
		for _, conflict := range fieldsXor[enabledParameters[i]] {
			if slices.Contains(enabledParameters, conflict) {
				errs = append(errs, fmt.Errorf("for parameter %s found conflicting parameter: %s", enabledParameters[i], conflict))
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for initialFieldName, calculate := range calculableFields {
		if slices.Contains(enabledParameters, initialFieldName) {
			calculated, err := calculate(setupConfig, enabledParameters)
			if err != nil {
				return err
			}
			enabledParameters = append(enabledParameters, calculated...)
		}
	}

	for _, field := range requiredFields {
		if !slices.Contains(enabledParameters, field) {
			errs = append(errs, fmt.Errorf("field '%s' not found", field))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	units, conflict := checkUnits(config.OutputUnits)
	if len(conflict) > 0 {
		setupConfig._outputUnits = config.InputUnits
	} else {
		setupConfig._outputUnits = units
	}
	return nil
}

// applyPreset fills the camera fields not given in the configuration. The
// preset's sensor height only stands in for ImageHeight when no
// magnification was given.
func (setupConfig *SetupParameters) applyPreset(preset constants.CameraPreset, discovered []string) []string {
	setFloat := func(name string, field *float64, v float64) {
		if v != 0 && !slices.Contains(discovered, name) {
			*field = v
			discovered = append(discovered, name)
		}
	}
	setFloat("PixelPitch", &setupConfig.PixelPitch, preset.PixelPitch)
	setFloat("QuantumEfficiency", &setupConfig.QuantumEfficiency, preset.QuantumEfficiency)
	setFloat("FullWell", &setupConfig.FullWell, preset.FullWell)
	setFloat("NoiseCounts", &setupConfig.NoiseCounts, preset.NoiseCounts)
	if preset.BitDepth != 0 && !slices.Contains(discovered, "BitDepth") {
		setupConfig.BitDepth = preset.BitDepth
		discovered = append(discovered, "BitDepth")
	}
	if !slices.Contains(discovered, "Magnification") {
		setFloat("ImageHeight", &setupConfig.ImageHeight, preset.SensorHeight)
	}
	return discovered
}
