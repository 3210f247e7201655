package constants

// CameraPreset fields left at zero are not known for the sensor and must be
// given in the configuration.
type CameraPreset struct {
	Name              string
	SensorHeight      float64 // [m], negative: inverted image
	PixelPitch        float64 // [m]
	QuantumEfficiency float64
	FullWell          float64 // [counts]
	NoiseCounts       float64 // [ADC counts]
	BitDepth          int
}

var Hamamatsu = CameraPreset{
	Name:              "Hamamatsu",
	SensorHeight:      -13e-3,
	PixelPitch:        6.5e-6,
	QuantumEfficiency: 0.6,
	FullWell:          30e3,
	NoiseCounts:       40,
	BitDepth:          16,
}

var GigE = CameraPreset{
	Name:              "GigE",
	SensorHeight:      -5.27e-3,
	QuantumEfficiency: 0.5,
}

var Presets = map[string]CameraPreset{
	Hamamatsu.Name: Hamamatsu,
	GigE.Name:      GigE,
}
