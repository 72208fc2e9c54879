package main

import (
	"github.com/kelseyhightower/envconfig"
)

// Config is the configuration for a precision run. Environment variables
// with the GGMAP_ prefix set the defaults; flags override them.
type Config struct {
	Zoom         float64 `envconfig:"ZOOM"`
	CenterX      float64 `envconfig:"CENTER_X"`
	CenterY      float64 `envconfig:"CENTER_Y"`
	Width        int     `envconfig:"WIDTH"`
	Height       int     `envconfig:"HEIGHT"`
	Output       string  `envconfig:"OUTPUT"`
	NaiveOutput  string  `envconfig:"NAIVE_OUTPUT"`
	GeoJSON      string  `envconfig:"GEOJSON"`
	NameProperty string  `envconfig:"NAME_PROPERTY"`
	Demo         bool    `envconfig:"DEMO"`
	Fit          bool    `envconfig:"FIT"`
	Workers      int     `envconfig:"WORKERS"`
	Fast         bool    `envconfig:"FAST"`
	Verbose      bool    `envconfig:"VERBOSE"`
}

// Get returns the defaults overridden by the environment.
func Get() (*Config, error) {
	cfg := &Config{
		Zoom:         23,
		CenterX:      1113195,
		CenterY:      6446275,
		Width:        256,
		Height:       256,
		Output:       "compensated.png",
		NaiveOutput:  "naive.png",
		NameProperty: "name",
		Workers:      1,
	}
	return cfg, envconfig.Process("GGMAP", cfg)
}
