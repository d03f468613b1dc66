package config

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/fluxdrive/internal/control"
	"github.com/san-kum/fluxdrive/internal/motor"
	"github.com/san-kum/fluxdrive/internal/plant"
)

var Presets = map[string]func() *Config{
	"pmsm_2kw": DefaultConfig,
	"pmsm_2kw_sensored": func() *Config {
		c := DefaultConfig()
		c.Preset = "pmsm_2kw_sensored"
		c.Control.Sensorless = false
		return c
	},
	"spm_1kw": func() *Config {
		c := DefaultConfig()
		c.Preset = "spm_1kw"
		m := motor.Parameters{Rs: 1.2, Ld: 0.012, Lq: 0.012, PsiF: 0.2, PolePair: 4, J: 0.004}
		c.Motor = m
		c.Control.Motor = m
		c.Control.Limits = control.ReferenceLimits{
			Ku:         0.9,
			MaxTorque:  6,
			MaxCurrent: 1.5 * math.Sqrt2 * 4,
		}
		c.Plant.DCVoltage = 310
		c.Plant.Load = []plant.LoadStep{{Time: 0.6, Torque: 3}}
		c.SpeedRef = []control.Step{{Time: 0.1, Speed: 2 * math.Pi * 100}}
		c.Sim.Duration = 1.0
		return c
	},
	"syrm_7kw": func() *Config {
		c := DefaultConfig()
		c.Preset = "syrm_7kw"
		m := motor.Parameters{Rs: 0.54, Ld: 0.090, Lq: 0.015, PsiF: 0, PolePair: 2, J: 0.015}
		c.Motor = m
		c.Control.Motor = m
		c.Control.Sensorless = false
		c.Control.PsiSMin = 0.5
		c.Control.Limits = control.ReferenceLimits{
			PsiSMin:    0.5,
			Ku:         0.9,
			MaxTorque:  1.5 * 20,
			MaxCurrent: 1.5 * math.Sqrt2 * 15,
		}
		c.Plant.Load = []plant.LoadStep{{Time: 0.8, Torque: 20}}
		c.SpeedRef = []control.Step{{Time: 0.2, Speed: 2 * math.Pi * 40}}
		return c
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

// LookupPreset is GetPreset with an error for unknown names.
func LookupPreset(name string) (*Config, error) {
	c := GetPreset(name)
	if c == nil {
		return nil, fmt.Errorf("%w: unknown preset %q (have %v)", ErrInvalid, name, ListPresets())
	}
	return c, nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
