package config

var Presets = map[string]map[string]*Config{
	"nbody": {
		"figure-eight": {
			System: "nbody", Integrator: "rk4", Dt: 0.005, StepsPerFrame: 5,
			Bodies: []BodyConfig{
				{Name: "alpha", Color: "#ff6b6b", Mass: 1.0,
					Position: [3]float64{0.97000436, -0.24308753, 0},
					Velocity: [3]float64{0.466203685, 0.43236573, 0}},
				{Name: "beta", Color: "#4ecdc4", Mass: 1.0,
					Position: [3]float64{-0.97000436, 0.24308753, 0},
					Velocity: [3]float64{0.466203685, 0.43236573, 0}},
				{Name: "gamma", Color: "#ffe66d", Mass: 1.0,
					Velocity: [3]float64{-0.93240737, -0.86473146, 0}},
			},
		},
		"binary": {
			System: "nbody", Integrator: "rk4", Dt: 0.001, StepsPerFrame: 10,
			Bodies: []BodyConfig{
				{Name: "primary", Color: "#ffd166", Mass: 3.0,
					Position: [3]float64{0.5, 0, 0}, Velocity: [3]float64{0, 0.6, 0}},
				{Name: "companion", Color: "#118ab2", Mass: 1.0,
					Position: [3]float64{-1.5, 0, 0}, Velocity: [3]float64{0, -1.8, 0}},
			},
		},
		"collision-course": {
			System: "nbody", Integrator: "rk4", Dt: 0.001, StepsPerFrame: 10,
			Bodies: []BodyConfig{
				{Name: "left", Color: "#ef476f", Mass: 2.0,
					Position: [3]float64{-1, 0, 0}, Velocity: [3]float64{0.5, 0, 0}},
				{Name: "right", Color: "#06d6a0", Mass: 1.0,
					Position: [3]float64{1, 0, 0}, Velocity: [3]float64{-0.5, 0, 0}},
			},
		},
	},
	"double-pendulum": {
		"gentle": {
			System: "double-pendulum", Integrator: "rk4", Dt: 0.001, StepsPerFrame: 10,
			InitState: []float64{0.3, 0, 0.3, 0},
		},
		"chaos": {
			System: "double-pendulum", Integrator: "rk4", Dt: 0.001, StepsPerFrame: 10,
			InitState: []float64{3.0, 0, 3.0, 0},
		},
	},
	"lorenz": {
		"classic": {
			System: "lorenz", Integrator: "rk4", Dt: 0.005, StepsPerFrame: 4,
			InitState: []float64{1, 1, 1},
			Params:    map[string]float64{"sigma": 10, "rho": 28, "beta": 8.0 / 3.0},
		},
		"pre-chaotic": {
			System: "lorenz", Integrator: "rk4", Dt: 0.005, StepsPerFrame: 4,
			InitState: []float64{1, 1, 1},
			Params:    map[string]float64{"sigma": 10, "rho": 14, "beta": 8.0 / 3.0},
		},
	},
	"rossler": {
		"classic": {
			System: "rossler", Integrator: "rk4", Dt: 0.01, StepsPerFrame: 4,
			InitState: []float64{1, 1, 1},
			Params:    map[string]float64{"a": 0.2, "b": 0.2, "c": 5.7},
		},
	},
	"waterwheel": {
		"chaotic": {
			System: "waterwheel", Integrator: "rk4", Dt: 0.01, StepsPerFrame: 5,
			Params: map[string]float64{"Q": 2.5, "K": 0.1, "nu": 1.0},
		},
		"steady": {
			System: "waterwheel", Integrator: "rk4", Dt: 0.01, StepsPerFrame: 5,
			Params: map[string]float64{"Q": 0.5, "K": 0.2, "nu": 2.0},
		},
	},
}

func GetPreset(system, preset string) *Config {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	cfg, ok := systemPresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(system string) []string {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(systemPresets))
	for name := range systemPresets {
		names = append(names, name)
	}
	return names
}
