// Package simulator emulates an industrial edge gateway that serves synthetic
// machine readings over HTTP, and provides a client that reads them back.
package simulator

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is the normal operating point of one simulated machine.
type Profile struct {
	MachineID   string  `yaml:"machine_id"`
	Temperature float64 `yaml:"temperature"`
	Vibration   float64 `yaml:"vibration"`
	RPM         float64 `yaml:"rpm"`
}

type profileFile struct {
	Machines []Profile `yaml:"machines"`
}

// DefaultProfiles returns the five stock machines.
func DefaultProfiles() []Profile {
	return []Profile{
		{MachineID: "MACHINE_001", Temperature: 70, Vibration: 0.5, RPM: 1000},  // standard
		{MachineID: "MACHINE_002", Temperature: 65, Vibration: 0.4, RPM: 1200},  // high-speed, cooler
		{MachineID: "MACHINE_003", Temperature: 75, Vibration: 0.6, RPM: 800},   // heavy duty, hotter
		{MachineID: "MACHINE_004", Temperature: 72, Vibration: 0.45, RPM: 1100}, // medium duty
		{MachineID: "MACHINE_005", Temperature: 68, Vibration: 0.55, RPM: 950},  // standard variant
	}
}

// LoadProfiles reads machine profiles from a YAML file of the form
//
//	machines:
//	  - machine_id: PRESS_01
//	    temperature: 80
//	    vibration: 0.7
//	    rpm: 600
//
// An empty path returns DefaultProfiles.
func LoadProfiles(path string) ([]Profile, error) {
	if path == "" {
		return DefaultProfiles(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	return ParseProfiles(data)
}

// ParseProfiles decodes and validates a YAML profile document.
func ParseProfiles(data []byte) ([]Profile, error) {
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	if err := validateProfiles(f.Machines); err != nil {
		return nil, err
	}
	return f.Machines, nil
}

func validateProfiles(profiles []Profile) error {
	if len(profiles) == 0 {
		return errors.New("at least one machine profile is required")
	}
	seen := make(map[string]bool, len(profiles))
	for i, p := range profiles {
		if p.MachineID == "" {
			return fmt.Errorf("profile %d: machine_id is required", i)
		}
		if seen[p.MachineID] {
			return fmt.Errorf("profile %d: duplicate machine_id %s", i, p.MachineID)
		}
		seen[p.MachineID] = true
	}
	return nil
}
