package registry

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"groundlink/pkg/models"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
)

// DefaultHub is the hub station of the reference deployment.
const DefaultHub = "bangalore"

//go:embed stations.yaml
var defaultStations []byte

// Registry is the fixed, read-only table of known stations.
type Registry struct {
	hub      string
	order    []string
	stations map[string]models.Station
}

type fileConfig struct {
	Hub      string          `yaml:"hub"`
	Stations []stationRecord `yaml:"stations"`
}

type stationRecord struct {
	ID                string   `yaml:"id"`
	Name              string   `yaml:"name"`
	Validators        []string `yaml:"validators"`
	MinStake          string   `yaml:"min_stake"`
	UptimeRequirement float64  `yaml:"uptime_requirement"`
}

// New validates stations and builds a registry preserving declaration order.
// An empty hub selects DefaultHub.
func New(hub string, stations []models.Station) (*Registry, error) {
	if len(stations) == 0 {
		return nil, ErrNoStations
	}
	if hub == "" {
		hub = DefaultHub
	}

	reg := &Registry{
		hub:      hub,
		order:    make([]string, 0, len(stations)),
		stations: make(map[string]models.Station, len(stations)),
	}

	for i, station := range stations {
		if err := validateStation(station); err != nil {
			return nil, fmt.Errorf("station #%d: %w", i, err)
		}
		if _, exists := reg.stations[station.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStation, station.ID)
		}
		reg.stations[station.ID] = clone(station)
		reg.order = append(reg.order, station.ID)
	}

	if _, ok := reg.stations[hub]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHub, hub)
	}

	return reg, nil
}

func validateStation(station models.Station) error {
	switch {
	case station.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidStation)
	case station.Name == "":
		return fmt.Errorf("%w: %s has no name", ErrInvalidStation, station.ID)
	case len(station.Validators) == 0:
		return fmt.Errorf("%w: %s has no validators", ErrInvalidStation, station.ID)
	case station.UptimeRequirement < 0 || station.UptimeRequirement > 1:
		return fmt.Errorf("%w: %s uptime requirement %v outside [0,1]", ErrInvalidStation, station.ID, station.UptimeRequirement)
	}
	for _, validator := range station.Validators {
		if validator == "" {
			return fmt.Errorf("%w: %s has an empty validator id", ErrInvalidStation, station.ID)
		}
	}
	return nil
}

// Parse builds a registry from a YAML document.
func Parse(data []byte) (*Registry, error) {
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing station config: %w", err)
	}

	stations := make([]models.Station, 0, len(cfg.Stations))
	for _, rec := range cfg.Stations {
		stake := new(uint256.Int)
		if rec.MinStake != "" {
			parsed, err := uint256.FromDecimal(rec.MinStake)
			if err != nil {
				return nil, fmt.Errorf("%w: %s min_stake %q: %w", ErrInvalidStation, rec.ID, rec.MinStake, err)
			}
			stake = parsed
		}
		stations = append(stations, models.Station{
			ID:                rec.ID,
			Name:              rec.Name,
			Validators:        rec.Validators,
			MinStake:          stake,
			UptimeRequirement: rec.UptimeRequirement,
		})
	}

	return New(cfg.Hub, stations)
}

// Load reads a YAML station config from path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading station config: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded reference deployment.
func Default() *Registry {
	reg, err := Parse(defaultStations)
	if err != nil {
		panic(err)
	}
	return reg
}

// Get looks up a station by id.
func (r *Registry) Get(id string) (models.Station, bool) {
	station, ok := r.stations[id]
	if !ok {
		return models.Station{}, false
	}
	return clone(station), true
}

// clone detaches a station from the registry table. A nil stake becomes zero.
func clone(station models.Station) models.Station {
	stake := new(uint256.Int)
	if station.MinStake != nil {
		stake.Set(station.MinStake)
	}
	station.MinStake = stake
	station.Validators = slices.Clone(station.Validators)
	return station
}

// Has reports whether id is a registered station.
func (r *Registry) Has(id string) bool {
	_, ok := r.stations[id]
	return ok
}

// All returns every station in declaration order.
func (r *Registry) All() []models.Station {
	out := make([]models.Station, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, clone(r.stations[id]))
	}
	return out
}

// IDs returns the station ids in declaration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Hub returns the id of the relay station.
func (r *Registry) Hub() string {
	return r.hub
}

// Len returns the number of stations.
func (r *Registry) Len() int {
	return len(r.order)
}
