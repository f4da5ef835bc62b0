package registry

import (
	"os"
	"path/filepath"
	"testing"

	"groundlink/pkg/models"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/suite"
)

// RegistryTestSuite tests station registry construction and lookups.
type RegistryTestSuite struct {
	suite.Suite
}

func station(id string) models.Station {
	return models.Station{
		ID:                id,
		Name:              id + " station",
		Validators:        []string{"NodeID-" + id},
		MinStake:          uint256.NewInt(1000),
		UptimeRequirement: 0.8,
	}
}

func (s *RegistryTestSuite) TestDefaultDeployment() {
	reg := Default()

	s.Equal("bangalore", reg.Hub())
	s.Equal([]string{"bangalore", "chennai", "delhi", "mumbai", "sriharikota"}, reg.IDs())

	hub, ok := reg.Get("bangalore")
	s.Require().True(ok)
	s.Equal("Bangalore Mission Control", hub.Name)
	s.Len(hub.Validators, 3)
	s.Equal("2000000000000000000000", hub.MinStake.Dec())
}

func (s *RegistryTestSuite) TestAllKeepsDeclarationOrder() {
	reg, err := New("hub", []models.Station{station("zeta"), station("hub"), station("alpha")})
	s.Require().NoError(err)

	all := reg.All()
	s.Require().Len(all, 3)
	s.Equal("zeta", all[0].ID)
	s.Equal("hub", all[1].ID)
	s.Equal("alpha", all[2].ID)
	s.Equal(3, reg.Len())
}

func (s *RegistryTestSuite) TestGetUnknown() {
	reg := Default()

	_, ok := reg.Get("houston")
	s.False(ok)
	s.False(reg.Has("houston"))
	s.True(reg.Has("delhi"))
}

func (s *RegistryTestSuite) TestValidation() {
	noValidators := station("a")
	noValidators.Validators = nil
	badUptime := station("a")
	badUptime.UptimeRequirement = 1.5
	noName := station("a")
	noName.Name = ""

	cases := []struct {
		name     string
		hub      string
		stations []models.Station
		err      error
	}{
		{"empty", "a", nil, ErrNoStations},
		{"empty id", "a", []models.Station{station("")}, ErrInvalidStation},
		{"no name", "a", []models.Station{noName}, ErrInvalidStation},
		{"no validators", "a", []models.Station{noValidators}, ErrInvalidStation},
		{"uptime out of range", "a", []models.Station{badUptime}, ErrInvalidStation},
		{"duplicate", "a", []models.Station{station("a"), station("a")}, ErrDuplicateStation},
		{"unknown hub", "b", []models.Station{station("a")}, ErrUnknownHub},
	}

	for _, tc := range cases {
		_, err := New(tc.hub, tc.stations)
		s.ErrorIs(err, tc.err, tc.name)
	}
}

func (s *RegistryTestSuite) TestStationsAreCopies() {
	reg := Default()

	got, ok := reg.Get("chennai")
	s.Require().True(ok)
	got.Validators[0] = "mutated"
	got.MinStake.SetUint64(42)

	all := reg.All()
	all[1].Validators[0] = "mutated"
	all[1].MinStake.SetUint64(42)

	again, _ := reg.Get("chennai")
	s.NotEqual("mutated", again.Validators[0])
	s.NotEqual(uint64(42), again.MinStake.Uint64())
}

func (s *RegistryTestSuite) TestInputIsNotRetained() {
	input := station("bangalore")

	reg, err := New("", []models.Station{input})
	s.Require().NoError(err)

	input.Validators[0] = "mutated"
	input.MinStake.SetUint64(7)

	got, _ := reg.Get("bangalore")
	s.Equal("NodeID-bangalore", got.Validators[0])
	s.Equal(uint64(1000), got.MinStake.Uint64())
}

func (s *RegistryTestSuite) TestNilStakeDefaultsToZero() {
	st := station("bangalore")
	st.MinStake = nil

	reg, err := New("", []models.Station{st})
	s.Require().NoError(err)

	got, _ := reg.Get("bangalore")
	s.Require().NotNil(got.MinStake)
	s.True(got.MinStake.IsZero())
}

func (s *RegistryTestSuite) TestLoadFromFile() {
	path := filepath.Join(s.T().TempDir(), "stations.yaml")
	config := `
hub: moon-relay
stations:
  - id: moon-relay
    name: Lunar Relay
    validators: [v1, v2]
    min_stake: "115792089237316195423570985008687907853269984665640564039457584007913129639935"
    uptime_requirement: 0.99
  - id: goldstone
    name: Goldstone
    validators: [v3]
`
	s.Require().NoError(os.WriteFile(path, []byte(config), 0o600))

	reg, err := Load(path)
	s.Require().NoError(err)
	s.Equal("moon-relay", reg.Hub())

	relay, ok := reg.Get("moon-relay")
	s.Require().True(ok)
	s.Equal("115792089237316195423570985008687907853269984665640564039457584007913129639935", relay.MinStake.Dec())
}

func (s *RegistryTestSuite) TestParseRejectsBadStake() {
	_, err := Parse([]byte(`
hub: a
stations:
  - id: a
    name: A
    validators: [v]
    min_stake: "lots"
`))
	s.ErrorIs(err, ErrInvalidStation)
}

func (s *RegistryTestSuite) TestLoadMissingFile() {
	_, err := Load(filepath.Join(s.T().TempDir(), "missing.yaml"))
	s.Error(err)
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}
