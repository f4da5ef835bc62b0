package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"groundlink/pkg/health"
	"groundlink/pkg/models"
	"groundlink/pkg/registry"
	"groundlink/pkg/seal"
	"groundlink/pkg/server"
	"groundlink/pkg/transfer"

	"github.com/stretchr/testify/suite"
)

// GroundctlTestSuite drives the CLI against an in-process daemon
type GroundctlTestSuite struct {
	suite.Suite
	monitor *health.Monitor
	manager *transfer.Manager
	httpSrv *httptest.Server
}

func (s *GroundctlTestSuite) SetupTest() {
	reg := registry.Default()
	s.monitor = health.NewMonitor(reg, health.NewRandomWalk(3), time.Hour, 0)
	s.monitor.Start()

	sealer, err := seal.NewRandom()
	s.Require().NoError(err)

	s.manager = transfer.NewManager(reg, s.monitor, transfer.NewSimulatedLink(sealer, 0, 3), nil,
		transfer.Config{StepDelay: -1, StepsPerHop: 2})
	s.httpSrv = httptest.NewServer(server.NewServer(reg, s.monitor, s.manager, time.Second).Handler())
}

func (s *GroundctlTestSuite) TearDownTest() {
	s.httpSrv.Close()
	s.manager.Shutdown()
	s.monitor.Stop()
}

func (s *GroundctlTestSuite) groundctl(args ...string) (string, error) {
	out := &bytes.Buffer{}
	err := run(context.Background(), append([]string{"-server", s.httpSrv.URL}, args...), out)
	return out.String(), err
}

func (s *GroundctlTestSuite) TestStations() {
	out, err := s.groundctl("stations")
	s.Require().NoError(err)
	s.Contains(out, "bangalore")
	s.Contains(out, "Bangalore Mission Control")
	s.Contains(out, "2000000000000000000000")
}

func (s *GroundctlTestSuite) TestHealth() {
	out, err := s.groundctl("health")
	s.Require().NoError(err)
	s.Equal(6, strings.Count(out, "\n"))

	out, err = s.groundctl("health", "chennai")
	s.Require().NoError(err)
	s.Contains(out, "chennai")
	s.Contains(out, "true")

	_, err = s.groundctl("health", "houston")
	s.Error(err)
}

func (s *GroundctlTestSuite) TestRoute() {
	out, err := s.groundctl("route", "chennai", "delhi")
	s.Require().NoError(err)
	s.Equal("chennai -> bangalore -> delhi\n", out)

	_, err = s.groundctl("route", "chennai")
	s.ErrorIs(err, errUsage)
}

func (s *GroundctlTestSuite) TestSubmitCancelAndList() {
	out, err := s.groundctl("submit", "-id", "cli-1", "-from", "mumbai", "-to", "delhi", "-size", "2GiB", "-priority", "critical")
	s.Require().NoError(err)
	s.Equal("queued cli-1 (2.0 GiB, mumbai -> delhi)\n", out)

	state, ok := s.manager.Status("cli-1")
	s.Require().True(ok)
	s.Equal(int64(2<<30), state.Request.Size)
	s.Equal(models.PriorityCritical, state.Request.Priority)

	out, err = s.groundctl("status", "cli-1")
	s.Require().NoError(err)
	s.Contains(out, "pending")
	s.Contains(out, "mumbai -> bangalore -> delhi")

	out, err = s.groundctl("cancel", "cli-1")
	s.Require().NoError(err)
	s.Equal("cancelled cli-1\n", out)

	_, err = s.groundctl("cancel", "cli-1")
	s.ErrorContains(err, "not pending")

	_, err = s.groundctl("stop", "cli-1")
	s.ErrorContains(err, "not processing")

	out, err = s.groundctl("list", "-status", "cancelled")
	s.Require().NoError(err)
	s.Contains(out, "cli-1")
	s.Contains(out, "2.0 GiB")
}

func (s *GroundctlTestSuite) TestSubmitValidation() {
	_, err := s.groundctl("submit", "-from", "mumbai")
	s.ErrorIs(err, errUsage)

	_, err = s.groundctl("submit", "-from", "mumbai", "-to", "delhi", "-size", "lots")
	s.ErrorContains(err, "invalid size")

	_, err = s.groundctl("submit", "-from", "mumbai", "-to", "delhi", "-size", "200GiB")
	s.ErrorContains(err, "size out of range")
}

func (s *GroundctlTestSuite) TestWatchUntilCompleted() {
	s.manager.Start(context.Background())

	_, err := s.groundctl("submit", "-id", "w-1", "-from", "chennai", "-to", "bangalore", "-size", "1MiB")
	s.Require().NoError(err)

	out, err := s.groundctl("watch", "-interval", "5ms", "w-1")
	s.Require().NoError(err)
	s.Contains(out, "completed")
	s.Contains(out, "100.0%")
}

func (s *GroundctlTestSuite) TestUsageErrors() {
	_, err := s.groundctl()
	s.ErrorIs(err, errUsage)

	_, err = s.groundctl("launch")
	s.ErrorIs(err, errUsage)

	_, err = s.groundctl("status")
	s.ErrorIs(err, errUsage)

	usageOut := &bytes.Buffer{}
	usage(usageOut)
	for _, cmd := range commands {
		s.Contains(usageOut.String(), cmd.name)
	}
}

func (s *GroundctlTestSuite) TestProgressLine() {
	line := progressLine(models.TransferState{
		Status:           models.StatusProcessing,
		Progress:         75,
		Path:             []string{"a", "hub", "b"},
		Hop:              1,
		HopProgress:      50,
		Current:          "hub",
		Next:             "b",
		EstimatedSeconds: 3,
	})
	s.Contains(line, "hop 2/2 hub -> b")
	s.Contains(line, "eta 3s")

	line = progressLine(models.TransferState{Status: models.StatusFailed, Progress: 20, Error: "link dropped step"})
	s.Contains(line, "link dropped step")
}

func TestGroundctlSuite(t *testing.T) {
	suite.Run(t, new(GroundctlTestSuite))
}
