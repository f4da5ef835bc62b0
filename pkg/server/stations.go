package server

import (
	"net/http"

	"groundlink/pkg/models"
	"groundlink/pkg/transfer"

	"github.com/labstack/echo/v4"
)

func (s *Server) listStations(ctx echo.Context) error {
	hub := s.stations.Hub()
	all := s.stations.All()

	out := make([]models.StationInfo, 0, len(all))
	for _, station := range all {
		out = append(out, models.NewStationInfo(station, hub))
	}
	return ctx.JSON(http.StatusOK, out)
}

func (s *Server) getStation(ctx echo.Context) error {
	station, ok := s.stations.Get(ctx.Param("id"))
	if !ok {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "Station not found",
		})
	}
	return ctx.JSON(http.StatusOK, models.NewStationInfo(station, s.stations.Hub()))
}

func (s *Server) getStationHealth(ctx echo.Context) error {
	id := ctx.Param("id")
	if !s.stations.Has(id) {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "Station not found",
		})
	}

	snapshot, ok := s.health.Snapshot(id)
	if !ok {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "Health monitor has not started",
		})
	}
	return ctx.JSON(http.StatusOK, models.HealthReport{
		HealthSnapshot: snapshot,
		Healthy:        s.health.IsHealthy(id),
	})
}

func (s *Server) listHealth(ctx echo.Context) error {
	snapshots := s.health.Snapshots()

	out := make([]models.HealthReport, 0, len(snapshots))
	for _, snapshot := range snapshots {
		out = append(out, models.HealthReport{
			HealthSnapshot: snapshot,
			Healthy:        s.health.IsHealthy(snapshot.StationID),
		})
	}
	return ctx.JSON(http.StatusOK, out)
}

func (s *Server) getRoute(ctx echo.Context) error {
	from, to := ctx.QueryParam("from"), ctx.QueryParam("to")
	if from == "" || to == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Both from and to are required",
		})
	}
	for _, id := range []string{from, to} {
		if !s.stations.Has(id) {
			return ctx.JSON(http.StatusNotFound, map[string]string{
				"error": "Station not found: " + id,
			})
		}
	}

	hub := s.stations.Hub()
	return ctx.JSON(http.StatusOK, models.RouteInfo{
		Source:      from,
		Destination: to,
		Hub:         hub,
		Path:        transfer.Route(from, to, hub),
	})
}
