package server

import (
	"errors"
	"fmt"
	"net/http"

	"groundlink/pkg/log"
	"groundlink/pkg/models"
	"groundlink/pkg/seal"
	"groundlink/pkg/transfer"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func (s *Server) submitTransfer(ctx echo.Context) error {
	var body models.SubmitRequest
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "Malformed transfer request",
		})
	}

	request := newTransferRequest(body)
	id, err := s.transfers.Submit(request)
	if err != nil {
		return ctx.JSON(submitStatus(err), map[string]string{
			"error": err.Error(),
		})
	}

	return ctx.JSON(http.StatusCreated, models.SubmitResponse{ID: id})
}

// newTransferRequest fills in the optional fields of a submission.
func newTransferRequest(body models.SubmitRequest) models.TransferRequest {
	request := models.TransferRequest{
		ID:          body.ID,
		Source:      body.Source,
		Destination: body.Destination,
		Size:        body.Size,
		Priority:    body.Priority,
		Encryption:  body.Encryption,
		Checksum:    body.Checksum,
	}
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Priority == "" {
		request.Priority = models.PriorityMedium
	}
	if request.Encryption == "" {
		request.Encryption = models.SchemeAES256
	}
	if request.Checksum == "" {
		request.Checksum = seal.Checksum(fmt.Appendf(nil, "%s|%s|%s|%d|%s|%s",
			request.ID, request.Source, request.Destination, request.Size, request.Priority, request.Encryption))
	}
	return request
}

func submitStatus(err error) int {
	switch {
	case errors.Is(err, transfer.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, transfer.ErrUnhealthyStation):
		return http.StatusServiceUnavailable
	case errors.Is(err, transfer.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		log.Error().Err(err).Msg("Unexpected submit failure")
		return http.StatusInternalServerError
	}
}

func (s *Server) listTransfers(ctx echo.Context) error {
	states := s.transfers.List()

	filter := ctx.QueryParam("status")
	if filter == "" {
		return ctx.JSON(http.StatusOK, states)
	}

	var want models.Status
	if err := want.UnmarshalText([]byte(filter)); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	out := make([]models.TransferState, 0, len(states))
	for _, state := range states {
		if state.Status == want {
			out = append(out, state)
		}
	}
	return ctx.JSON(http.StatusOK, out)
}

func (s *Server) getTransfer(ctx echo.Context) error {
	state, ok := s.transfers.Status(ctx.Param("id"))
	if !ok {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "Transfer not found",
		})
	}
	return ctx.JSON(http.StatusOK, state)
}

func (s *Server) cancelTransfer(ctx echo.Context) error {
	id := ctx.Param("id")
	if _, ok := s.transfers.Status(id); !ok {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "Transfer not found",
		})
	}
	return ctx.JSON(http.StatusOK, models.CancelResponse{Cancelled: s.transfers.Cancel(id)})
}

func (s *Server) stopTransfer(ctx echo.Context) error {
	id := ctx.Param("id")
	if _, ok := s.transfers.Status(id); !ok {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "Transfer not found",
		})
	}
	return ctx.JSON(http.StatusOK, models.StopResponse{Stopped: s.transfers.Stop(id)})
}
