package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"votemaster-backend/service"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse is the uniform envelope for writes with no body.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// respondError maps service errors onto HTTP statuses. Anything unmapped is
// a 500 with a generic message; internal details stay in the server log.
func respondError(ctx *gin.Context, err error) {
	var validationErr *service.ValidationError
	var notStartedErr *service.NotStartedError

	switch {
	case errors.As(err, &validationErr):
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: validationErr.Message})
	case errors.As(err, &notStartedErr):
		ctx.JSON(http.StatusForbidden, ErrorResponse{Error: notStartedErr.Error()})
	case errors.Is(err, service.ErrPollNotFound),
		errors.Is(err, service.ErrLeaderNotFound):
		ctx.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrOptionNotFound):
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrAlreadyVoted),
		errors.Is(err, service.ErrPollEnded):
		ctx.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrSlugTaken),
		errors.Is(err, service.ErrMobileTaken):
		ctx.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		ctx.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
	default:
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
