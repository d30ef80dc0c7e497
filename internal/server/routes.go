package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shineum/sealed-relay/internal/counter"
	"github.com/shineum/sealed-relay/internal/identifier"
	"github.com/shineum/sealed-relay/internal/mail"
	"github.com/shineum/sealed-relay/internal/validate"
)

func handleHealthcheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func handleIdentifier(c *gin.Context) {
	c.JSON(http.StatusOK, identifier.New())
}

func (s *Server) handleReceive(c *gin.Context) {
	letter, err := mail.DecodeLetter(c.Request.Body)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.metrics.letters.WithLabelValues("malformed", "").Inc()
		respondError(c, status, err)
		return
	}

	receipt, err := s.service.Receive(c.Request.Context(), letter)
	if err != nil {
		var rejection *validate.Rejection
		if errors.As(err, &rejection) {
			s.metrics.letters.WithLabelValues("rejected", rejection.Reason.String()).Inc()
			c.JSON(http.StatusForbidden, gin.H{
				"status": "error",
				"reason": rejection.Reason.String(),
				"error":  rejection.Error(),
			})
			return
		}
		s.metrics.letters.WithLabelValues("error", "").Inc()
		respondError(c, statusFor(err), err)
		return
	}

	s.metrics.letters.WithLabelValues("accepted", "").Inc()
	c.JSON(http.StatusOK, receipt)
}

func (s *Server) handleSample(c *gin.Context) {
	letter, err := s.service.Sample(c.Request.Context())
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, letter)
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.service.Stats(c.Request.Context())
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// statusFor maps service errors that are not rejections to a status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, counter.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"request_id", c.GetString(requestIDHeader),
			"error", err,
		)
	}
	c.JSON(status, gin.H{"status": "error", "error": err.Error()})
}
