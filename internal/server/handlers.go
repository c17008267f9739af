package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/agbru/matcalc/internal/cli"
	"github.com/agbru/matcalc/internal/logging"
	"github.com/agbru/matcalc/internal/matrix"
	"github.com/agbru/matcalc/internal/multiplier"
	"github.com/agbru/matcalc/internal/service"
	"github.com/agbru/matcalc/pkg/models"
)

// DefaultAlgorithm is used by /multiply when algo is omitted.
const DefaultAlgorithm = "strassen"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSONResponse(w, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Unix(),
	})
}

// handleAlgorithms lists the registered strategy names.
func (s *Server) handleAlgorithms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSONResponse(w, http.StatusOK, models.AlgorithmsResponse{Algorithms: s.factory.List()})
}

// handleMultiply multiplies two random n x n matrices and returns the
// timing and checksums of the product.
//
//	GET /multiply?n=<size>&algo=<strategy>&seed=<seed>
func (s *Server) handleMultiply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	n, algo, seed, err := parseMultiplyParams(r, s.cfg.Seed)
	if err != nil {
		var perr MultiplyParseError
		if errors.As(err, &perr) {
			s.writeErrorResponse(w, perr.StatusCode, perr.Message)
		} else {
			s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	if s.securityConfig.MaxSize > 0 && n > s.securityConfig.MaxSize {
		s.writeErrorResponse(w, http.StatusBadRequest,
			fmt.Sprintf("Value of 'n' exceeds maximum allowed (%d).", s.securityConfig.MaxSize))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeouts.RequestTimeout)
	defer cancel()

	start := time.Now()
	product, err := s.service.Multiply(ctx, algo, n, seed)
	took := time.Since(start)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("multiplication failed", err, logging.String("algorithm", algo), logging.Int("n", n))
		}
		s.writeErrorResponse(w, status, err.Error())
		return
	}

	s.writeJSONResponse(w, http.StatusOK, buildMultiplyResponse(algo, n, seed, product, took))
}

// parseMultiplyParams reads n (required, >= 1), algo (default
// DefaultAlgorithm) and seed (default defaultSeed).
func parseMultiplyParams(r *http.Request, defaultSeed uint64) (n int, algo string, seed uint64, err error) {
	q := r.URL.Query()
	nStr := q.Get("n")
	if nStr == "" {
		return 0, "", 0, MultiplyParseError{Message: "Missing 'n' parameter", StatusCode: http.StatusBadRequest}
	}
	n, convErr := strconv.Atoi(nStr)
	if convErr != nil || n < 1 {
		return 0, "", 0, MultiplyParseError{Message: "Invalid 'n' parameter: must be a positive integer", StatusCode: http.StatusBadRequest}
	}

	seed = defaultSeed
	if seedStr := q.Get("seed"); seedStr != "" {
		seed, convErr = strconv.ParseUint(seedStr, 10, 64)
		if convErr != nil {
			return 0, "", 0, MultiplyParseError{Message: "Invalid 'seed' parameter: must be an unsigned integer", StatusCode: http.StatusBadRequest}
		}
	}

	algo = q.Get("algo")
	if algo == "" {
		algo = DefaultAlgorithm
	}
	return n, algo, seed, nil
}

// statusForError maps a service error to an HTTP status.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrMaxSizeExceeded),
		errors.Is(err, service.ErrInvalidSize),
		errors.Is(err, multiplier.ErrUnknownMultiplier),
		errors.Is(err, multiplier.ErrShapeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func buildMultiplyResponse(algo string, n int, seed uint64, product *matrix.Matrix, took time.Duration) models.MultiplyResponse {
	return models.MultiplyResponse{
		Algorithm:     algo,
		N:             n,
		Seed:          seed,
		DurationMicro: took.Microseconds(),
		Duration:      cli.FormatHumanDuration(took),
		Trace:         product.Trace(),
		Frobenius:     product.Frobenius(),
		NormInf:       float64(product.NormInf()),
	}
}

func (s *Server) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encoding JSON response", err)
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSONResponse(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}
