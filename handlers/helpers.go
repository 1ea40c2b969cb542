package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/athleon/academy-engine/models"
	"github.com/athleon/academy-engine/repositories"
	"github.com/athleon/academy-engine/services"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func idParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s parameter %q", name, raw)
	}
	return id, nil
}

type errorMapper struct {
	logger *slog.Logger
}

func (m errorMapper) response(w http.ResponseWriter, status int, message interface{}) {
	if err := writeJSON(w, status, jsonResponse{"error": message}, nil); err != nil {
		m.logger.Error("failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (m errorMapper) serverError(w http.ResponseWriter, r *http.Request, err error) {
	m.logger.ErrorContext(r.Context(), "internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	m.response(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
}

func (m errorMapper) badRequest(w http.ResponseWriter, err error) {
	m.response(w, http.StatusBadRequest, err.Error())
}

// serviceError translates service-layer sentinels into HTTP statuses.
func (m errorMapper) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, repositories.ErrTournamentNotFound),
		errors.Is(err, repositories.ErrMatchNotFound),
		errors.Is(err, repositories.ErrSnapshotNotFound),
		errors.Is(err, repositories.ErrParticipationNotFound):
		m.response(w, http.StatusNotFound, "the requested resource could not be found")

	case errors.Is(err, repositories.ErrTournamentNameConflict),
		errors.Is(err, services.ErrMatchAlreadyCompleted),
		errors.Is(err, services.ErrTournamentNotDraft),
		errors.Is(err, repositories.ErrSnapshotAlreadyWritten):
		m.response(w, http.StatusConflict, err.Error())

	case errors.Is(err, services.ErrInvalidPhaseTransition),
		errors.Is(err, services.ErrTournamentTerminal),
		errors.Is(err, services.ErrMatchesIncomplete),
		errors.Is(err, services.ErrGroupStageIncomplete),
		errors.Is(err, services.ErrNotGroupFormat),
		errors.Is(err, services.ErrTournamentNotCompleted),
		errors.Is(err, services.ErrEnrollmentEmpty),
		errors.Is(err, services.ErrEnrollmentDuplicate),
		errors.Is(err, services.ErrMatchSlotsUnfilled),
		errors.Is(err, services.ErrResultScoresRequired),
		errors.Is(err, services.ErrKnockoutDrawNotAllowed),
		errors.Is(err, services.ErrUnsupportedFormat),
		errors.Is(err, services.ErrValidation),
		errors.Is(err, models.ErrConfigGroupRequired),
		errors.Is(err, models.ErrConfigGroupInvalid),
		errors.Is(err, models.ErrConfigIndividual),
		errors.Is(err, models.ErrConfigScoringInvalid),
		errors.Is(err, models.ErrConfigRewardsInvalid),
		errors.Is(err, models.ErrConfigWeightsInvalid),
		errors.Is(err, models.ErrConfigUnknownCategory),
		errors.Is(err, models.ErrConfigUnknownVersion):
		m.response(w, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, services.ErrDistributionContended):
		// Retry later; another run holds the advisory lock.
		m.response(w, http.StatusConflict, err.Error())

	default:
		m.serverError(w, r, err)
	}
}
