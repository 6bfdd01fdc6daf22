package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/freight-mileage-service/internal/domain"
)

const maxBodyBytes = 1 << 20

type api struct {
	resolver     LaneResolver
	batch        BatchResolver
	maxBatch     int
	batchTimeout time.Duration
	validate     *validator.Validate
	logger       *slog.Logger
}

func newAPI(resolver LaneResolver, batch BatchResolver, maxBatch int, batchTimeout time.Duration, logger *slog.Logger) *api {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &api{
		resolver:     resolver,
		batch:        batch,
		maxBatch:     maxBatch,
		batchTimeout: batchTimeout,
		validate:     v,
		logger:       logger,
	}
}

type laneInput struct {
	Origin      string   `json:"origin" validate:"required"`
	Destination string   `json:"destination" validate:"required"`
	Equipment   string   `json:"equipment,omitempty" validate:"omitempty,max=64"`
	Hazmat      bool     `json:"hazmat,omitempty"`
	Stops       []string `json:"stops,omitempty" validate:"omitempty,max=25,dive,required"`
}

func (l *laneInput) normalize() {
	l.Origin = strings.TrimSpace(l.Origin)
	l.Destination = strings.TrimSpace(l.Destination)
	l.Equipment = strings.TrimSpace(l.Equipment)
	for i := range l.Stops {
		l.Stops[i] = strings.TrimSpace(l.Stops[i])
	}
}

func (l laneInput) lane() domain.Lane {
	return domain.Lane{
		Origin:      l.Origin,
		Destination: l.Destination,
		Options: domain.ResolutionOptions{
			Equipment: l.Equipment,
			Hazmat:    l.Hazmat,
			Stops:     l.Stops,
		},
	}
}

type batchRequest struct {
	Lanes []laneInput `json:"lanes" validate:"required,min=1,dive"`
}

type batchResponse struct {
	Results []domain.DistanceResult `json:"results"`
}

type errorResponse struct {
	Error    string            `json:"error"`
	Attempts []attemptResponse `json:"attempts,omitempty"`
}

type attemptResponse struct {
	Provider domain.ProviderID `json:"provider"`
	Error    string            `json:"error"`
}

func (a *api) handleDistance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := laneInput{
		Origin:      q.Get("origin"),
		Destination: q.Get("destination"),
		Equipment:   q.Get("equipment"),
		Stops:       q["stop"],
	}
	if h := q.Get("hazmat"); h != "" {
		hazmat, err := strconv.ParseBool(h)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("hazmat must be a boolean, got %q", h))
			return
		}
		in.Hazmat = hazmat
	}
	in.normalize()
	if err := a.validate.Struct(in); err != nil {
		writeError(w, http.StatusBadRequest, describe(err))
		return
	}

	result, err := a.resolver.Resolve(r.Context(), in.lane())
	if err != nil {
		a.writeResolveError(w, in, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, result)
}

func (a *api) handleStatus(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, a.resolver.Status())
}

func (a *api) handleBatch(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBatch(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Lanes) > a.maxBatch {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch of %d lanes exceeds the limit of %d", len(req.Lanes), a.maxBatch))
		return
	}
	for i := range req.Lanes {
		req.Lanes[i].normalize()
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, describe(err))
		return
	}

	lanes := make([]domain.Lane, len(req.Lanes))
	for i, l := range req.Lanes {
		lanes[i] = l.lane()
	}

	// Lanes still pending at the deadline come back as the error placeholder,
	// so the response is written before the server's write timeout.
	ctx, cancel := context.WithTimeout(r.Context(), a.batchTimeout)
	defer cancel()

	results := a.batch.ResolveBatch(ctx, lanes)
	sharedobs.WriteJSON(w, http.StatusOK, batchResponse{Results: results})
}

// decodeBatch accepts {"lanes": [...]} or a bare array of lanes.
func decodeBatch(body io.Reader) (batchRequest, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return batchRequest{}, fmt.Errorf("read body: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return batchRequest{}, errors.New("request body is empty")
	}

	var req batchRequest
	if raw[0] == '[' {
		err = json.Unmarshal(raw, &req.Lanes)
	} else {
		err = json.Unmarshal(raw, &req)
	}
	if err != nil {
		return batchRequest{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	return req, nil
}

func (a *api) writeResolveError(w http.ResponseWriter, in laneInput, err error) {
	var all *domain.AllProvidersFailedError
	if !errors.As(err, &all) {
		a.logger.Error("unexpected resolve error", "origin", in.Origin, "destination", in.Destination, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.logger.Warn("lane unresolved", "origin", in.Origin, "destination", in.Destination, "error", err)
	resp := errorResponse{Error: "all providers failed"}
	for _, at := range all.Attempts {
		resp.Attempts = append(resp.Attempts, attemptResponse{Provider: at.Provider, Error: at.Err.Error()})
	}
	sharedobs.WriteJSON(w, http.StatusBadGateway, resp)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, errorResponse{Error: msg})
}

// describe flattens validation errors into "lanes[0].origin is required".
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must have at least %s entries", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
