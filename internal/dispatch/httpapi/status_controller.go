package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"lumen-remote/internal/dispatch/domain"
	"lumen-remote/internal/dispatch/httpapi/internal"
	"lumen-remote/internal/dispatch/usecases"
	"lumen-remote/internal/infra/clock"
	"lumen-remote/internal/infra/httpserver"

	"go.opentelemetry.io/otel/attribute"
)

const (
	invalidIntentErrMessage = "invalid intent"
	stateUnknownErrMessage  = "device state unknown"
)

type StatsSource interface {
	Stats() usecases.Stats
}

type IndicatorSource interface {
	Indicator() usecases.Indicator
}

func NewStatusController(
	stats StatsSource,
	indicator IndicatorSource,
	states usecases.DeviceStateCache,
	poster usecases.IntentPoster,
	clk clock.Clock,
) *StatusController {
	return &StatusController{
		stats:     stats,
		indicator: indicator,
		states:    states,
		poster:    poster,
		clock:     clk,
	}
}

var _ httpserver.Controller = &StatusController{}

// StatusController exposes the pipeline's counters and lets a developer
// inject intents without the touch UI.
type StatusController struct {
	stats     StatsSource
	indicator IndicatorSource
	states    usecases.DeviceStateCache
	poster    usecases.IntentPoster
	clock     clock.Clock
}

func (c *StatusController) AddRoutes(router *http.ServeMux) {
	router.Handle("GET /v1/stats", c.getStats())
	router.Handle("GET /v1/state", c.getState())
	router.Handle("POST /v1/intents", c.postIntent())
}

func (c *StatusController) getStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := internal.StatsResponse{Stats: c.stats.Stats()}
		if c.indicator != nil {
			response.Indicator = c.indicator.Indicator()
		}
		httpserver.ReplyJSONResponse(w, http.StatusOK, response)
	}
}

func (c *StatusController) getState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, ok := c.states.GetState(r.Context())
		if !ok {
			httpserver.ReplyWithError(w, http.StatusNotFound, stateUnknownErrMessage)
			return
		}
		httpserver.ReplyJSONResponse(w, http.StatusOK, internal.ToDeviceStateResponse(state, c.clock.Now()))
	}
}

func (c *StatusController) postIntent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body internal.IntentRequest
		if err := httpserver.DecodeJSONBody(r, &body); err != nil {
			httpserver.ReplyWithError(w, http.StatusBadRequest, invalidIntentErrMessage)
			return
		}

		intent, err := body.ToDomain()
		if err != nil {
			slog.Debug("rejecting intent", slog.String("kind", body.Kind), slog.Any("error", err))
			message := invalidIntentErrMessage
			if errors.Is(err, domain.ErrUnknownKind) || errors.Is(err, domain.ErrInvalidValue) {
				message = err.Error()
			}
			httpserver.ReplyWithError(w, http.StatusBadRequest, message)
			return
		}

		span := httpserver.GetSpanFromContext(r)
		span.SetAttributes(attribute.String("intent.kind", string(intent.Kind)))

		if !c.poster.Post(intent, 0) {
			httpserver.ReplyWithError(w, http.StatusTooManyRequests, domain.ErrMailboxOverflow.Error())
			return
		}

		httpserver.ReplyJSONResponse(w, http.StatusAccepted, internal.IntentResponse{Accepted: true, Kind: body.Kind})
	}
}
