package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/dharsanguruparan/VidAI/internal/chat"
	"github.com/dharsanguruparan/VidAI/internal/media"
	"github.com/dharsanguruparan/VidAI/internal/processing"
	"github.com/dharsanguruparan/VidAI/internal/storage"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func respondError(w http.ResponseWriter, status int, msg, kind string) {
	respondJSON(w, status, errorBody{Error: msg, Kind: kind})
}

func methodNotAllowed(w http.ResponseWriter) {
	respondError(w, http.StatusMethodNotAllowed, "method not allowed", "")
}

// respondErr maps domain errors onto a status code and a JSON body.
func respondErr(w http.ResponseWriter, err error) {
	status, kind := statusFor(err)
	respondError(w, status, err.Error(), kind)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, chat.ErrEmptyPrompt):
		return http.StatusBadRequest, "empty_prompt"
	case errors.Is(err, chat.ErrUnknownModel):
		return http.StatusBadRequest, "unknown_model"
	case errors.Is(err, chat.ErrBusy):
		return http.StatusConflict, "busy"
	case errors.Is(err, processing.ErrQueueFull):
		return http.StatusServiceUnavailable, "queue_full"
	}
	var merr *media.Error
	if !errors.As(err, &merr) {
		return http.StatusInternalServerError, ""
	}
	kind := merr.Kind.String()
	switch merr.Kind {
	case media.KindPreconditionNotReady, media.KindCanceled:
		return http.StatusConflict, kind
	case media.KindQuotaExceeded:
		return http.StatusTooManyRequests, kind
	case media.KindModelUnavailable:
		return http.StatusUnprocessableEntity, kind
	case media.KindActivationTimeout, media.KindPollingExhausted:
		return http.StatusGatewayTimeout, kind
	default:
		return http.StatusBadGateway, kind
	}
}
