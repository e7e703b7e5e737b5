package orderevent

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/unihub/notify-svc/internal/service/models/event"
)

// service is an interface for the service layer.
type service interface {
	HandleOrderEvent(ctx context.Context, ev event.ChangeEvent) error
}

// orderEventRequest is the change-event payload posted by the order store's
// row-level trigger.
type orderEventRequest struct {
	Type   string `json:"type" validate:"required"`
	Record struct {
		ID string `json:"id" validate:"required"`
	} `json:"record"`
}

// Validate validates the order event request.
func (r *orderEventRequest) Validate() error {
	return validator.New().Struct(r)
}

func (r *orderEventRequest) toModel() event.ChangeEvent {
	return event.ChangeEvent{
		Type:   r.Type,
		Record: event.Record{ID: r.Record.ID},
	}
}

// Handle processes one inbound change event. The response only reflects the
// hard path: 200 when the aggregate fetch and all emails succeeded, 500 when
// either failed. Soft-channel failures are visible in logs only.
func Handle(w http.ResponseWriter, r *http.Request, service service) {
	eventReq := orderEventRequest{}
	if err := json.NewDecoder(r.Body).Decode(&eventReq); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		slog.Error("Error decoding order event payload", "error", err)

		return
	}

	if err := eventReq.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		slog.Error("Error validating order event payload", "error", err)

		return
	}

	if err := service.HandleOrderEvent(r.Context(), eventReq.toModel()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		slog.Error("Error handling order event",
			"type", eventReq.Type,
			"order_id", eventReq.Record.ID,
			"error", err,
		)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]bool{"success": true}); err != nil {
		slog.Error("Error sending response for order event", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		slog.Error("Error sending error response", "error", err)
	}
}
