package floor

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/darkden-lab/tableside/internal/auth"
	"github.com/darkden-lab/tableside/internal/httputil"
	logx "github.com/darkden-lab/tableside/internal/log"
	"github.com/darkden-lab/tableside/internal/middleware"
)

// Handlers exposes floor event publication to upstream services.
type Handlers struct {
	publisher *Publisher
	logger    zerolog.Logger
}

func NewHandlers(publisher *Publisher) *Handlers {
	return &Handlers{publisher: publisher, logger: logx.WithComponent("floor")}
}

// RegisterRoutes wires the floor endpoints onto a router that already runs
// the auth middleware.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	publish := middleware.RequireRole(auth.RoleManager)(
		httputil.ValidateBody[publishRequest]()(http.HandlerFunc(h.handlePublish)),
	)
	r.Handle("/api/floor/events", publish).Methods("POST")
}

type publishRequest struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`

	topic   Topic
	decoded Payload
}

func (p *publishRequest) Validate() error {
	var errs httputil.ValidationErrors
	topic, err := ParseTopic(p.Topic)
	errs.Check(err == nil, "topic must be a known floor topic")
	errs.Check(len(p.Payload) > 0, "payload is required")
	if err == nil && len(p.Payload) > 0 {
		decoded, derr := DecodePayload(topic, p.Payload)
		errs.Check(derr == nil, "payload does not match topic "+p.Topic)
		p.topic, p.decoded = topic, decoded
	}
	return errs.Err()
}

func (h *Handlers) handlePublish(w http.ResponseWriter, r *http.Request) {
	req, _ := httputil.BodyFromContext[publishRequest](r.Context())

	logger := h.logger.With().Str(logx.FieldTopic, string(req.topic)).Logger()
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		logger = logger.With().Int64(logx.FieldStaffID, identity.ID).Logger()
	}

	id, err := h.publisher.Publish(r.Context(), req.topic, req.decoded)
	if err != nil {
		logger.Error().Err(err).Msg("publish floor event")
		httputil.WriteError(w, http.StatusServiceUnavailable, "failed to publish event")
		return
	}
	logger.Debug().Str("event_id", id).Msg("floor event published")

	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"id": id, "topic": string(req.topic)})
}
