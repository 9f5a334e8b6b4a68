package http

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/geofence-attendance/internal/handler/http/response"
	"github.com/cmlabs-hris/geofence-attendance/internal/service/retention"
)

// RetentionTrigger runs an on-demand retention sweep.
type RetentionTrigger interface {
	Trigger(ctx context.Context) (retention.SweepResult, error)
}

type RetentionHandler interface {
	Run(w http.ResponseWriter, r *http.Request)
}

type retentionHandlerImpl struct {
	sweeper RetentionTrigger
}

func NewRetentionHandler(sweeper RetentionTrigger) RetentionHandler {
	return &retentionHandlerImpl{sweeper: sweeper}
}

// Run implements RetentionHandler. A partially failed sweep still reports what it removed.
func (h *retentionHandlerImpl) Run(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeper.Trigger(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Retention sweep completed", result)
}
