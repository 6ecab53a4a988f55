package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/flight-pricing-engine/internal/config"
	httpopenapi "github.com/fairyhunter13/flight-pricing-engine/internal/http/openapi"
	"github.com/fairyhunter13/flight-pricing-engine/internal/model"
	"github.com/fairyhunter13/flight-pricing-engine/internal/obs"
	"github.com/fairyhunter13/flight-pricing-engine/internal/service"
)

// App holds the dependencies shared by the HTTP handlers.
type App struct {
	Cfg     config.Config
	Service *service.Service
	Metrics *obs.Metrics
	closing atomic.Bool
	started time.Time
}

// pricingPayload mirrors model.PricingRequest with pointers so that missing
// required fields can be told apart from zero values.
type pricingPayload struct {
	BaseFare         *float64 `json:"base_fare"`
	SeatsLeft        *int     `json:"seats_left"`
	TotalSeats       *int     `json:"total_seats"`
	HoursToDeparture *int     `json:"hours_to_departure"`
	DemandIndex      *float64 `json:"demand_index"`
	FlightID         *string  `json:"flight_id"`
}

func (p pricingPayload) toRequest() (model.PricingRequest, string) {
	switch {
	case p.BaseFare == nil:
		return model.PricingRequest{}, "base_fare is required"
	case p.SeatsLeft == nil:
		return model.PricingRequest{}, "seats_left is required"
	case p.TotalSeats == nil:
		return model.PricingRequest{}, "total_seats is required"
	case p.HoursToDeparture == nil:
		return model.PricingRequest{}, "hours_to_departure is required"
	}
	req := model.PricingRequest{
		BaseFare:         *p.BaseFare,
		SeatsLeft:        *p.SeatsLeft,
		TotalSeats:       *p.TotalSeats,
		HoursToDeparture: *p.HoursToDeparture,
		DemandIndex:      p.DemandIndex,
	}
	if p.FlightID != nil {
		req.FlightID = *p.FlightID
	}
	return req, ""
}

// NewApp returns an App ready to be mounted with NewRouter.
func NewApp(cfg config.Config, svc *service.Service, metrics *obs.Metrics) *App {
	return &App{Cfg: cfg, Service: svc, Metrics: metrics, started: time.Now()}
}

// StartShutdown makes new price requests fail with 503.
func (a *App) StartShutdown() {
	a.closing.Store(true)
}

func (a *App) postDynamicPriceHandler(w http.ResponseWriter, r *http.Request) {
	if a.closing.Load() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return
	}
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return
	}
	var p pricingPayload
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	req, missing := p.toRequest()
	if missing != "" {
		a.Metrics.QuoteError("validation")
		WriteJSONError(w, http.StatusBadRequest, "validation_error", missing)
		return
	}
	if err := service.Validate(req); err != nil {
		a.Metrics.QuoteError("validation")
		WriteJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	out, err := a.Service.Quote(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			WriteJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		obs.Logger.Error("price_quote_failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, out)
	obs.Logger.Info("price_quoted",
		"request_id", RequestIDFromContext(r.Context()),
		"flight_id", req.FlightKey(),
		"dynamic_price", out.DynamicPrice,
		"demand_index", out.DemandIndex,
		"from_cache", out.FromCache,
	)
}

func (a *App) getDemandHandler(w http.ResponseWriter, r *http.Request) {
	entries := a.Service.Demand()
	m := make(map[string]model.DemandEntry, len(entries))
	for _, e := range entries {
		m[e.FlightID] = e
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"service":   "pricing-engine",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	st, demandEntries := a.Service.Stats()
	m := map[string]any{
		"cache_entries":    st.Entries,
		"cache_hits":       st.Hits,
		"cache_misses":     st.Misses,
		"cache_expired":    st.Expired,
		"cache_hit_rate":   st.HitRate(),
		"demand_entries":   demandEntries,
		"cache_ttl_sec":    a.Cfg.CacheTTL.Seconds(),
		"drift_period_sec": a.Cfg.DemandUpdateInterval.Seconds(),
		"uptime_sec":       time.Since(a.started).Seconds(),
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *App) openapiHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(httpopenapi.YAML)
}

func (a *App) docsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	html := `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Flight Pricing Engine API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`
	_, _ = w.Write([]byte(html))
}
