package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"ragicflow/internal/engine"
	"ragicflow/internal/loader"
	"ragicflow/internal/plugin/builtin"
	"ragicflow/internal/store"
	"ragicflow/internal/trigger"
	"ragicflow/internal/types"
)

const (
	maxBodyBytes    = 10 << 20
	shutdownTimeout = 10 * time.Second
)

// WebhookServer serves HTTP requests that trigger flows: Ragic callbacks on
// /webhook/{id} and plain webhook triggers on their own paths.
type WebhookServer struct {
	engine   *engine.Engine
	flows    map[string]*types.FlowDef
	routes   map[string]*types.FlowDef // trigger path -> flow
	triggers *trigger.Manager
	secrets  map[string]string
	log      *zap.SugaredLogger
}

// Option configures a WebhookServer.
type Option func(*WebhookServer)

// WithTriggers enables Ragic callbacks and subscription management.
func WithTriggers(m *trigger.Manager) Option {
	return func(s *WebhookServer) { s.triggers = m }
}

// WithSecrets makes secrets available to triggered flows.
func WithSecrets(secrets map[string]string) Option {
	return func(s *WebhookServer) { s.secrets = secrets }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *WebhookServer) {
		if log != nil {
			s.log = log
		}
	}
}

// NewWebhookServer creates a new webhook server.
func NewWebhookServer(eng *engine.Engine, flows map[string]*types.FlowDef, opts ...Option) *WebhookServer {
	routes := make(map[string]*types.FlowDef)
	for _, f := range loader.FlowsByTrigger(flows, types.TriggerWebhook) {
		routes[f.Trigger.Path] = f
	}
	s := &WebhookServer{
		engine: eng,
		flows:  flows,
		routes: routes,
		log:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the server's routes.
func (s *WebhookServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/flows", s.handleListFlows)
	mux.HandleFunc(trigger.CallbackPrefix+"{id}", s.handleRagicCallback)
	mux.HandleFunc("/", s.handleTrigger)
	return mux
}

// ListenAndServe activates Ragic subscriptions, serves until ctx is done,
// then shuts down and deactivates them.
func (s *WebhookServer) ListenAndServe(ctx context.Context, addr string) error {
	if s.triggers != nil {
		if err := s.triggers.ActivateAll(ctx, loader.FlowsByTrigger(s.flows, types.TriggerRagic)); err != nil {
			s.log.Warnw("some ragic triggers could not be activated", "error", err)
		}
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("webhook server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			serveErr = fmt.Errorf("shutdown: %w", err)
		}
	}

	if s.triggers != nil {
		deactivateCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.triggers.DeactivateAll(deactivateCtx); err != nil {
			s.log.Warnw("some ragic triggers could not be deactivated", "error", err)
		}
	}
	return serveErr
}

func (s *WebhookServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *WebhookServer) handleListFlows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	type flowInfo struct {
		Name        string            `json:"name"`
		Description string            `json:"description"`
		Trigger     *types.TriggerDef `json:"trigger,omitempty"`
		CallbackURL string            `json:"callback_url,omitempty"`
		Active      bool              `json:"active,omitempty"`
		Input       any               `json:"input,omitempty"`
	}

	subs := map[string]store.Subscription{}
	if s.triggers != nil {
		list, err := s.triggers.Subscriptions()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		for _, sub := range list {
			subs[sub.Flow] = sub
		}
	}

	infos := make([]flowInfo, 0, len(s.flows))
	for _, f := range s.flows {
		fi := flowInfo{
			Name:        f.Name,
			Description: f.Description,
			Trigger:     f.Trigger,
			Input:       f.Input,
		}
		if sub, ok := subs[f.Name]; ok {
			fi.CallbackURL = sub.CallbackURL
			fi.Active = sub.Active()
		}
		infos = append(infos, fi)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	writeJSON(w, http.StatusOK, infos)
}

// handleRagicCallback runs the flow subscribed under the webhook ID with
// {"bodyData": payload} as input.
func (s *WebhookServer) handleRagicCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.PathValue("id")
	var flow *types.FlowDef
	if s.triggers != nil {
		if name, err := s.triggers.Lookup(id); err == nil {
			flow = s.flows[name]
		}
	}
	if flow == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("no flow subscribed under webhook %q", id),
		})
		return
	}

	body, err := callbackBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.log.Infow("ragic callback received", "flow", flow.Name, "webhook_id", id)
	s.runFlow(w, r, flow, builtin.TriggerItems(body)[0].JSON)
}

func (s *WebhookServer) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flow, ok := s.routes[r.URL.Path]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("no flow mapped to path %q", r.URL.Path),
		})
		return
	}

	var input map[string]any
	if r.Body != nil {
		defer r.Body.Close()
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body: " + err.Error()})
			return
		}
	}
	if input == nil {
		input = make(map[string]any)
	}

	s.runFlow(w, r, flow, input)
}

func (s *WebhookServer) runFlow(w http.ResponseWriter, r *http.Request, flow *types.FlowDef, input map[string]any) {
	result, err := s.engine.RunWithSecrets(r.Context(), flow, input, s.secrets)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	statusCode := http.StatusOK
	if result.Status == engine.StatusFailed {
		statusCode = http.StatusInternalServerError
		s.log.Warnw("triggered flow failed", "flow", flow.Name, "error", result.Error)
	}
	writeJSON(w, statusCode, result)
}

// callbackBody reads the callback payload: a JSON body, a form body, or
// the query string when there is no body.
func callbackBody(r *http.Request) (any, error) {
	var raw []byte
	if r.Body != nil {
		defer r.Body.Close()
		var err error
		raw, err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}
	}

	if len(strings.TrimSpace(string(raw))) == 0 {
		return valuesMap(r.URL.Query()), nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		form, err := url.ParseQuery(string(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid form body: %w", err)
		}
		return valuesMap(form), nil
	}

	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return body, nil
}

func valuesMap(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 1 {
			out[key] = vals[0]
			continue
		}
		list := make([]any, len(vals))
		for i, v := range vals {
			list[i] = v
		}
		out[key] = list
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
