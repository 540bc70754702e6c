// Package proxy implements the stateless completion proxy: POST /chat forwards
// one instruction/input pair to the upstream provider, GET /ping reports
// liveness.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/efebarandurmaz/gptwork/internal/config"
	"github.com/efebarandurmaz/gptwork/internal/llm"
	"github.com/efebarandurmaz/gptwork/internal/observability"
	"github.com/efebarandurmaz/gptwork/pkg/api"
)

const defaultMaxBodyBytes = 1 << 20

// Options are the per-deployment knobs of the handler. None of them is
// derived from the request.
type Options struct {
	DefaultInstruction string
	DefaultModel       string
	MaxBodyBytes       int64
	CORSOrigin         string
	Temperature        float64
	MaxTokens          int
}

// OptionsFromConfig extracts handler options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DefaultInstruction: cfg.LLM.DefaultInstruction,
		DefaultModel:       cfg.LLM.DefaultModel,
		MaxBodyBytes:       cfg.Server.MaxBodyBytes,
		CORSOrigin:         cfg.Server.CORSOrigin,
		Temperature:        cfg.LLM.Temperature,
		MaxTokens:          cfg.LLM.MaxTokens,
	}
}

// Handler serves /chat, /ping and /metrics. The provider arrives fully
// configured, credential included; the handler never sees the key.
type Handler struct {
	provider llm.Provider
	opts     Options
	metrics  *observability.ProxyMetrics
	log      logrus.FieldLogger
	root     http.Handler
}

// NewHandler wires the routes. A nil metrics or log gets a private default.
func NewHandler(provider llm.Provider, opts Options, metrics *observability.ProxyMetrics, log logrus.FieldLogger) *Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	if metrics == nil {
		metrics = observability.NewProxyMetrics()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	h := &Handler{
		provider: provider,
		opts:     opts,
		metrics:  metrics,
		log:      log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(api.ChatPath, h.handleChat)
	mux.HandleFunc(api.PingPath, h.handlePing)
	mux.Handle("/metrics", metrics.Handler())

	h.root = corsMiddleware(opts.CORSOrigin, loggingMiddleware(log, mux))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

// Metrics returns the registry the handler records into.
func (h *Handler) Metrics() *observability.ProxyMetrics {
	return h.metrics
}

func (h *Handler) handlePing(w http.ResponseWriter, r *http.Request) {
	h.metrics.PingRequestsTotal.Inc()
	writeJSON(w, http.StatusOK, api.PingResponse{OK: true})
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		logAndReturnError(h.log, w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	h.metrics.ChatInFlight.Inc()
	defer h.metrics.ChatInFlight.Dec()

	req, status, err := decodeRequest(w, r, h.opts.MaxBodyBytes)
	if err != nil {
		h.metrics.RecordChat(time.Since(start), 0, status)
		logAndReturnError(h.log, w, err.Error(), status)
		return
	}
	req = req.WithDefaults(h.opts.DefaultInstruction, h.opts.DefaultModel)
	setLogModel(w, req.Model)

	ctx, span := observability.StartChatSpan(r.Context(), req.Model)
	defer span.End()

	resp, err := h.complete(ctx, req)
	if err != nil {
		pe := llm.AsProviderError(h.provider.Name(), err)
		status := pe.HTTPStatus()
		observability.RecordError(span, pe)
		observability.RecordHTTPStatus(span, status)
		h.metrics.RecordChat(time.Since(start), 0, status)
		logAndReturnError(h.log, w, pe.Detail(), status, pe.Error())
		return
	}

	observability.RecordHTTPStatus(span, http.StatusOK)
	h.metrics.RecordChat(time.Since(start), resp.TotalTokens(), http.StatusOK)
	writeJSON(w, http.StatusOK, api.CompletionResponse{Answer: resp.Content})
}

// complete performs exactly one provider call for req.
func (h *Handler) complete(ctx context.Context, req api.CompletionRequest) (*llm.Response, error) {
	opts := &llm.RequestOptions{Model: req.Model}
	if h.opts.MaxTokens > 0 {
		maxTokens := h.opts.MaxTokens
		opts.MaxTokens = &maxTokens
	}
	if h.opts.Temperature > 0 {
		temp := h.opts.Temperature
		opts.Temperature = &temp
	}

	ctx, span := observability.StartLLMSpan(ctx, h.provider.Name(), req.Model)
	defer span.End()

	start := time.Now()
	resp, err := h.provider.Complete(ctx, llm.NewExchange(req.Instruction, req.Input), opts)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	observability.RecordLLMMetrics(span, resp.InputTokens, resp.OutputTokens, time.Since(start))
	return resp, nil
}

// decodeRequest reads a bounded body. An empty body is a request with every
// field defaulted; unknown keys are ignored.
func decodeRequest(w http.ResponseWriter, r *http.Request, limit int64) (api.CompletionRequest, int, error) {
	var req api.CompletionRequest

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, http.StatusRequestEntityTooLarge, errors.New("request body too large")
		}
		return req, http.StatusBadRequest, errors.New("could not read request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, http.StatusOK, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, http.StatusBadRequest, errors.New("invalid JSON body")
	}
	return req, http.StatusOK, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
