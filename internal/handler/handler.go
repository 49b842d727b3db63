package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/debt-insights/internal/middleware"
	"github.com/Dan9191/debt-insights/internal/models"
	"github.com/Dan9191/debt-insights/internal/modelstore"
)

const serviceVersion = "1.0.0"

// Analytics is the analysis surface served over HTTP
type Analytics interface {
	IsReady() bool
	AssessRisk(ctx context.Context, userID int64, debtorID *int64) ([]models.RiskAssessment, error)
	PredictPayments(ctx context.Context, userID int64, debtorID *int64) ([]models.PaymentPrediction, error)
	PredictCashFlow(ctx context.Context, userID int64) (models.CashFlowPrediction, error)
	GenerateRecommendations(ctx context.Context, userID int64) ([]models.Recommendation, error)
	ComprehensiveAnalysis(ctx context.Context, userID int64) (*models.InsightsReport, error)
	RetrainModels(ctx context.Context) error
	ModelStatus() []models.ModelStatus
}

type Handler struct {
	svc Analytics
	log *logrus.Logger
}

func NewHandler(svc Analytics, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type analysisRequest struct {
	UserID   *int64 `json:"user_id"`
	DebtorID *int64 `json:"debtor_id"`
}

type retrainRequest struct {
	RetrainModels *bool `json:"retrain_models"`
}

// Routes builds the router. auth, when set, guards the /api/v1 routes.
func (h *Handler) Routes(auth mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", h.Root).Methods("GET")
	r.HandleFunc("/health", h.Health).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	if auth != nil {
		api.Use(auth)
	}

	p := api.PathPrefix("/predictions").Subrouter()
	p.HandleFunc("/risk-assessment", h.RiskAssessment).Methods("POST")
	p.HandleFunc("/risk-assessment/{user_id:[0-9]+}", h.RiskAssessment).Methods("GET")
	p.HandleFunc("/payment-predictions", h.PaymentPredictions).Methods("POST")
	p.HandleFunc("/payment-predictions/{user_id:[0-9]+}", h.PaymentPredictions).Methods("GET")
	p.HandleFunc("/cash-flow", h.CashFlow).Methods("POST")
	p.HandleFunc("/cash-flow/{user_id:[0-9]+}", h.CashFlow).Methods("GET")

	i := api.PathPrefix("/insights").Subrouter()
	i.HandleFunc("/recommendations", h.Recommendations).Methods("POST")
	i.HandleFunc("/recommendations/{user_id:[0-9]+}", h.Recommendations).Methods("GET")
	i.HandleFunc("/comprehensive-analysis", h.ComprehensiveAnalysis).Methods("POST")
	i.HandleFunc("/comprehensive-analysis/{user_id:[0-9]+}", h.ComprehensiveAnalysis).Methods("GET")
	i.HandleFunc("/retrain-models", h.RetrainModels).Methods("POST")
	i.HandleFunc("/model-status", h.ModelStatus).Methods("GET")
	return r
}

// Root reports the service banner
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Debt insights service is running",
		"version": serviceVersion,
	})
}

// Health reports liveness and whether models are loaded
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"model_loaded": h.svc.IsReady(),
	})
}

// RiskAssessment handles risk classification of a user's debtors
func (h *Handler) RiskAssessment(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}
	out, err := h.svc.AssessRisk(r.Context(), *req.UserID, req.DebtorID)
	h.respond(w, out, err, "Risk assessment failed")
}

// PaymentPredictions handles next-payment predictions
func (h *Handler) PaymentPredictions(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}
	out, err := h.svc.PredictPayments(r.Context(), *req.UserID, req.DebtorID)
	h.respond(w, out, err, "Payment prediction failed")
}

// CashFlow handles monthly cash flow forecasts
func (h *Handler) CashFlow(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}
	out, err := h.svc.PredictCashFlow(r.Context(), *req.UserID)
	h.respond(w, out, err, "Cash flow prediction failed")
}

// Recommendations handles follow-up suggestions
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}
	out, err := h.svc.GenerateRecommendations(r.Context(), *req.UserID)
	h.respond(w, out, err, "Recommendation generation failed")
}

// ComprehensiveAnalysis handles the combined report
func (h *Handler) ComprehensiveAnalysis(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}
	out, err := h.svc.ComprehensiveAnalysis(r.Context(), *req.UserID)
	h.respond(w, out, err, "Comprehensive analysis failed")
}

// RetrainModels handles on-demand retraining
func (h *Handler) RetrainModels(w http.ResponseWriter, r *http.Request) {
	var req retrainRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if req.RetrainModels != nil && !*req.RetrainModels {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Model retraining skipped"})
		return
	}
	if subject, ok := middleware.Subject(r.Context()); ok {
		h.log.Infof("Model retrain requested by %s", subject)
	}
	if err := h.svc.RetrainModels(r.Context()); err != nil {
		h.respond(w, nil, err, "Model retraining failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Models retrained successfully"})
}

// ModelStatus reports training telemetry of the serving models
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ModelStatus())
}

// parseRequest reads the user and optional debtor id from the path and
// query on GET, or from the JSON body otherwise
func (h *Handler) parseRequest(w http.ResponseWriter, r *http.Request) (analysisRequest, bool) {
	var req analysisRequest
	if r.Method == http.MethodGet {
		userID, err := strconv.ParseInt(mux.Vars(r)["user_id"], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid user_id")
			return req, false
		}
		req.UserID = &userID
		if raw := r.URL.Query().Get("debtor_id"); raw != "" {
			debtorID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid debtor_id")
				return req, false
			}
			req.DebtorID = &debtorID
		}
		return req, true
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	if req.UserID == nil {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return req, false
	}
	return req, true
}

func (h *Handler) respond(w http.ResponseWriter, out any, err error, failure string) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, out)
	case errors.Is(err, modelstore.ErrModelsNotReady):
		writeError(w, http.StatusServiceUnavailable, "AI models not ready")
	case errors.Is(err, modelstore.ErrRetrainInProgress):
		writeError(w, http.StatusConflict, "Model retraining already in progress")
	default:
		h.log.Errorf("%s: %v", failure, err)
		writeError(w, http.StatusInternalServerError, failure)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
