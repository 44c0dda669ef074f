// Package api exposes the monitoring service over HTTP. Handlers stay
// transport-only: bind the request, call the service, map errors to
// status codes.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/banking/fincrime-service/internal/domain"
	"github.com/banking/fincrime-service/internal/pkg/logger"
	"github.com/banking/fincrime-service/internal/service"
	"github.com/banking/fincrime-service/internal/store"
)

// Server registers the HTTP routes over the monitoring service
type Server struct {
	svc *service.Service
	log *logger.Logger
}

// NewServer creates the HTTP facade
func NewServer(svc *service.Service, log *logger.Logger) *Server {
	return &Server{svc: svc, log: log.Named("api")}
}

// Register attaches all routes
func (s *Server) Register(e *echo.Echo) {
	e.GET("/health", s.health)

	api := e.Group("/api")
	api.GET("/agents/status", s.agentStatus)
	api.POST("/analyze", s.submit)
	api.POST("/transactions/generate", s.generate)
	api.GET("/transactions", s.query)
	api.GET("/transactions/:id", s.get)
	api.GET("/transactions/:id/analysis", s.analyze)
	api.PATCH("/transactions/:id/status", s.updateStatus)
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type agentDescriptor struct {
	Name           string `json:"name"`
	Status         string `json:"status"`
	Model          string `json:"model,omitempty"`
	Specialization string `json:"specialization,omitempty"`
}

type agentStatusResponse struct {
	Coordinator agentDescriptor   `json:"coordinator"`
	SubAgents   []agentDescriptor `json:"sub_agents"`
}

type generateRequest struct {
	Count            int     `json:"count"`
	HighRiskFraction float64 `json:"highRiskFraction"`
	Seed             *int64  `json:"seed"`
}

type transactionsResponse struct {
	Count        int                  `json:"count"`
	Transactions []domain.Transaction `json:"transactions"`
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

type submitRequest struct {
	Transaction *domain.Transaction `json:"transaction"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) agentStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, agentStatusResponse{
		Coordinator: agentDescriptor{
			Name:   "financial_crime_coordinator",
			Status: "active",
			Model:  s.svc.RendererName(),
		},
		SubAgents: []agentDescriptor{
			{Name: "transaction_analyzer", Status: "active", Specialization: "Transaction pattern analysis"},
			{Name: "risk_assessor", Status: "active", Specialization: "Risk factor evaluation"},
			{Name: "compliance_checker", Status: "active", Specialization: "Regulatory compliance verification"},
			{Name: "pattern_detector", Status: "active", Specialization: "Suspicious pattern detection"},
		},
	})
}

func (s *Server) generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return s.badRequest(c, "malformed request body")
	}
	if req.Count < 1 {
		return s.badRequest(c, "count must be a positive integer")
	}

	txs, err := s.svc.GenerateTransactions(c.Request().Context(), req.Count, req.HighRiskFraction, req.Seed)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, transactionsResponse{Count: len(txs), Transactions: txs})
}

func (s *Server) query(c echo.Context) error {
	filter := store.Filter{
		IDSubstring:   c.QueryParam("id"),
		RiskIndicator: c.QueryParam("riskIndicator"),
		Status:        c.QueryParam("status"),
	}
	var err error
	if filter.From, err = parseTimeParam(c.QueryParam("from")); err != nil {
		return s.badRequest(c, "invalid 'from' timestamp, want RFC 3339")
	}
	if filter.To, err = parseTimeParam(c.QueryParam("to")); err != nil {
		return s.badRequest(c, "invalid 'to' timestamp, want RFC 3339")
	}

	txs := s.svc.QueryTransactions(c.Request().Context(), filter)
	return c.JSON(http.StatusOK, transactionsResponse{Count: len(txs), Transactions: txs})
}

func (s *Server) get(c echo.Context) error {
	tx, err := s.svc.GetTransaction(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, tx)
}

func (s *Server) analyze(c echo.Context) error {
	result, err := s.svc.AnalyzeTransaction(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) updateStatus(c echo.Context) error {
	var req statusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return s.badRequest(c, "malformed request body")
	}

	tx, err := s.svc.UpdateStatus(c.Request().Context(), c.Param("id"), domain.TransactionStatus(req.Status))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, tx)
}

func (s *Server) submit(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return s.badRequest(c, "malformed request body")
	}
	if req.Transaction == nil {
		return s.badRequest(c, "transaction is required")
	}

	_, result, err := s.svc.Submit(c.Request().Context(), req.Transaction)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// fail maps service errors onto HTTP status codes
func (s *Server) fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	default:
		s.log.Error("request failed", logger.ErrorField(err))
	}
	return c.JSON(status, errorResponse{Error: err.Error()})
}

func (s *Server) badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func parseTimeParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}
