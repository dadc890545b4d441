// Package api contains the HTTP handlers for the agent workflows
package api

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"seo-agents/backend/internal/compliance"
	"seo-agents/backend/internal/logging"
	"seo-agents/backend/internal/repository"
	"seo-agents/backend/internal/services"
	"seo-agents/backend/pkg/models"
)

// Server holds the dependencies for the API server.
type Server struct {
	Runner     services.AgentRunner
	Store      repository.Store
	Compliance compliance.Checker
	Logger     *logging.Logger
	validate   *validator.Validate
}

// NewServer creates a new Server.
func NewServer(runner services.AgentRunner, store repository.Store, checker compliance.Checker, logger *logging.Logger) *Server {
	return &Server{
		Runner:     runner,
		Store:      store,
		Compliance: checker,
		Logger:     logger,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RunRequest starts a workflow run.
type RunRequest struct {
	OrgID   string         `json:"orgId"`
	Trigger models.Trigger `json:"trigger" validate:"omitempty,oneof=manual scheduled onboarding"`
}

// GhostwriterRequest starts a Ghostwriter run for one topic.
type GhostwriterRequest struct {
	RunRequest
	Topic models.ContentTopic `json:"topic"`
}

// ComplianceRequest reviews a piece of text.
type ComplianceRequest struct {
	Text     string          `json:"text" validate:"required"`
	Vertical models.Vertical `json:"vertical" validate:"required"`
}

// ClientRequest creates or updates a client.
type ClientRequest struct {
	OrgID             string               `json:"orgId" validate:"required"`
	PracticeName      string               `json:"practiceName" validate:"required"`
	Vertical          models.Vertical      `json:"vertical" validate:"required,oneof=dental medical chiropractic legal home_services other"`
	Services          []string             `json:"services" validate:"required,min=1,dive,required"`
	Location          string               `json:"location" validate:"required"`
	WebsiteDomain     string               `json:"websiteDomain" validate:"omitempty,fqdn"`
	Competitors       []string             `json:"competitors" validate:"max=10,dive,fqdn"`
	AccountHealth     models.AccountHealth `json:"accountHealth" validate:"omitempty,oneof=active paused past_due churned"`
	SearchConsoleSite string               `json:"searchConsoleSite"`
	CredentialRef     string               `json:"credentialRef"`
}

// RegisterRoutes mounts the REST API on g.
func (s *Server) RegisterRoutes(g *echo.Group) {
	g.PUT("/clients/:clientId", s.PutClient)
	g.GET("/clients/:clientId/keywords", s.ListKeywords)
	g.GET("/clients/:clientId/queue", s.ListQueue)
	g.POST("/clients/:clientId/scholar", s.RunScholar)
	g.POST("/clients/:clientId/ghostwriter", s.RunGhostwriter)
	g.POST("/clients/:clientId/conductor", s.RunConductor)
	g.GET("/runs", s.ListRuns)
	g.GET("/runs/:runId", s.GetRun)
	g.POST("/runs/:runId/resume", s.ResumeRun)
	g.POST("/runs/:runId/cancel", s.CancelRun)
	g.POST("/compliance/check", s.CheckCompliance)
}

func (s *Server) bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	return s.check(v)
}

func (s *Server) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// PutClient creates or updates a client
// (PUT /api/v1/clients/:clientId)
func (s *Server) PutClient(c echo.Context) error {
	var req ClientRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	health := req.AccountHealth
	if health == "" {
		health = models.AccountHealthActive
	}
	client := &models.Client{
		ID:                c.Param("clientId"),
		OrgID:             req.OrgID,
		PracticeName:      req.PracticeName,
		Vertical:          req.Vertical,
		Services:          req.Services,
		Location:          req.Location,
		WebsiteDomain:     req.WebsiteDomain,
		Competitors:       req.Competitors,
		AccountHealth:     health,
		SearchConsoleSite: req.SearchConsoleSite,
		CredentialRef:     req.CredentialRef,
	}
	if err := s.Store.UpsertClient(c.Request().Context(), client); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, client)
}

// ListKeywords returns the prioritized keywords of a client
// (GET /api/v1/clients/:clientId/keywords)
func (s *Server) ListKeywords(c echo.Context) error {
	keywords, err := s.Store.ListKeywords(c.Request().Context(), c.Param("clientId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, keywords)
}

// ListQueue returns the review queue of a client
// (GET /api/v1/clients/:clientId/queue)
func (s *Server) ListQueue(c echo.Context) error {
	items, err := s.Store.ListQueueItems(c.Request().Context(), c.Param("clientId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

// RunScholar runs keyword research and returns the terminal summary
// (POST /api/v1/clients/:clientId/scholar)
func (s *Server) RunScholar(c echo.Context) error {
	var req RunRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	summary, err := s.Runner.RunScholar(c.Request().Context(), c.Param("clientId"), req.OrgID, req.Trigger)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// RunGhostwriter writes content for one topic
// (POST /api/v1/clients/:clientId/ghostwriter)
func (s *Server) RunGhostwriter(c echo.Context) error {
	var req GhostwriterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if req.Topic.SuggestedTitle == "" {
		req.Topic.SuggestedTitle = req.Topic.Keyword
	}
	if req.Topic.Angle == "" {
		req.Topic.Angle = "informational"
	}
	if err := s.check(&req); err != nil {
		return err
	}
	summary, err := s.Runner.RunGhostwriter(c.Request().Context(), c.Param("clientId"), req.OrgID, req.Topic, req.Trigger)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// RunConductor runs the full content cycle
// (POST /api/v1/clients/:clientId/conductor)
func (s *Server) RunConductor(c echo.Context) error {
	var req RunRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	summary, err := s.Runner.RunConductor(c.Request().Context(), c.Param("clientId"), req.OrgID, req.Trigger)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// ListRuns returns workflow runs, newest first
// (GET /api/v1/runs?clientId=&agent=&status=&parentRunId=&limit=)
func (s *Server) ListRuns(c echo.Context) error {
	filter := repository.RunFilter{
		ClientID:    c.QueryParam("clientId"),
		Agent:       models.AgentName(c.QueryParam("agent")),
		Status:      models.RunStatus(c.QueryParam("status")),
		ParentRunID: c.QueryParam("parentRunId"),
		Limit:       50,
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || limit == 0 || limit > 500 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 500")
		}
		filter.Limit = limit
	}
	runs, err := s.Store.ListRuns(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, runs)
}

// GetRun returns one workflow run
// (GET /api/v1/runs/:runId)
func (s *Server) GetRun(c echo.Context) error {
	run, err := s.Store.GetRun(c.Request().Context(), c.Param("runId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, run)
}

// ResumeRun continues an interrupted run from its last checkpoint
// (POST /api/v1/runs/:runId/resume)
func (s *Server) ResumeRun(c echo.Context) error {
	summary, err := s.Runner.Resume(c.Request().Context(), c.Param("runId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// CancelRun requests cancellation of an in-flight run
// (POST /api/v1/runs/:runId/cancel)
func (s *Server) CancelRun(c echo.Context) error {
	runID := c.Param("runId")
	if !s.Runner.Cancel(runID) {
		return echo.NewHTTPError(http.StatusNotFound, "run "+runID+" is not running in this process")
	}
	return c.JSON(http.StatusAccepted, map[string]string{"runId": runID, "status": "cancelling"})
}

// CheckCompliance reviews text without running a workflow
// (POST /api/v1/compliance/check)
func (s *Server) CheckCompliance(c echo.Context) error {
	var req ComplianceRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Compliance.Check(c.Request().Context(), req.Text, req.Vertical))
}
