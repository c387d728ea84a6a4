package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/clindx-engine/internal/domain"
	"github.com/clindx-engine/internal/evaluation"
	"github.com/clindx-engine/internal/middleware"
	"github.com/clindx-engine/internal/scoring"
	"github.com/clindx-engine/internal/vitals"
)

func (s *Server) handleCreateEvaluation(c *gin.Context) {
	doctorID, patientID, ok := s.patientScope(c)
	if !ok {
		return
	}

	var in evaluation.CreateEvaluationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.badRequest(c, "invalid evaluation payload", err.Error())
		return
	}

	created, err := s.service.CreateEvaluation(c.Request.Context(), doctorID, patientID, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleListEvaluations(c *gin.Context) {
	doctorID, patientID, ok := s.patientScope(c)
	if !ok {
		return
	}

	evaluations, err := s.service.ListEvaluations(c.Request.Context(), doctorID, patientID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if evaluations == nil {
		evaluations = []*domain.Evaluation{}
	}
	c.JSON(http.StatusOK, evaluations)
}

func (s *Server) handleGetEvaluation(c *gin.Context) {
	doctorID, patientID, ok := s.patientScope(c)
	if !ok {
		return
	}
	evaluationID, ok := s.pathID(c, "id")
	if !ok {
		return
	}

	found, err := s.service.GetEvaluation(c.Request.Context(), doctorID, patientID, evaluationID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

func (s *Server) handleDashboardSummary(c *gin.Context) {
	doctorID, _ := middleware.DoctorID(c)

	summary, err := s.service.DashboardSummary(c.Request.Context(), doctorID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleEarlyWarnings(c *gin.Context) {
	doctorID, _ := middleware.DoctorID(c)

	results, err := s.service.EarlyWarnings(c.Request.Context(), doctorID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (s *Server) handleEarlyWarningForPatient(c *gin.Context) {
	doctorID, patientID, ok := s.patientScope(c)
	if !ok {
		return
	}

	result, err := s.service.EarlyWarningForPatient(c.Request.Context(), doctorID, patientID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleVitalsTrend(c *gin.Context) {
	doctorID, patientID, ok := s.patientScope(c)
	if !ok {
		return
	}

	result, err := s.service.VitalsTrend(c.Request.Context(), doctorID, patientID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// The simulators never reject a mapping body: missing or malformed fields
// simply contribute nothing. Inputs may be wrapped as {"vitals": {...}} and
// {"treatment": {...}} or sent as top-level fields.
func (s *Server) handleWhatIf(c *gin.Context) {
	body, ok := s.mappingBody(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, scoring.SimulateVitals(scoring.WhatIfVitalsFromMap(unwrap(body, "vitals"))))
}

func (s *Server) handleTreatmentResponse(c *gin.Context) {
	body, ok := s.mappingBody(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, scoring.SimulateTreatment(scoring.TreatmentPlanFromMap(unwrap(body, "treatment"))))
}

// unwrap returns body[key] when it is a mapping, and body otherwise.
func unwrap(body map[string]any, key string) map[string]any {
	if inner, ok := vitals.AsMapping(body[key]); ok {
		return inner
	}
	return body
}

func (s *Server) handleAuditLogs(c *gin.Context) {
	doctorID, _ := middleware.DoctorID(c)

	limit, ok := s.queryInt(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := s.queryInt(c, "offset", 0)
	if !ok {
		return
	}

	page, err := s.service.AuditLogs(c.Request.Context(), doctorID, limit, offset)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleExportAuditLogs(c *gin.Context) {
	doctorID, _ := middleware.DoctorID(c)

	var buf bytes.Buffer
	if err := s.service.ExportAuditLogs(c.Request.Context(), doctorID, &buf); err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="audit-logs-%d.json"`, doctorID))
	c.Data(http.StatusOK, "application/json; charset=utf-8", buf.Bytes())
}

// patientScope reads the authenticated doctor and the :patient_id param.
func (s *Server) patientScope(c *gin.Context) (int64, int64, bool) {
	doctorID, _ := middleware.DoctorID(c)
	patientID, ok := s.pathID(c, "patient_id")
	return doctorID, patientID, ok
}

func (s *Server) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		s.badRequest(c, fmt.Sprintf("invalid %s", name), c.Param(name))
		return 0, false
	}
	return id, true
}

func (s *Server) queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		s.badRequest(c, fmt.Sprintf("invalid %s", name), raw)
		return 0, false
	}
	return v, true
}

func (s *Server) mappingBody(c *gin.Context) (map[string]any, bool) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		s.badRequest(c, "request body must be a JSON object", err.Error())
		return nil, false
	}
	return body, true
}

func (s *Server) badRequest(c *gin.Context, message, details string) {
	c.AbortWithStatusJSON(http.StatusBadRequest,
		domain.NewAPIError(domain.ErrInvalidInput, message, details, c.GetString(middleware.RequestIDKey)))
}

// fail maps service errors onto the API error envelope.
func (s *Server) fail(c *gin.Context, err error) {
	requestID := c.GetString(middleware.RequestIDKey)

	var validationErr *domain.ValidationError
	switch {
	case domain.IsNotFound(err):
		c.AbortWithStatusJSON(http.StatusNotFound,
			domain.NewAPIError(domain.ErrNotFoundCode, "resource not found", "", requestID))
	case errors.As(err, &validationErr):
		c.AbortWithStatusJSON(http.StatusBadRequest,
			domain.NewAPIError(domain.ErrValidation, validationErr.Error(), validationErr.Field, requestID))
	default:
		s.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"path":       c.FullPath(),
		}).WithError(err).Error("Request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			domain.NewAPIError(domain.ErrInternalServer, "internal server error", "", requestID))
	}
	_ = c.Error(err)
}
