package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"motor-tariff/core/catalog"
	"motor-tariff/core/input"
	"motor-tariff/core/policy"
	"motor-tariff/core/quote"
	"motor-tariff/core/tariff"
	"motor-tariff/internal/errors"
)

func writeData(c *gin.Context, status int, data any) {
	c.JSON(status, response{Success: true, Data: data})
}

// writeError maps err to its status and envelope. Untyped errors are not echoed.
func writeError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	resp := response{Success: false, Retryable: errors.Retryable(err)}

	if e, ok := errors.As(err); ok && e.Type != errors.TypeInternal {
		resp.Code = string(e.Type)
		resp.Kind = string(e.Kind)
		resp.Field = e.Field
		resp.Message = e.Message
	} else {
		resp.Code = string(errors.TypeInternal)
		resp.Message = "internal error"
	}
	c.AbortWithStatusJSON(status, resp)
}

func badJSON(err error) error {
	return errors.Validation(errors.KindInvalidEnum, "body", "invalid JSON: "+err.Error())
}

// handleCalculate handles POST /api/insurance/calculate
func (s *Server) handleCalculate(c *gin.Context) {
	start := s.now()
	entry := AuditEntry{
		Timestamp: start.UTC(),
		RequestID: c.GetString(requestIDKey),
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Success:   true,
	}
	defer func() {
		entry.SetDuration(s.now().Sub(start))
		s.audit.Log(entry)
	}()

	var req input.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		entry.MarkFailed(err)
		writeError(c, badJSON(err))
		return
	}

	q, err := s.calculate(c, req)
	if err != nil {
		entry.MarkFailed(err)
		writeError(c, err)
		return
	}
	entry.InputHash = q.InputHash
	entry.TableVersion = q.TableVersion
	entry.Total = q.Breakdown.Total

	writeData(c, http.StatusOK, QuoteResponse{
		QuoteID:   q.ID,
		Input:     q.Input,
		Key:       q.Key,
		Breakdown: q.Breakdown,
		Subtotal:  q.Breakdown.Subtotal,
		Total:     q.Breakdown.Total,
		Display:   displayKey(q.Input),
		Warnings:  q.Warnings,
		Metadata: ResponseMetadata{
			RequestID:     entry.RequestID,
			InputHash:     q.InputHash,
			EngineVersion: s.deps.Version,
			TableID:       string(q.TableID),
			TableVersion:  q.TableVersion,
			TableHash:     q.TableHash,
			DurationMs:    s.now().Sub(start).Milliseconds(),
		},
	})
}

func (s *Server) calculate(c *gin.Context, req input.Request) (*quote.Quote, error) {
	in, err := s.deps.Normalizer.Normalize(req)
	if err != nil {
		return nil, err
	}
	return s.deps.Engine.Calculate(c.Request.Context(), in)
}

func displayKey(in input.PricingInput) string {
	switch {
	case in.Internal != nil:
		return tariff.InternalKeyString(in.Internal.Category, in.Internal.BaseType)
	case in.Border != nil:
		return tariff.BorderKeyString(in.Border.VehicleType, in.Border.Months)
	}
	return ""
}

// handleOptions handles GET /api/insurance/options
func (s *Server) handleOptions(c *gin.Context) {
	writeData(c, http.StatusOK, struct {
		catalog.Options
		InternalMonths []int           `json:"internalMonths"`
		BorderMonths   []int           `json:"borderMonths"`
		Fees           quote.AddOnFees `json:"fees"`
	}{
		Options:        s.deps.Catalog.Options(),
		InternalMonths: s.deps.Normalizer.InternalMonths(),
		BorderMonths:   s.deps.Normalizer.BorderMonths(),
		Fees:           s.deps.Engine.Fees(),
	})
}

func (s *Server) activeTable() (*tariff.Table, error) {
	t := s.deps.Holder.Current()
	if t == nil {
		return nil, errors.TableUnavailable(tariff.ErrNoTable)
	}
	return t, nil
}

// handleActiveTable handles GET /api/tariffs/active
func (s *Server) handleActiveTable(c *gin.Context) {
	t, err := s.activeTable()
	if err != nil {
		writeError(c, err)
		return
	}
	cov := t.Coverage()
	writeData(c, http.StatusOK, TableResponse{
		ID:           string(t.ID),
		Version:      t.Version,
		ContentHash:  t.ContentHash.Hex(),
		Source:       t.Source.String(),
		EffectiveAt:  t.EffectiveAt,
		CreatedAt:    t.CreatedAt,
		Rows:         t.Len(),
		Complete:     cov.Complete(),
		Missing:      len(cov.Missing),
		Inconsistent: cov.Inconsistent,
	})
}

// handleRow handles GET /api/tariffs/rows/:kind/:code?variant=
func (s *Server) handleRow(c *gin.Context) {
	kind, ok := tariff.ParseKind(c.Param("kind"))
	if !ok {
		writeError(c, errors.InvalidEnum("kind", c.Param("kind")))
		return
	}
	code, err := strconv.Atoi(c.Param("code"))
	if err != nil || code <= 0 {
		writeError(c, errors.InvalidEnum("code", c.Param("code")))
		return
	}
	key := tariff.Key{Kind: kind, Code: code}.WithVariant(c.Query("variant"))

	t, err := s.activeTable()
	if err != nil {
		writeError(c, err)
		return
	}
	row, ok := t.Lookup(key)
	if !ok {
		writeError(c, errors.TariffNotFound(key.String()).WithContext("table_version", t.Version))
		return
	}
	writeData(c, http.StatusOK, RowResponse{
		Key:          key,
		Row:          row,
		Subtotal:     row.Subtotal(),
		Consistent:   row.Consistent(),
		TableVersion: t.Version,
	})
}

// handleIssuePolicy handles POST /api/policies
func (s *Server) handleIssuePolicy(c *gin.Context) {
	if s.deps.Policies == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, response{
			Success: false,
			Code:    string(errors.TypeConfig),
			Message: "policy store not configured",
		})
		return
	}

	var req IssuePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badJSON(err))
		return
	}
	method, ok := policy.ParsePaymentMethod(req.PaymentMethod)
	if !ok {
		writeError(c, errors.InvalidEnum("paymentMethod", req.PaymentMethod))
		return
	}

	q, err := s.calculate(c, req.Pricing)
	if err != nil {
		writeError(c, err)
		return
	}
	if req.Amount != nil && *req.Amount != q.Breakdown.Total {
		writeError(c, errors.Validation(errors.KindInvalidEnum, "amount",
			fmt.Sprintf("amount %d does not match quote total %d", *req.Amount, q.Breakdown.Total)))
		return
	}

	var start time.Time
	if req.PolicyStartAt != nil {
		start = *req.PolicyStartAt
	}
	rec, err := policy.Issue(q, policy.IssueRequest{
		VehicleID:     req.VehicleID,
		PaymentMethod: method,
		PaidBy:        req.PaidBy,
		PayerPhone:    req.PayerPhone,
		StartAt:       start,
	}, s.now())
	if err != nil {
		writeError(c, err)
		return
	}

	if err := s.deps.Policies.Create(c.Request.Context(), rec); err != nil {
		s.logger.Error("failed to store policy", zap.Error(err), zap.String("policy_number", rec.PolicyNumber))
		writeError(c, err)
		return
	}
	writeData(c, http.StatusCreated, rec)
}

// handleGetPolicy handles GET /api/policies/:id
func (s *Server) handleGetPolicy(c *gin.Context) {
	if s.deps.Policies == nil {
		writeError(c, errors.NotFound("policy record", c.Param("id")))
		return
	}
	rec, err := s.deps.Policies.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, rec)
}

// handleHealth handles GET /health. Unhealthy until a table is published.
func (s *Server) handleHealth(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	version := 0
	if t := s.deps.Holder.Current(); t != nil {
		version = t.Version
	} else {
		status, code = "no tariff table", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":       status,
		"version":      s.deps.Version,
		"tableVersion": version,
		"time":         s.now().UTC().Format(time.RFC3339),
	})
}

// handleVersion handles GET /version
func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":     s.deps.Version,
		"engine":      "motor-tariff",
		"api_version": "v1",
	})
}
