package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"time"

	"lca-platform/internal/auditchain"
	"lca-platform/internal/auth"
	"lca-platform/internal/compliance"
	"lca-platform/internal/export"
	"lca-platform/internal/obs"
	"lca-platform/internal/posting"
	"lca-platform/internal/storage"
	"lca-platform/pkg/logger"
	"lca-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth       *auth.Manager
	Postings   *posting.Service
	Compliance *compliance.Service
	Audit      *auditchain.Service
	Docs       storage.Store

	// RDB backs the intake rate limiter; nil disables limiting (tests).
	RDB         *redis.Client
	IntakeLimit int
}

// maxDocumentBytes caps supporting-document uploads.
const maxDocumentBytes = 10 << 20

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: Credential verification is delegated to the identity provider fronting
// this service; this endpoint only mints tokens for already-authenticated staff.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id and role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Postings ---

// CreatePosting is the public intake endpoint. Anonymous submissions are
// rate-limited per client IP before any parsing happens.
func (h Handlers) CreatePosting(c *gin.Context) {
	if h.RDB != nil && h.IntakeLimit > 0 {
		ok, err := utils.AllowRate(c.Request.Context(), h.RDB, "intake:"+c.ClientIP(), h.IntakeLimit, time.Minute)
		if err != nil {
			// Limiter outage must not take intake down with it.
			logger.FromGin(c).Warn("rate limiter unavailable", "err", err)
		} else if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "submission limit reached, retry later"})
			return
		}
	}

	var req postingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	candidate, parseErrs := req.toPosting()
	if len(parseErrs) > 0 {
		// Malformed dates never reach the service: report them alongside
		// whatever else validation finds on the rest of the payload.
		res := posting.Validate(&candidate)
		mergeFieldErrors(&res, parseErrs)
		h.writePostingError(c, posting.ErrValidation, res)
		return
	}

	actor, _ := auth.UserID(c.Request.Context())
	created, res, err := h.Postings.Create(c.Request.Context(), candidate, actor)
	if err != nil {
		h.writePostingError(c, err, res)
		return
	}

	obs.PostingsCreated.Inc()
	c.JSON(http.StatusCreated, created)
}

func (h Handlers) ListPostings(c *gin.Context) {
	f := posting.Filter{Status: posting.Status(c.Query("status"))}
	rows, err := h.Postings.List(c.Request.Context(), f)
	if err != nil {
		h.writePostingError(c, err, posting.ValidationResult{})
		return
	}
	c.JSON(http.StatusOK, gin.H{"postings": rows, "total": len(rows)})
}

// staffActor resolves the requesting staff identity on routes that accept but
// do not require a token. Context identity wins (authenticated surface); on
// public routes a bearer token is verified if present. Returns "" for
// anonymous or unverifiable requests.
func (h Handlers) staffActor(c *gin.Context) string {
	if actor, err := auth.UserID(c.Request.Context()); err == nil && actor != "" {
		return actor
	}
	tok := auth.TokenFromHeader(c)
	if tok == "" || h.Auth == nil {
		return ""
	}
	claims, err := h.Auth.Verify(tok, auth.TokenTypeAccess, time.Now())
	if err != nil {
		return ""
	}
	return claims.UserID
}

// GetPosting serves public disclosure access. Anonymous views are recorded on
// the audit chain; authenticated staff reads are not.
func (h Handlers) GetPosting(c *gin.Context) {
	id := c.Param("id")

	var p posting.Posting
	var err error
	if h.staffActor(c) != "" {
		p, err = h.Postings.Get(c.Request.Context(), id)
	} else {
		p, err = h.Postings.View(c.Request.Context(), id, c.ClientIP())
	}
	if err != nil {
		h.writePostingError(c, err, posting.ValidationResult{})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h Handlers) UpdatePosting(c *gin.Context) {
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	patch, parseErrs := req.toPatch()
	if len(parseErrs) > 0 {
		res := posting.ValidationResult{Errors: parseErrs}
		h.writePostingError(c, posting.ErrValidation, res)
		return
	}

	actor, _ := auth.UserID(c.Request.Context())
	updated, res, err := h.Postings.Update(c.Request.Context(), c.Param("id"), patch, actor)
	if err != nil {
		h.writePostingError(c, err, res)
		return
	}

	obs.PostingsUpdated.Inc()
	c.JSON(http.StatusOK, updated)
}

type statusRequest struct {
	Status posting.Status `json:"status"`
}

// UpdateStatus records externally determined lifecycle transitions
// (certification outcomes, withdrawals).
func (h Handlers) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	actor, _ := auth.UserID(c.Request.Context())
	updated, err := h.Postings.SetStatus(c.Request.Context(), c.Param("id"), req.Status, actor)
	if err != nil {
		h.writePostingError(c, err, posting.ValidationResult{})
		return
	}

	obs.PostingsUpdated.Inc()
	c.JSON(http.StatusOK, updated)
}

func (h Handlers) DeletePosting(c *gin.Context) {
	actor, _ := auth.UserID(c.Request.Context())
	if err := h.Postings.Delete(c.Request.Context(), c.Param("id"), actor); err != nil {
		h.writePostingError(c, err, posting.ValidationResult{})
		return
	}
	obs.PostingsDeleted.Inc()
	c.Status(http.StatusNoContent)
}

// UploadDocument attaches one supporting document to a posting.
func (h Handlers) UploadDocument(c *gin.Context) {
	if h.Docs == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "document storage not configured"})
		return
	}

	id := c.Param("id")
	fh, err := c.FormFile("document")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "document file required"})
		return
	}
	if fh.Size > maxDocumentBytes {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "document exceeds size limit"})
		return
	}

	src, err := fh.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "document unreadable"})
		return
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, maxDocumentBytes))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "document unreadable"})
		return
	}

	objectPath := fmt.Sprintf("documents/%s/%s", id, path.Base(fh.Filename))
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Upload failure is fatal on this path: the posting must not reference a
	// document that never landed.
	url, err := h.Docs.Upload(c.Request.Context(), objectPath, contentType, data)
	if err != nil {
		logger.FromGin(c).Error("document upload failed", "posting_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "document upload failed"})
		return
	}

	actor, _ := auth.UserID(c.Request.Context())
	updated, err := h.Postings.AttachDocument(c.Request.Context(), id, objectPath, url, actor)
	if err != nil {
		h.writePostingError(c, err, posting.ValidationResult{})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ExportPostings renders the public-disclosure export.
func (h Handlers) ExportPostings(c *gin.Context) {
	rows, err := h.Postings.List(c.Request.Context(), posting.Filter{Status: posting.Status(c.Query("status"))})
	if err != nil {
		h.writePostingError(c, err, posting.ValidationResult{})
		return
	}

	switch c.DefaultQuery("format", "csv") {
	case "csv":
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="lca_postings.csv"`)
		c.Status(http.StatusOK)
		if err := export.WriteCSV(c.Writer, rows); err != nil {
			_ = c.Error(err)
		}
	case "xlsx":
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", `attachment; filename="lca_postings.xlsx"`)
		c.Status(http.StatusOK)
		if err := export.WriteXLSX(c.Writer, rows); err != nil {
			_ = c.Error(err)
		}
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
	}
}

// --- Compliance ---

func (h Handlers) ComplianceReport(c *gin.Context) {
	rep, err := h.Compliance.Scan(c.Request.Context())
	if err != nil {
		logger.FromGin(c).Error("compliance scan failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "compliance scan failed"})
		return
	}
	c.JSON(http.StatusOK, rep)
}

// --- Audit trail ---

func (h Handlers) AuditTrail(c *gin.Context) {
	f := auditchain.Filter{
		ResourceType: c.Query("resource_type"),
		ResourceID:   c.Query("resource_id"),
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		f.Limit = n
	}
	entries, err := h.Audit.Trail(c.Request.Context(), f)
	if err != nil {
		logger.FromGin(c).Error("audit trail lookup failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit trail lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": len(entries)})
}

// VerifyAuditChain recomputes and checks one resource's chain. Broken links
// are reported to the operator, never repaired.
func (h Handlers) VerifyAuditChain(c *gin.Context) {
	rt := c.Query("resource_type")
	rid := c.Query("resource_id")
	if rt == "" || rid == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "resource_type and resource_id required"})
		return
	}

	rep, entries, err := h.Audit.VerifyTrail(c.Request.Context(), rt, rid)
	if err != nil {
		logger.FromGin(c).Error("chain verification failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "chain verification failed"})
		return
	}
	if !rep.Valid {
		obs.ChainVerificationFailures.Inc()
		logger.FromGin(c).Warn("audit chain integrity failure",
			"resource_type", rt, "resource_id", rid, "broken_at", rep.BrokenAt)
	}
	c.JSON(http.StatusOK, gin.H{"report": rep, "entries": entries})
}

// --- error mapping ---

// writePostingError maps domain errors onto the error taxonomy:
// validation -> 400 with the full field map, conflict -> 409, not found -> 404,
// anything else -> opaque 500 (details stay in logs).
func (h Handlers) writePostingError(c *gin.Context, err error, res posting.ValidationResult) {
	switch {
	case errors.Is(err, posting.ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":                 "validation failed",
			"fields":                res.Errors,
			"missing_fields":        res.MissingFields,
			"completion_percentage": res.CompletionPercentage,
		})
	case errors.Is(err, posting.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "case number already exists"})
	case errors.Is(err, posting.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "posting not found"})
	case errors.Is(err, posting.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.FromGin(c).Error("posting operation failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func mergeFieldErrors(res *posting.ValidationResult, extra map[posting.Field]string) {
	if len(extra) == 0 {
		return
	}
	if res.Errors == nil {
		res.Errors = make(map[posting.Field]string)
	}
	for k, v := range extra {
		res.Errors[k] = v
	}
	res.IsValid = false
}
