package main

import (
	"database/sql"
	"net/http"
	"time"

	"lca-platform/internal/auth"
	"lca-platform/internal/httpapi"
	"lca-platform/internal/obs"
	"lca-platform/internal/rbac"
	"lca-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
//
// Public surface (no token): health, metrics, disclosure reads, the export,
// and the rate-limited intake endpoint. Everything that mutates or reads
// compliance/audit data requires an access token plus a role.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authManager *auth.Manager, db *sql.DB, rdb *redis.Client) {
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(obs.Handler()))

	v1 := r.Group("/v1")

	// Public disclosure access. Anonymous reads of a single posting are
	// audit-recorded inside the service; the listing and export are not.
	v1.GET("/postings", h.ListPostings)
	v1.GET("/postings/export", h.ExportPostings)
	v1.GET("/postings/:id", h.GetPosting)
	v1.POST("/postings", h.CreatePosting)

	v1.POST("/auth/login", h.Login)

	authed := v1.Group("")
	authed.Use(auth.RequireAccessToken(authManager))
	{
		editors := authed.Group("")
		editors.Use(rbac.RequireAnyRole(rbac.RoleEditor, rbac.RoleComplianceOfficer))
		{
			editors.PUT("/postings/:id", h.UpdatePosting)
			editors.PATCH("/postings/:id", h.UpdatePosting)
			editors.PATCH("/postings/:id/status", h.UpdateStatus)
			editors.POST("/postings/:id/document", h.UploadDocument)
		}

		// Deletion is destructive; keep it officer-level.
		officers := authed.Group("")
		officers.Use(rbac.RequireAnyRole(rbac.RoleComplianceOfficer))
		{
			officers.DELETE("/postings/:id", h.DeletePosting)
		}

		// Compliance and audit reads are open to any authenticated staff role.
		staff := authed.Group("")
		staff.Use(rbac.RequireAnyRole(rbac.RoleViewer, rbac.RoleEditor, rbac.RoleComplianceOfficer))
		{
			staff.GET("/compliance/report", h.ComplianceReport)
			staff.GET("/audit", h.AuditTrail)
			staff.GET("/audit/verify", h.VerifyAuditChain)
		}
	}
}
