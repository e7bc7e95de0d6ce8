package dashboard

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/veredas/trailhead/internal/directory"
	"github.com/veredas/trailhead/internal/models"
	"github.com/veredas/trailhead/internal/template"
	"github.com/veredas/trailhead/internal/trail"
	"gorm.io/gorm"
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, dir directory.Directory) {
	api := router.Group("/api")

	api.GET("/summary", handleSummary(db))
	api.GET("/templates", handleTemplateList(db))
	api.GET("/templates/:id", handleTemplateDetail(db))
	api.GET("/users/:id/available", handleAvailable(db, dir))
	api.GET("/users/:id/trails", handleUserTrails(db))
	api.GET("/users/:id/awards", handleUserAwards(db))
	api.GET("/instances/:id", handleInstanceDetail(db))
	api.GET("/instances/:id/progress", handleInstanceProgress(db))
	api.GET("/completions", handleRecentCompletions(db))

	api.GET("/events", handleSSE(db))
}

func handleSummary(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		areas, err := LifeAreaSummary(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"life_areas": areas,
			"awards_24h": PendingAwardCount(db),
		})
	}
}

func handleTemplateList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := template.ListFilters{
			LifeArea:   c.Query("life_area"),
			ActiveOnly: c.Query("all") == "",
		}
		tpls, err := template.List(db, filters)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"templates": tpls})
	}
}

func handleTemplateDetail(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tpl, err := template.Get(db, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, tpl)
	}
}

func handleAvailable(db *gorm.DB, dir directory.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		tpls, err := template.ListAvailable(c.Request.Context(), db, dir, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"templates": tpls})
	}
}

func handleUserTrails(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		instances, err := trail.List(db, trail.ListFilters{
			UserID:   c.Param("id"),
			Status:   c.Query("status"),
			LifeArea: c.Query("life_area"),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"instances": instances})
	}
}

func handleUserAwards(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var awards []models.BadgeAward
		err := db.Preload("Badge").
			Where("user_id = ?", c.Param("id")).
			Order("earned_at DESC").
			Find(&awards).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"awards": awards})
	}
}

func handleInstanceDetail(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		detail, err := GetInstanceDetail(db, c.Param("id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "instance not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}

func handleInstanceProgress(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := trail.Summary(db, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func handleRecentCompletions(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 20
		if raw := c.Query("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}
		rows, err := RecentCompletions(db, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"completions": rows})
	}
}
