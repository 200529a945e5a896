package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups every HTTP handler mounted by RegisterRoutes. Exports is nil when
// exports are disabled.
type Handlers struct {
	Rooms        *RoomHandler
	Schedules    *ScheduleHandler
	Availability *AvailabilityHandler
	Calendar     *CalendarHandler
	Exports      *ExportHandler
	Metrics      *MetricsHandler
}

// RegisterRoutes mounts operational endpoints on the engine root and the API under prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.GET("/metrics/summary", h.Metrics.Summary)

	rooms := api.Group("/rooms")
	rooms.GET("", h.Rooms.List)
	rooms.POST("", h.Rooms.Create)
	rooms.GET("/statuses", h.Rooms.Statuses)
	rooms.POST("/search", h.Availability.Search)
	rooms.GET("/:id", h.Rooms.Get)
	rooms.PUT("/:id", h.Rooms.Update)
	rooms.DELETE("/:id", h.Rooms.Delete)
	rooms.GET("/:id/status", h.Rooms.Status)
	rooms.PATCH("/:id/status", h.Rooms.UpdateStatus)
	rooms.GET("/:id/occurrences", h.Rooms.Occurrences)
	rooms.GET("/:id/schedules", h.Schedules.ListByRoom)

	api.GET("/professors/:id/schedules", h.Schedules.ListByProfessor)

	schedules := api.Group("/schedules")
	schedules.GET("", h.Schedules.List)
	schedules.POST("", h.Schedules.Create)
	schedules.POST("/conflicts", h.Schedules.CheckConflicts)
	schedules.POST("/bulk", h.Schedules.BulkCreate)
	schedules.GET("/:id", h.Schedules.Get)
	schedules.PUT("/:id", h.Schedules.Update)
	schedules.PATCH("/:id/status", h.Schedules.UpdateStatus)
	schedules.DELETE("/:id", h.Schedules.Delete)

	calendar := api.Group("/calendar")
	calendar.GET("/week", h.Calendar.Week)
	calendar.GET("/day", h.Calendar.Day)

	if h.Exports != nil {
		exports := api.Group("/exports")
		exports.POST("", h.Exports.Create)
		exports.GET("/download", h.Exports.Download)
		exports.GET("/:id", h.Exports.Status)
	}
}
