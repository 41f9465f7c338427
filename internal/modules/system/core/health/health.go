package health

import (
	"net/http"
	"runtime"
	"time"

	"github.com/firstword/responder/internal/pkg/cron"
	"github.com/firstword/responder/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

// SessionCounter reports how many review sessions are held in memory.
type SessionCounter interface {
	SessionCount() int
}

func RegisterRoutes(rg *gin.RouterGroup, sched *cron.Scheduler, sessions SessionCounter, startedAt time.Time) {
	rg.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"ok":         1,
			"uptime":     int64(time.Since(startedAt).Seconds()),
			"goroutines": runtime.NumGoroutine(),
		}
		if sessions != nil {
			body["sessions"] = sessions.SessionCount()
		}
		c.JSON(http.StatusOK, body)
	})

	rg.GET("/health/jobs", func(c *gin.Context) {
		if sched == nil {
			response.OK(c, []cron.JobInfo{})
			return
		}
		response.OK(c, sched.List())
	})
}
