package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicAttributes annotates the nrgin transaction with the ride request
// and driver ids of the route, and notices errors recorded by handlers.
// It must run after nrgin.Middleware.
func NewRelicAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		txn := nrgin.Transaction(c)
		if txn == nil {
			return
		}

		if id := c.Param("id"); id != "" {
			txn.AddAttribute("ride_request_id", id)
		}
		if driverID := c.Param("driverId"); driverID != "" {
			txn.AddAttribute("driver_id", driverID)
		}

		// Record error if present.
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
