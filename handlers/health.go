package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type PingHandler struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPingHandler(db *sql.DB, logger *zap.Logger) *PingHandler {
	return &PingHandler{db: db, logger: logger}
}

// DBPing probes storage reachability. No database configured is a client
// error (nothing to probe), a failing probe is an upstream failure.
func (h *PingHandler) DBPing(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "DATABASE_URL not set"})
		return
	}

	var ok int
	err := h.db.QueryRowContext(c.Request.Context(), "SELECT 1").Scan(&ok)
	if err != nil {
		h.logger.Error("Database ping failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": ok == 1})
}
