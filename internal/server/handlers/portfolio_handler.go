package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mamadbah2/gainboard/internal/domain/models"
	"github.com/mamadbah2/gainboard/internal/realtime"
	service "github.com/mamadbah2/gainboard/internal/service/portfolio"
)

// BoardService describes the view-model operations the HTTP layer can perform.
type BoardService interface {
	Snapshot() models.PortfolioSnapshot
	AddRow() models.PositionRow
	RemoveRow(id string) error
	EditTicker(id, value string) error
	EditShares(id, value string) error
	EditTarget(id, value string) error
	FetchAllPrices(ctx context.Context) models.PortfolioSnapshot
}

// PortfolioHandler handles the form application's HTTP and websocket traffic.
type PortfolioHandler struct {
	svc      BoardService
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewPortfolioHandler constructs the HTTP handler adapter.
func NewPortfolioHandler(svc BoardService, hub *realtime.Hub, logger *zap.Logger) *PortfolioHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortfolioHandler{
		svc: svc,
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// GetPortfolio returns the current rows with derived metrics and totals.
func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Snapshot())
}

// CreateRow appends a blank row to the board.
func (h *PortfolioHandler) CreateRow(c *gin.Context) {
	row := h.svc.AddRow()
	c.JSON(http.StatusCreated, row)
}

// EditRow applies a partial edit to a row's ticker, shares or target price.
func (h *PortfolioHandler) EditRow(c *gin.Context) {
	id := c.Param("id")

	var req models.EditRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid edit payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.applyEdit(id, req); err != nil {
		if errors.Is(err, service.ErrRowNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "row not found"})
			return
		}
		h.logger.Error("failed applying edit", zap.String("row_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply edit"})
		return
	}

	c.JSON(http.StatusOK, h.svc.Snapshot())
}

func (h *PortfolioHandler) applyEdit(id string, req models.EditRowRequest) error {
	if req.Ticker != nil {
		if err := h.svc.EditTicker(id, *req.Ticker); err != nil {
			return err
		}
	}
	if req.Shares != nil {
		if err := h.svc.EditShares(id, *req.Shares); err != nil {
			return err
		}
	}
	if req.TargetPrice != nil {
		if err := h.svc.EditTarget(id, *req.TargetPrice); err != nil {
			return err
		}
	}
	return nil
}

// DeleteRow removes a row; the service resets the last remaining row instead
// of leaving the board empty.
func (h *PortfolioHandler) DeleteRow(c *gin.Context) {
	id := c.Param("id")

	if err := h.svc.RemoveRow(id); err != nil {
		if errors.Is(err, service.ErrRowNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "row not found"})
			return
		}
		h.logger.Error("failed removing row", zap.String("row_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove row"})
		return
	}

	c.Status(http.StatusNoContent)
}

// RefreshPrices runs one quote round across all rows and responds with the
// settled snapshot, which is also broadcast to websocket subscribers.
func (h *PortfolioHandler) RefreshPrices(c *gin.Context) {
	snapshot := h.svc.FetchAllPrices(c.Request.Context())
	if h.hub != nil {
		h.hub.BroadcastJSON(snapshot)
	}
	c.JSON(http.StatusOK, snapshot)
}

// StreamSnapshots upgrades the connection and subscribes it to snapshot
// broadcasts, seeding it with the current state.
func (h *PortfolioHandler) StreamSnapshots(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	// This connection outlives a normal request; drop the deadline the HTTP
	// server set before the hijack.
	_ = conn.NetConn().SetDeadline(time.Time{})

	h.hub.Subscribe(conn)
	if err := conn.WriteJSON(h.svc.Snapshot()); err != nil {
		h.hub.Unsubscribe(conn)
		return
	}

	// Drain inbound frames until the peer goes away; subscribers are
	// write-only from our side.
	go func() {
		defer h.hub.Unsubscribe(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
