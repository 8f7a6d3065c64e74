package api

import (
	"errors"
	"net/http"

	"keyshop/internal/handler/dto/response"
	"keyshop/internal/handler/httperr"
	"keyshop/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type StockHandler struct {
	stockQueries queries.StockQueries
}

func NewStockHandler(stockQueries queries.StockQueries) *StockHandler {
	return &StockHandler{stockQueries: stockQueries}
}

// GET /api/stock
func (h *StockHandler) ListStock(c *gin.Context) {
	views, err := h.stockQueries.ListStock(c.Request.Context())
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, response.FromStockViews(views))
}

// GET /api/stock/:id
func (h *StockHandler) GetStock(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid stock item ID format", nil)
		return
	}

	view, err := h.stockQueries.GetStock(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, queries.ErrStockItemNotFound):
			httperr.AbortWithError(c, http.StatusNotFound, err, "Stock item not found", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}
	c.JSON(http.StatusOK, response.FromStockView(view))
}
