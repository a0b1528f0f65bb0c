package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"paisa/internal/store"
)

// SummaryHandler serves the read-side aggregates the UI renders at a glance.
type SummaryHandler struct {
	aggregator *store.Aggregator
}

// NewSummaryHandler creates a new SummaryHandler.
func NewSummaryHandler(aggregator *store.Aggregator) *SummaryHandler {
	return &SummaryHandler{aggregator: aggregator}
}

// GetSummary returns income/expense totals for a single calendar date. The
// date query parameter defaults to today.
func (h *SummaryHandler) GetSummary(c *gin.Context) {
	var (
		summary *store.Summary
		err     error
	)
	if date := c.Query("date"); date != "" {
		summary, err = h.aggregator.SummaryFor(date)
	} else {
		summary, err = h.aggregator.TodaySummary()
	}
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GetBalance returns the signed running total across all transactions.
func (h *SummaryHandler) GetBalance(c *gin.Context) {
	balance, err := h.aggregator.Balance()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// GetCategoryTotals returns per-category totals over an optional date range
// given by the from_date and to_date query parameters.
func (h *SummaryHandler) GetCategoryTotals(c *gin.Context) {
	totals, err := h.aggregator.CategoryTotals(c.Query("from_date"), c.Query("to_date"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	if totals == nil {
		totals = []store.CategoryTotal{}
	}

	c.JSON(http.StatusOK, gin.H{"categories": totals})
}
