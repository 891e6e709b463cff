package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/campuspulse-backend/internal/http/response"
	"github.com/yungbote/campuspulse-backend/internal/services"
)

type CampusHandler struct {
	aggregate services.AggregationService
	reports   services.CampusReportService
}

func NewCampusHandler(aggregate services.AggregationService, reports services.CampusReportService) *CampusHandler {
	return &CampusHandler{aggregate: aggregate, reports: reports}
}

func (h *CampusHandler) Stats(c *gin.Context) {
	stats, err := h.aggregate.ComputeStats(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err, "store_unavailable")
		return
	}
	response.RespondOK(c, stats)
}

func (h *CampusHandler) Reports(c *gin.Context) {
	reports, err := h.aggregate.ListReports(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err, "store_unavailable")
		return
	}
	response.RespondOK(c, gin.H{"reports": reports, "count": len(reports)})
}

// Analysis always answers 200 once the store is readable; the status field
// tells the operator whether the analysis came back and why not.
func (h *CampusHandler) Analysis(c *gin.Context) {
	res, err := h.reports.Summarize(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err, "store_unavailable")
		return
	}
	response.RespondOK(c, res)
}
