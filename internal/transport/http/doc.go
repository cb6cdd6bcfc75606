// Package http implements the dashboard's HTTP request handlers. Handlers stay
// thin: they parse and validate the request, call the dashboard or health
// service, and render the result with go-chi/render.
//
// # Handler Structure
//
// Each handler follows this pattern:
//
//	func (h *ChartHandler) GetChart(w http.ResponseWriter, r *http.Request) {
//	    params, err := h.chartParams(r)
//	    if err != nil {
//	        h.errorHandler.HandleError(w, r, err)
//	        return
//	    }
//	    res, err := h.service.Chart(r.Context(), chi.URLParam(r, "id"), params)
//	    if err != nil {
//	        h.errorHandler.HandleError(w, r, err)
//	        return
//	    }
//	    render.JSON(w, r, api.ChartResponse{...})
//	}
//
// # Error Handling
//
// Errors are rendered as RFC 7807 problem details by the errors package. An
// unknown chart id always answers 404 and lists the valid ids:
//
//	{
//	    "type": "/errors/chart/not-found",
//	    "title": "Chart Not Found",
//	    "status": 404,
//	    "error_code": "CHART_NOT_FOUND",
//	    "details": {"valid_ids": ["revenue", "employees", ...]}
//	}
//
// A chart without eligible data is not an error: the response carries
// "config": null with status 200.
//
// # Testing
//
// Handlers are tested with httptest against a testify mock of the
// DashboardService interface.
package http
