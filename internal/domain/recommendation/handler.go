package recommendation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/clinical-ai/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/ai-recommendations")

	g.GET("/patient/:patientId", h.ListForPatient)
	g.GET("/patient/:patientId/category/:category", h.ListForPatientByCategory)
	g.GET("/patient/:patientId/priority/:priority", h.ListForPatientByPriority)
	g.GET("/patient/:patientId/recent", h.ListRecentForPatient)
	g.GET("/patient/:patientId/summary", h.PatientSummary)
	g.GET("/category/:category/recent", h.ListRecentForCategory)
	g.GET("/:id", h.GetRecommendation)
}

func (h *Handler) GetRecommendation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "recommendation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListForPatient(c echo.Context) error {
	items, err := h.svc.ListByPatient(c.Request().Context(), c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return h.paged(c, items)
}

func (h *Handler) ListForPatientByCategory(c echo.Context) error {
	items, err := h.svc.ListByPatientAndCategory(c.Request().Context(), c.Param("patientId"), c.Param("category"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.paged(c, items)
}

func (h *Handler) ListForPatientByPriority(c echo.Context) error {
	items, err := h.svc.ListByPatientAndPriority(c.Request().Context(), c.Param("patientId"), c.Param("priority"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return h.paged(c, items)
}

func (h *Handler) ListRecentForPatient(c echo.Context) error {
	days, _ := strconv.Atoi(c.QueryParam("days"))
	items, err := h.svc.ListRecentByPatient(c.Request().Context(), c.Param("patientId"), days)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return h.paged(c, items)
}

func (h *Handler) ListRecentForCategory(c echo.Context) error {
	hours, _ := strconv.Atoi(c.QueryParam("hours"))
	items, err := h.svc.ListRecentByCategory(c.Request().Context(), c.Param("category"), hours)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.paged(c, items)
}

func (h *Handler) PatientSummary(c echo.Context) error {
	summary, err := h.svc.PatientSummary(c.Request().Context(), c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}

// paged slices a full result set into the requested page. List volumes here
// are per-patient and small, so repositories return complete lists and the
// handler windows them.
func (h *Handler) paged(c echo.Context, items []*Recommendation) error {
	if items == nil {
		items = []*Recommendation{}
	}
	pg := pagination.FromContext(c)
	total := len(items)

	start := pg.Offset
	if start > total {
		start = total
	}
	end := start + pg.Limit
	if end > total {
		end = total
	}

	return c.JSON(http.StatusOK, pagination.NewResponse(items[start:end], total, pg.Limit, pg.Offset))
}
