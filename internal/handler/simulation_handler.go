package handler

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/charge-sim-backend/internal/models"
	"github.com/jengzang/charge-sim-backend/internal/service"
	"github.com/jengzang/charge-sim-backend/internal/spatial"
	"github.com/jengzang/charge-sim-backend/pkg/response"
	"github.com/paulmach/orb/geojson"
)

// SimulationHandler handles HTTP requests for simulations
type SimulationHandler struct {
	simulationService *service.SimulationService
}

// NewSimulationHandler creates a new simulation handler
func NewSimulationHandler(simulationService *service.SimulationService) *SimulationHandler {
	return &SimulationHandler{
		simulationService: simulationService,
	}
}

// CreateSimulationRequest is the body of POST /simulations
type CreateSimulationRequest struct {
	Lat  *float64 `json:"lat" binding:"required"`
	Lon  *float64 `json:"lon" binding:"required"`
	Dist int      `json:"dist" binding:"required"` // km
}

// SimulationSiteResponse is the virtual site with the durations from the center
type SimulationSiteResponse struct {
	GeoJSON        *geojson.Feature   `json:"geojson"`
	CitiesDuration map[string]float64 `json:"cities_duration"`
	SitesDuration  map[string]float64 `json:"sites_duration"`
}

// Register mounts the simulation routes on g
func (h *SimulationHandler) Register(g *gin.RouterGroup) {
	simulations := g.Group("/simulations")
	{
		simulations.POST("", h.CreateSimulation)
		simulations.GET("", h.ListSimulations)
		simulations.GET("/:id", h.GetSimulation)
		simulations.DELETE("/:id", h.DeleteSimulation)
		simulations.GET("/:id/cities", h.GetCities)
		simulations.GET("/:id/workfluxes", h.GetWorkfluxes)
		simulations.GET("/:id/tmja", h.GetTMJA)
		simulations.GET("/:id/charging_sites", h.GetChargingSites)
		simulations.GET("/:id/simulation_site", h.GetSimulationSite)
	}
}

// CreateSimulation handles POST /api/v1/simulations
func (h *SimulationHandler) CreateSimulation(c *gin.Context) {
	var req CreateSimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	session, err := h.simulationService.Create(c.Request.Context(), spatial.NewCoordinate(*req.Lat, *req.Lon), req.Dist)
	if err != nil {
		response.Fail(c, err)
		return
	}

	h.sendDocument(c, session)
}

// ListSimulations handles GET /api/v1/simulations
func (h *SimulationHandler) ListSimulations(c *gin.Context) {
	summaries, err := h.simulationService.List(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.Success(c, gin.H{
		"simulations": summaries,
		"count":       len(summaries),
	})
}

// GetSimulation handles GET /api/v1/simulations/:id
func (h *SimulationHandler) GetSimulation(c *gin.Context) {
	session, ok := h.open(c)
	if !ok {
		return
	}
	h.sendDocument(c, session)
}

// DeleteSimulation handles DELETE /api/v1/simulations/:id
func (h *SimulationHandler) DeleteSimulation(c *gin.Context) {
	if err := h.simulationService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id")})
}

// GetCities handles GET /api/v1/simulations/:id/cities
func (h *SimulationHandler) GetCities(c *gin.Context) {
	geometry := c.DefaultQuery("geometry", models.GeometryCenter)
	switch geometry {
	case models.GeometryCenter, models.GeometryMairie, models.GeometryContour:
	default:
		response.Fail(c, models.NewDomainError("Unknown geometry \"%s\"", geometry))
		return
	}

	session, ok := h.open(c)
	if !ok {
		return
	}
	cities, err := session.Cities(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, city := range cities {
		f, err := city.Feature(geometry)
		if err != nil {
			response.Fail(c, err)
			return
		}
		fc.Append(f)
	}
	response.Success(c, fc)
}

// GetWorkfluxes handles GET /api/v1/simulations/:id/workfluxes
func (h *SimulationHandler) GetWorkfluxes(c *gin.Context) {
	session, ok := h.open(c)
	if !ok {
		return
	}
	flows, err := session.Workfluxes(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, flowCollection(flows))
}

// GetTMJA handles GET /api/v1/simulations/:id/tmja
func (h *SimulationHandler) GetTMJA(c *gin.Context) {
	session, ok := h.open(c)
	if !ok {
		return
	}
	flows, err := session.TMJA(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, flowCollection(flows))
}

// GetChargingSites handles GET /api/v1/simulations/:id/charging_sites
func (h *SimulationHandler) GetChargingSites(c *gin.Context) {
	session, ok := h.open(c)
	if !ok {
		return
	}
	sites, err := session.ChargingSites(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, site := range sites {
		fc.Append(site.Feature())
	}
	response.Success(c, fc)
}

// GetSimulationSite handles GET /api/v1/simulations/:id/simulation_site
func (h *SimulationHandler) GetSimulationSite(c *gin.Context) {
	session, ok := h.open(c)
	if !ok {
		return
	}
	site := session.SimulationSite(c.Request.Context())

	response.Success(c, SimulationSiteResponse{
		GeoJSON:        site.Site.Feature(),
		CitiesDuration: site.CitiesDuration,
		SitesDuration:  site.SitesDuration,
	})
}

func (h *SimulationHandler) open(c *gin.Context) (*service.Session, bool) {
	session, err := h.simulationService.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return nil, false
	}
	return session, true
}

func (h *SimulationHandler) sendDocument(c *gin.Context, session *service.Session) {
	doc, err := session.Document()
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, json.RawMessage(doc))
}

func flowCollection(flows []models.TrafficFlow) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range flows {
		fc.Append(f.Feature())
	}
	return fc
}
