package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pcmindustrial/pcm/pkg/model"
	"github.com/pcmindustrial/pcm/pkg/scope"
	"github.com/pcmindustrial/pcm/pkg/store/postgres"
)

type CompanyHandler struct {
	db     *postgres.Store
	logger *zap.Logger
}

func NewCompanyHandler(db *postgres.Store, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{db: db, logger: logger}
}

type companyResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Region        string `json:"region,omitempty"`
	Administrator string `json:"administrator,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

type plantResponse struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	TaxID     string `json:"tax_id,omitempty"`
	Address   string `json:"address,omitempty"`
}

func (h *CompanyHandler) List(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	companies, err := postgres.NewCompanyRepository(h.db.DB()).List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list companies", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list companies"})
		return
	}

	response := make([]companyResponse, 0, len(companies))
	for _, company := range companies {
		if actor.Role != model.RoleSystemAdministrator {
			if actor.CompanyID == nil || *actor.CompanyID != company.ID {
				continue
			}
		}
		response = append(response, mapCompany(company))
	}

	c.JSON(http.StatusOK, response)
}

type companyCreateRequest struct {
	Name          string `json:"name" binding:"required"`
	Region        string `json:"region"`
	Administrator string `json:"administrator"`
	Phone         string `json:"phone"`
}

func (h *CompanyHandler) Create(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if actor.Role != model.RoleSystemAdministrator {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the system administrator manages companies"})
		return
	}

	var req companyCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	company := &model.Company{
		ID:            uuid.New(),
		Name:          req.Name,
		Region:        req.Region,
		Administrator: req.Administrator,
		Phone:         req.Phone,
	}
	if err := postgres.NewCompanyRepository(h.db.DB()).Create(c.Request.Context(), company); err != nil {
		h.logger.Error("failed to create company", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create company"})
		return
	}

	c.JSON(http.StatusCreated, mapCompany(*company))
}

func (h *CompanyHandler) ListPlants(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	plants, err := postgres.NewPlantRepository(h.db.DB()).ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list plants", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list plants"})
		return
	}

	visible := scope.FilterPlants(scope.Resolve(actor, plants), plants)

	response := make([]plantResponse, 0, len(visible))
	for _, plant := range visible {
		response = append(response, mapPlant(plant))
	}

	c.JSON(http.StatusOK, response)
}

type plantCreateRequest struct {
	CompanyID string `json:"company_id" binding:"required"`
	Code      string `json:"code" binding:"required"`
	Name      string `json:"name" binding:"required"`
	TaxID     string `json:"tax_id"`
	Address   string `json:"address"`
}

func (h *CompanyHandler) CreatePlant(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if !actor.Role.AdminTier() {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}

	var req plantCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company_id"})
		return
	}

	// Non-global admins may only add plants to their own company.
	if actor.Role != model.RoleSystemAdministrator {
		if actor.CompanyID == nil || *actor.CompanyID != companyID {
			c.JSON(http.StatusForbidden, gin.H{"error": "plant must belong to your company"})
			return
		}
	}

	plant := &model.Plant{
		ID:        uuid.New(),
		CompanyID: companyID,
		Code:      req.Code,
		Name:      req.Name,
		TaxID:     req.TaxID,
		Address:   req.Address,
	}
	if err := postgres.NewPlantRepository(h.db.DB()).Create(c.Request.Context(), plant); err != nil {
		h.logger.Error("failed to create plant", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create plant"})
		return
	}

	c.JSON(http.StatusCreated, mapPlant(*plant))
}

func mapCompany(company model.Company) companyResponse {
	return companyResponse{
		ID:            company.ID.String(),
		Name:          company.Name,
		Region:        company.Region,
		Administrator: company.Administrator,
		Phone:         company.Phone,
	}
}

func mapPlant(plant model.Plant) plantResponse {
	return plantResponse{
		ID:        plant.ID.String(),
		CompanyID: plant.CompanyID.String(),
		Code:      plant.Code,
		Name:      plant.Name,
		TaxID:     plant.TaxID,
		Address:   plant.Address,
	}
}
