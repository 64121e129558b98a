package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pcmindustrial/pcm/pkg/model"
	"github.com/pcmindustrial/pcm/pkg/scope"
)

type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) Create(ctx context.Context, company *model.Company) error {
	return r.db.WithContext(ctx).Create(company).Error
}

func (r *CompanyRepository) List(ctx context.Context) ([]model.Company, error) {
	var companies []model.Company
	err := r.db.WithContext(ctx).Order("name ASC").Find(&companies).Error
	return companies, err
}

func (r *CompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Company, error) {
	var company model.Company
	if err := r.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

type PlantRepository struct {
	db *gorm.DB
}

func NewPlantRepository(db *gorm.DB) *PlantRepository {
	return &PlantRepository{db: db}
}

func (r *PlantRepository) Create(ctx context.Context, plant *model.Plant) error {
	return r.db.WithContext(ctx).Create(plant).Error
}

// ListAll returns every plant; the scope resolver needs the full set to map
// a company to its plant IDs.
func (r *PlantRepository) ListAll(ctx context.Context) ([]model.Plant, error) {
	var plants []model.Plant
	err := r.db.WithContext(ctx).Order("name ASC").Find(&plants).Error
	return plants, err
}

type TeamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) Create(ctx context.Context, team *model.Team) error {
	return r.db.WithContext(ctx).Create(team).Error
}

func (r *TeamRepository) List(ctx context.Context) ([]model.Team, error) {
	var teams []model.Team
	err := r.db.WithContext(ctx).Order("name ASC").Find(&teams).Error
	return teams, err
}

func (r *TeamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.Team{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, "login = ?", login).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns users visible to the actor: everyone for an unrestricted
// scope, otherwise the actor's company only.
func (r *UserRepository) List(ctx context.Context, companyID *uuid.UUID) ([]model.User, error) {
	query := r.db.WithContext(ctx).Model(&model.User{})
	if companyID != nil {
		query = query.Where("company_id = ?", *companyID)
	}
	var users []model.User
	err := query.Order("name ASC").Find(&users).Error
	return users, err
}

// ListTechnicians returns the assignment candidates for a call: TECNICO_PCM
// users of the given company.
func (r *UserRepository) ListTechnicians(ctx context.Context, companyID uuid.UUID) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND company_id = ?", model.RoleTecnicoPcm, companyID).
		Order("name ASC").
		Find(&users).Error
	return users, err
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type EquipmentRepository struct {
	db *gorm.DB
}

func NewEquipmentRepository(db *gorm.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

func (r *EquipmentRepository) Create(ctx context.Context, equipment *model.Equipment) error {
	return r.db.WithContext(ctx).Create(equipment).Error
}

func (r *EquipmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Equipment, error) {
	var equipment model.Equipment
	err := r.db.WithContext(ctx).
		Preload("FailureHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("date DESC")
		}).
		First(&equipment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &equipment, nil
}

func (r *EquipmentRepository) ListScoped(ctx context.Context, sc scope.Scope) ([]model.Equipment, error) {
	if sc.Empty() {
		return []model.Equipment{}, nil
	}
	query := r.db.WithContext(ctx).Model(&model.Equipment{})
	if !sc.All {
		query = query.Where("plant_id IN ?", sc.PlantIDs)
	}
	var equipment []model.Equipment
	err := query.Order("name ASC").Find(&equipment).Error
	return equipment, err
}

// AddFailure appends to the equipment's failure history. Records are never
// updated or deleted.
func (r *EquipmentRepository) AddFailure(ctx context.Context, record *model.FailureRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

type AlertRuleRepository struct {
	db *gorm.DB
}

func NewAlertRuleRepository(db *gorm.DB) *AlertRuleRepository {
	return &AlertRuleRepository{db: db}
}

func (r *AlertRuleRepository) Create(ctx context.Context, rule *model.AlertRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *AlertRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AlertRule, error) {
	var rule model.AlertRule
	err := r.db.WithContext(ctx).Preload("Equipment").First(&rule, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *AlertRuleRepository) ListScoped(ctx context.Context, sc scope.Scope) ([]model.AlertRule, error) {
	if sc.Empty() {
		return []model.AlertRule{}, nil
	}
	query := r.db.WithContext(ctx).Model(&model.AlertRule{})
	if !sc.All {
		query = query.
			Joins("JOIN equipment ON equipment.id = alert_rules.equipment_id").
			Where("equipment.plant_id IN ?", sc.PlantIDs)
	}
	var rules []model.AlertRule
	err := query.Find(&rules).Error
	return rules, err
}

func (r *AlertRuleRepository) ActiveForEquipment(ctx context.Context, equipmentID uuid.UUID) ([]model.AlertRule, error) {
	var rules []model.AlertRule
	err := r.db.WithContext(ctx).
		Where("equipment_id = ? AND is_active = ?", equipmentID, true).
		Find(&rules).Error
	return rules, err
}

func (r *AlertRuleRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.AlertRule{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) Load(ctx context.Context) ([]model.PermissionGrant, error) {
	var grants []model.PermissionGrant
	err := r.db.WithContext(ctx).Find(&grants).Error
	return grants, err
}

// Replace persists the whole table atomically; every mutation rewrites all
// rows so the stored table always matches one coherent in-memory table.
func (r *PermissionRepository) Replace(ctx context.Context, grants []model.PermissionGrant) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.PermissionGrant{}).Error; err != nil {
			return err
		}
		if len(grants) == 0 {
			return nil
		}
		return tx.Create(&grants).Error
	})
}
