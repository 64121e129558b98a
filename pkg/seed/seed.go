// Package seed loads the embedded demo dataset into an empty store so a
// fresh installation comes up with working logins, equipment and calls.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/pcmindustrial/pcm/pkg/auth"
	"github.com/pcmindustrial/pcm/pkg/lifecycle"
	"github.com/pcmindustrial/pcm/pkg/model"
	"github.com/pcmindustrial/pcm/pkg/permission"
)

//go:embed dataset.yaml
var datasetYAML []byte

type dataset struct {
	Companies []companyEntry   `yaml:"companies"`
	Plants    []plantEntry     `yaml:"plants"`
	Teams     []teamEntry      `yaml:"teams"`
	Users     []userEntry      `yaml:"users"`
	Equipment []equipmentEntry `yaml:"equipment"`
	Failures  []failureEntry   `yaml:"failures"`
	Calls     []callEntry      `yaml:"calls"`
	Rules     []ruleEntry      `yaml:"alert_rules"`
}

type companyEntry struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type plantEntry struct {
	Key     string `yaml:"key"`
	Company string `yaml:"company"`
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
}

type teamEntry struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type userEntry struct {
	Login   string `yaml:"login"`
	Name    string `yaml:"name"`
	Role    string `yaml:"role"`
	Company string `yaml:"company"`
	Plant   string `yaml:"plant"`
	Team    string `yaml:"team"`
}

type equipmentEntry struct {
	Key             string  `yaml:"key"`
	Plant           string  `yaml:"plant"`
	Name            string  `yaml:"name"`
	Type            string  `yaml:"type"`
	Line            string  `yaml:"line"`
	AvailabilityPct float64 `yaml:"availability_pct"`
	MTTRHours       float64 `yaml:"mttr_hours"`
	MTBFHours       float64 `yaml:"mtbf_hours"`
}

type failureEntry struct {
	Equipment     string  `yaml:"equipment"`
	DaysAgo       int     `yaml:"days_ago"`
	Description   string  `yaml:"description"`
	DowntimeHours float64 `yaml:"downtime_hours"`
}

type callEntry struct {
	Equipment      string `yaml:"equipment"`
	Requester      string `yaml:"requester"`
	AssignedBy     string `yaml:"assigned_by"`
	Responsible    string `yaml:"responsible"`
	Priority       string `yaml:"priority"`
	Category       string `yaml:"category"`
	ProblemType    string `yaml:"problem_type"`
	Description    string `yaml:"description"`
	Stage          string `yaml:"stage"`
	CancelledBy    string `yaml:"cancelled_by"`
	CancelReason   string `yaml:"cancel_reason"`
	OpenedHoursAgo int    `yaml:"opened_hours_ago"`
}

type ruleEntry struct {
	Equipment      string   `yaml:"equipment"`
	Metric         string   `yaml:"metric"`
	Condition      string   `yaml:"condition"`
	Threshold      float64  `yaml:"threshold"`
	ThresholdUpper *float64 `yaml:"threshold_upper"`
	Description    string   `yaml:"description"`
}

// bundle is the fully resolved dataset, ready to persist.
type bundle struct {
	Companies []model.Company
	Plants    []model.Plant
	Teams     []model.Team
	Users     []model.User
	Equipment []model.Equipment
	Failures  []model.FailureRecord
	Calls     []*model.MaintenanceCall
	Rules     []model.AlertRule
	Grants    []model.PermissionGrant
}

func parseDataset() (*dataset, error) {
	var ds dataset
	if err := yaml.Unmarshal(datasetYAML, &ds); err != nil {
		return nil, fmt.Errorf("parsing seed dataset: %w", err)
	}
	return &ds, nil
}

// build resolves symbolic references and drives staged calls through the
// lifecycle engine so seeded event logs obey the same invariants as live ones.
func build(ds *dataset, passwordHash string, now time.Time) (*bundle, error) {
	out := &bundle{}

	companies := map[string]uuid.UUID{}
	for _, entry := range ds.Companies {
		company := model.Company{ID: uuid.New(), Name: entry.Name}
		companies[entry.Key] = company.ID
		out.Companies = append(out.Companies, company)
	}

	plants := map[string]*model.Plant{}
	for _, entry := range ds.Plants {
		companyID, ok := companies[entry.Company]
		if !ok {
			return nil, fmt.Errorf("plant %q references unknown company %q", entry.Key, entry.Company)
		}
		plant := model.Plant{ID: uuid.New(), CompanyID: companyID, Code: entry.Code, Name: entry.Name}
		plants[entry.Key] = &plant
		out.Plants = append(out.Plants, plant)
	}

	teams := map[string]uuid.UUID{}
	for _, entry := range ds.Teams {
		team := model.Team{ID: uuid.New(), Name: entry.Name}
		teams[entry.Key] = team.ID
		out.Teams = append(out.Teams, team)
	}

	users := map[string]*model.User{}
	for _, entry := range ds.Users {
		role := model.Role(entry.Role)
		if !role.Valid() {
			return nil, fmt.Errorf("user %q has unknown role %q", entry.Login, entry.Role)
		}
		user := model.User{
			ID:           uuid.New(),
			Login:        entry.Login,
			Name:         entry.Name,
			PasswordHash: passwordHash,
			Role:         role,
		}
		if entry.Company != "" {
			companyID, ok := companies[entry.Company]
			if !ok {
				return nil, fmt.Errorf("user %q references unknown company %q", entry.Login, entry.Company)
			}
			user.CompanyID = &companyID
		}
		if entry.Plant != "" {
			plant, ok := plants[entry.Plant]
			if !ok {
				return nil, fmt.Errorf("user %q references unknown plant %q", entry.Login, entry.Plant)
			}
			plantID := plant.ID
			user.PlantID = &plantID
		}
		if entry.Team != "" {
			teamID, ok := teams[entry.Team]
			if !ok {
				return nil, fmt.Errorf("user %q references unknown team %q", entry.Login, entry.Team)
			}
			user.TeamID = &teamID
		}
		users[entry.Login] = &user
		out.Users = append(out.Users, user)
	}

	equipment := map[string]*model.Equipment{}
	for _, entry := range ds.Equipment {
		plant, ok := plants[entry.Plant]
		if !ok {
			return nil, fmt.Errorf("equipment %q references unknown plant %q", entry.Key, entry.Plant)
		}
		item := model.Equipment{
			ID:              uuid.New(),
			PlantID:         plant.ID,
			Name:            entry.Name,
			Type:            model.EquipmentType(entry.Type),
			Line:            entry.Line,
			AvailabilityPct: entry.AvailabilityPct,
			MTTRHours:       entry.MTTRHours,
			MTBFHours:       entry.MTBFHours,
		}
		equipment[entry.Key] = &item
		out.Equipment = append(out.Equipment, item)
	}

	for _, entry := range ds.Failures {
		item, ok := equipment[entry.Equipment]
		if !ok {
			return nil, fmt.Errorf("failure references unknown equipment %q", entry.Equipment)
		}
		out.Failures = append(out.Failures, model.FailureRecord{
			ID:            uuid.New(),
			EquipmentID:   item.ID,
			Date:          now.AddDate(0, 0, -entry.DaysAgo),
			Description:   entry.Description,
			DowntimeHours: entry.DowntimeHours,
		})
	}

	for i, entry := range ds.Calls {
		call, err := buildCall(entry, users, equipment, now)
		if err != nil {
			return nil, fmt.Errorf("call %d: %w", i, err)
		}
		out.Calls = append(out.Calls, call)
	}

	for _, entry := range ds.Rules {
		item, ok := equipment[entry.Equipment]
		if !ok {
			return nil, fmt.Errorf("alert rule references unknown equipment %q", entry.Equipment)
		}
		out.Rules = append(out.Rules, model.AlertRule{
			ID:             uuid.New(),
			EquipmentID:    item.ID,
			Metric:         entry.Metric,
			Condition:      model.AlertCondition(entry.Condition),
			Threshold:      entry.Threshold,
			ThresholdUpper: entry.ThresholdUpper,
			Description:    entry.Description,
			IsActive:       true,
		})
	}

	out.Grants = permission.Default().Grants()

	return out, nil
}

// buildCall replays the requested stage through the engine with a clock that
// advances two hours per step, so timestamps land in the recent past.
func buildCall(entry callEntry, users map[string]*model.User, equipment map[string]*model.Equipment, now time.Time) (*model.MaintenanceCall, error) {
	item, ok := equipment[entry.Equipment]
	if !ok {
		return nil, fmt.Errorf("unknown equipment %q", entry.Equipment)
	}
	requester, ok := users[entry.Requester]
	if !ok {
		return nil, fmt.Errorf("unknown requester %q", entry.Requester)
	}

	cursor := now.Add(-time.Duration(entry.OpenedHoursAgo) * time.Hour)
	engine := lifecycle.NewEngineWithClock(func() time.Time { return cursor })
	step := func() { cursor = cursor.Add(2 * time.Hour) }

	call, err := engine.Open(*requester, lifecycle.OpenParams{
		Equipment:   item,
		Priority:    model.CallPriority(entry.Priority),
		Description: entry.Description,
		ProblemType: entry.ProblemType,
		Category:    model.MaintenanceCategory(entry.Category),
		Source:      model.SourceManual,
	})
	if err != nil {
		return nil, err
	}

	if entry.Stage == "aberto" {
		return call, nil
	}

	if entry.Stage == "cancelado" {
		canceller, ok := users[entry.CancelledBy]
		if !ok {
			return nil, fmt.Errorf("unknown cancelling user %q", entry.CancelledBy)
		}
		step()
		return call, engine.Cancel(*canceller, call, entry.CancelReason)
	}

	assigner, ok := users[entry.AssignedBy]
	if !ok {
		return nil, fmt.Errorf("unknown assigning user %q", entry.AssignedBy)
	}
	technician, ok := users[entry.Responsible]
	if !ok {
		return nil, fmt.Errorf("unknown responsible %q", entry.Responsible)
	}

	step()
	if err := engine.Assign(*assigner, call, *technician); err != nil {
		return nil, err
	}
	if entry.Stage == "em_andamento" {
		return call, nil
	}

	step()
	if err := engine.Resolve(*technician, call); err != nil {
		return nil, err
	}
	if entry.Stage == "aguardando_aprovacao" {
		return call, nil
	}

	step()
	if err := engine.Approve(*requester, call); err != nil {
		return nil, err
	}
	if entry.Stage == "encerrado" {
		return call, nil
	}

	return nil, fmt.Errorf("unknown stage %q", entry.Stage)
}

// Loader seeds the database once, when no users exist yet.
type Loader struct {
	db              *gorm.DB
	logger          *zap.Logger
	defaultPassword string
}

func NewLoader(db *gorm.DB, logger *zap.Logger, defaultPassword string) *Loader {
	return &Loader{db: db, logger: logger, defaultPassword: defaultPassword}
}

// Run is a no-op when users already exist.
func (l *Loader) Run(ctx context.Context) error {
	var count int64
	if err := l.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	ds, err := parseDataset()
	if err != nil {
		return err
	}

	passwordHash, err := auth.HashPassword(l.defaultPassword)
	if err != nil {
		return err
	}

	data, err := build(ds, passwordHash, time.Now().UTC())
	if err != nil {
		return err
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&data.Companies).Error; err != nil {
			return err
		}
		if err := tx.Create(&data.Plants).Error; err != nil {
			return err
		}
		if err := tx.Create(&data.Teams).Error; err != nil {
			return err
		}
		if err := tx.Create(&data.Users).Error; err != nil {
			return err
		}
		if err := tx.Create(&data.Equipment).Error; err != nil {
			return err
		}
		if err := tx.Create(&data.Failures).Error; err != nil {
			return err
		}
		for _, call := range data.Calls {
			if err := tx.Create(call).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(&data.Rules).Error; err != nil {
			return err
		}
		return tx.Create(&data.Grants).Error
	})
	if err != nil {
		return err
	}

	l.logger.Info("seeded empty database",
		zap.Int("companies", len(data.Companies)),
		zap.Int("plants", len(data.Plants)),
		zap.Int("users", len(data.Users)),
		zap.Int("equipment", len(data.Equipment)),
		zap.Int("calls", len(data.Calls)),
		zap.Int("alert_rules", len(data.Rules)),
	)

	return nil
}
