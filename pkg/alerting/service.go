package alerting

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pcmindustrial/pcm/pkg/lifecycle"
	"github.com/pcmindustrial/pcm/pkg/metrics"
	"github.com/pcmindustrial/pcm/pkg/model"
)

const autoOpenNote = "Chamado aberto automaticamente por regra de alerta."

type RuleRepository interface {
	ActiveForEquipment(ctx context.Context, equipmentID uuid.UUID) ([]model.AlertRule, error)
}

type EquipmentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Equipment, error)
}

type CallRepository interface {
	Create(ctx context.Context, call *model.MaintenanceCall) error
}

// Service matches sensor readings against active alert rules and opens
// automatic maintenance calls for every rule they trip.
type Service struct {
	rules     RuleRepository
	equipment EquipmentRepository
	calls     CallRepository
	engine    *lifecycle.Engine
	logger    *zap.Logger
}

func NewService(rules RuleRepository, equipment EquipmentRepository, calls CallRepository, engine *lifecycle.Engine, logger *zap.Logger) *Service {
	return &Service{
		rules:     rules,
		equipment: equipment,
		calls:     calls,
		engine:    engine,
		logger:    logger,
	}
}

// ProcessReading evaluates one reading on behalf of actor and returns the
// calls it opened. A reading that trips no rule returns an empty slice.
func (s *Service) ProcessReading(ctx context.Context, actor model.User, equipmentID uuid.UUID, metric string, value float64) ([]*model.MaintenanceCall, error) {
	rules, err := s.rules.ActiveForEquipment(ctx, equipmentID)
	if err != nil {
		return nil, err
	}

	var opened []*model.MaintenanceCall
	for _, rule := range rules {
		if rule.Metric != metric {
			continue
		}
		if !Matches(rule, value) {
			continue
		}

		call, err := s.openForRule(ctx, actor, rule, value)
		if err != nil {
			s.logger.Warn("failed to open automatic call",
				zap.Error(err),
				zap.String("rule_id", rule.ID.String()),
				zap.String("equipment_id", equipmentID.String()),
			)
			return opened, err
		}
		metrics.AlertRuleTriggers.WithLabelValues(rule.Metric).Inc()
		opened = append(opened, call)
	}

	return opened, nil
}

func (s *Service) openForRule(ctx context.Context, actor model.User, rule model.AlertRule, value float64) (*model.MaintenanceCall, error) {
	equipment, err := s.equipment.GetByID(ctx, rule.EquipmentID)
	if err != nil {
		return nil, err
	}

	call, err := s.engine.Open(actor, lifecycle.OpenParams{
		Equipment:   equipment,
		Priority:    model.PriorityCritico,
		Description: fmt.Sprintf("[AUTO] %s: %s %.2f (limite %.2f)", equipment.Name, rule.Metric, value, rule.Threshold),
		ProblemType: rule.Metric,
		Category:    model.CategoryCorretiva,
		Source:      model.SourceAutomatico,
		Notes:       autoOpenNote,
	})
	if err != nil {
		return nil, err
	}

	if err := s.calls.Create(ctx, call); err != nil {
		return nil, err
	}

	s.logger.Info("automatic call opened",
		zap.String("call_id", call.ID.String()),
		zap.String("equipment_id", equipment.ID.String()),
		zap.String("metric", rule.Metric),
		zap.Float64("value", value),
	)

	return call, nil
}
