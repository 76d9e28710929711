package admin

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"blogPlatform/internal/apperr"
	"blogPlatform/internal/service"
	"blogPlatform/models"
)

func (s *Service) ListSettings(ctx context.Context) ([]models.SystemConfiguration, error) {
	out, err := s.settings.List(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, "list settings")
	}
	if out == nil {
		out = []models.SystemConfiguration{}
	}
	return out, nil
}

func (s *Service) GetSetting(ctx context.Context, key string) (*models.SystemConfiguration, error) {
	c, err := s.settings.Get(ctx, strings.TrimSpace(key))
	if err != nil {
		return nil, apperr.Wrap(err, "get setting")
	}
	if c == nil {
		return nil, apperr.NotFound("setting %q not found", key)
	}
	return c, nil
}

// UpdateSetting stores a new value for a known key. Superadmin only.
func (s *Service) UpdateSetting(ctx context.Context, actor *models.AdminUser, key, value string) (*models.SystemConfiguration, error) {
	if err := requireSuper(actor); err != nil {
		return nil, err
	}
	key = strings.TrimSpace(key)
	norm, err := service.NormalizeSetting(key, value)
	if err != nil {
		return nil, err
	}
	prev, err := s.settings.Get(ctx, key)
	if err != nil {
		return nil, apperr.Wrap(err, "get setting")
	}
	by := actor.ID
	if err := s.settings.Set(ctx, key, norm, &by); err != nil {
		return nil, apperr.Wrap(err, "update setting")
	}
	details := map[string]any{"key": key, "value": norm}
	if prev != nil {
		details["previous"] = prev.Value
	}
	s.record(ctx, actor, ActionUpdateSetting, "setting", 0, details)
	s.log.Info("setting updated", zap.String("key", key), zap.Int64("admin_id", actor.ID))
	return s.GetSetting(ctx, key)
}
