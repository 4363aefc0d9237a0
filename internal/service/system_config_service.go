package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ficha-attendance/backend/internal/dto"
	"ficha-attendance/backend/internal/repository"
)

var (
	// ErrInvalidSystemConfig 配置值越界
	ErrInvalidSystemConfig = errors.New("系统配置值无效")
	// ErrEmptyConfigUpdate 请求未给出任何配置项
	ErrEmptyConfigUpdate = errors.New("未提供需要更新的配置项")
)

// 配置项（与请求 JSON 字段名一致）
const (
	ConfigFieldDefaultTolerance = "default_tolerance_minutes"
	ConfigFieldEarlyArrival     = "early_arrival_margin_minutes"
)

// ConfigFieldError 单个配置项越界，errors.Is(err, ErrInvalidSystemConfig) 为真
type ConfigFieldError struct {
	Field string
	Value int
}

func (e *ConfigFieldError) Error() string {
	return fmt.Sprintf("%s=%d 超出 0-%d 分钟", e.Field, e.Value, maxConfigMinutes)
}

func (e *ConfigFieldError) Unwrap() error { return ErrInvalidSystemConfig }

// maxConfigMinutes 容忍/提前量的上限（分钟）
const maxConfigMinutes = 240

// SystemConfigService 系统配置业务接口
type SystemConfigService interface {
	Get(ctx context.Context) (*dto.SystemConfigResponse, error)
	Update(ctx context.Context, req *dto.UpdateSystemConfigRequest, callerID string) (*dto.SystemConfigResponse, error)
}

type systemConfigService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSystemConfigService 创建 SystemConfigService 实例
func NewSystemConfigService(repo *repository.Repository, logger *zap.Logger) SystemConfigService {
	return &systemConfigService{repo: repo, logger: logger}
}

func (s *systemConfigService) Get(ctx context.Context) (*dto.SystemConfigResponse, error) {
	cfg, err := loadSystemConfig(ctx, s.repo)
	if err != nil {
		s.logger.Error("读取系统配置失败", zap.Error(err))
		return nil, err
	}
	return &dto.SystemConfigResponse{
		DefaultToleranceMinutes:   cfg.DefaultToleranceMinutes,
		EarlyArrivalMarginMinutes: cfg.EarlyArrivalMarginMinutes,
		ExcusedCountsAsAttended:   cfg.ExcusedCountsAsAttended,
		UpdatedAt:                 formatTimestamp(cfg.UpdatedAt),
	}, nil
}

// Update 只更新请求中给出的字段；已生成的课次保留各自的容忍分钟
func (s *systemConfigService) Update(ctx context.Context, req *dto.UpdateSystemConfigRequest, callerID string) (*dto.SystemConfigResponse, error) {
	if req.DefaultToleranceMinutes == nil && req.EarlyArrivalMarginMinutes == nil && req.ExcusedCountsAsAttended == nil {
		return nil, ErrEmptyConfigUpdate
	}
	for _, f := range []struct {
		name string
		v    *int
	}{
		{ConfigFieldDefaultTolerance, req.DefaultToleranceMinutes},
		{ConfigFieldEarlyArrival, req.EarlyArrivalMarginMinutes},
	} {
		if f.v != nil && (*f.v < 0 || *f.v > maxConfigMinutes) {
			return nil, &ConfigFieldError{Field: f.name, Value: *f.v}
		}
	}

	cfg, err := loadSystemConfig(ctx, s.repo)
	if err != nil {
		return nil, err
	}
	if req.DefaultToleranceMinutes != nil {
		cfg.DefaultToleranceMinutes = *req.DefaultToleranceMinutes
	}
	if req.EarlyArrivalMarginMinutes != nil {
		cfg.EarlyArrivalMarginMinutes = *req.EarlyArrivalMarginMinutes
	}
	if req.ExcusedCountsAsAttended != nil {
		cfg.ExcusedCountsAsAttended = *req.ExcusedCountsAsAttended
	}
	cfg.UpdatedBy = &callerID

	if err := s.repo.SystemConfig.Update(ctx, cfg); err != nil {
		s.logger.Error("更新系统配置失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("系统配置已更新",
		zap.String("updated_by", callerID),
		zap.Int("default_tolerance_minutes", cfg.DefaultToleranceMinutes),
		zap.Int("early_arrival_margin_minutes", cfg.EarlyArrivalMarginMinutes),
		zap.Bool("excused_counts_as_attended", cfg.ExcusedCountsAsAttended))

	return s.Get(ctx)
}
