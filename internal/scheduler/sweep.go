// Package scheduler 进程内定时任务
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"ficha-attendance/backend/internal/dto"
	"ficha-attendance/backend/pkg/clock"
)

// defaultRunTimeout 单次补录的最长执行时间
const defaultRunTimeout = 4 * time.Minute

// Sweeper 默认缺勤补录，由 AttendanceService 实现
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (*dto.SweepResult, error)
}

// SweepJob 按 cron 表达式周期执行默认缺勤补录
// 上一轮未结束时跳过本轮
type SweepJob struct {
	cron    *cron.Cron
	sweeper Sweeper
	clock   clock.Clock
	timeout time.Duration
	logger  *zap.Logger
}

// NewSweepJob 创建定时补录任务，spec 为标准 5 段 cron 表达式，按机构时区解释
func NewSweepJob(spec string, loc *time.Location, sweeper Sweeper, clk clock.Clock, logger *zap.Logger) (*SweepJob, error) {
	cl := cronLogger{logger.Sugar()}
	j := &SweepJob{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sweeper: sweeper,
		clock:   clk,
		timeout: defaultRunTimeout,
		logger:  logger,
	}

	if _, err := j.cron.AddFunc(spec, j.RunOnce); err != nil {
		return nil, fmt.Errorf("无效的补录 cron 表达式 %q: %w", spec, err)
	}
	return j, nil
}

// Start 启动调度（非阻塞）
func (j *SweepJob) Start() {
	j.cron.Start()
	j.logger.Info("缺勤补录定时任务已启动")
}

// Stop 停止调度并等待正在执行的补录结束，ctx 到期则提前返回
func (j *SweepJob) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		j.logger.Warn("等待补录任务结束超时")
	}
}

// RunOnce 执行一次补录
func (j *SweepJob) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	result, err := j.sweeper.Sweep(ctx, j.clock.Now())
	if err != nil {
		j.logger.Error("定时补录部分失败", zap.Error(err))
	}
	if result != nil && result.DefaultsCreated > 0 {
		j.logger.Info("定时补录完成",
			zap.String("date", result.Date),
			zap.Int("defaults_created", result.DefaultsCreated))
	}
}

// cronLogger 将 cron 内部日志桥接到 zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
