package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"ficha-attendance/backend/internal/model"
	"ficha-attendance/backend/internal/repository"
	"ficha-attendance/backend/pkg/clock"
	pkgerrors "ficha-attendance/backend/pkg/errors"
	"ficha-attendance/backend/pkg/keylock"
	"ficha-attendance/backend/pkg/metrics"
)

// ── 考勤状态存储业务错误 ──

var (
	ErrInvalidStatus          = errors.New("考勤状态无效")
	ErrExcusedNotAutomatic    = errors.New("EXCUSED 只能人工标记")
	ErrMarkerRequired         = errors.New("人工标记必须提供操作人")
	ErrAttendanceNotFound     = errors.New("考勤记录不存在")
	errUnexpectedPairConflict = errors.New("考勤记录并发写入")
)

// ensureDefaultsParallelism EnsureDefaults 并发写入的学员数上限
const ensureDefaultsParallelism = 8

// 写入结果（指标标签）
const (
	transitionCreated    = "created"
	transitionUpdated    = "updated"
	transitionNoop       = "noop"
	transitionKeptHigher = "kept_higher"
	transitionKeptManual = "kept_manual"
)

// AutomaticMark 门禁自动写入
type AutomaticMark struct {
	SessionID     string
	LearnerID     string
	Status        model.AttendanceStatus
	AccessEventID *string
	ArrivedAt     *time.Time
}

// ManualMark 讲师人工写入
type ManualMark struct {
	SessionID string
	LearnerID string
	Status    model.AttendanceStatus
	MarkedBy  string
	Notes     *string
}

// AttendanceStore 考勤状态存储
//
// 串行化单位为 (session, learner)：进程内按键加锁，事务内再取同键的 advisory 锁。
// 优先级：MANUAL 总是覆盖；AUTOMATIC 不覆盖 MANUAL；
// AUTOMATIC 之间单调（ABSENT < LATE < PRESENT）；相同写入为空操作，不递增版本。
type AttendanceStore interface {
	UpsertAutomatic(ctx context.Context, mark AutomaticMark) (*model.AttendanceRecord, error)
	SetManual(ctx context.Context, mark ManualMark) (*model.AttendanceRecord, error)
	Get(ctx context.Context, sessionID, learnerID string) (*model.AttendanceRecord, error)
	// EnsureDefaults 为在册但无记录的学员补一条 AUTOMATIC ABSENT，返回新建条数
	EnsureDefaults(ctx context.Context, sessionID string) (int, error)
}

type attendanceStore struct {
	repo     *repository.Repository
	locks    *keylock.Table
	clock    clock.Clock
	lockWait time.Duration
	backoff  time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewAttendanceStore 创建 AttendanceStore 实例
func NewAttendanceStore(
	repo *repository.Repository,
	clk clock.Clock,
	lockWait, backoff time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) AttendanceStore {
	return &attendanceStore{
		repo:     repo,
		locks:    keylock.New(lockWait),
		clock:    clk,
		lockWait: lockWait,
		backoff:  backoff,
		metrics:  m,
		logger:   logger,
	}
}

// ────────────────────── UpsertAutomatic ──────────────────────

func (s *attendanceStore) UpsertAutomatic(ctx context.Context, mark AutomaticMark) (*model.AttendanceRecord, error) {
	if !mark.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if mark.Status == model.StatusExcused {
		return nil, ErrExcusedNotAutomatic
	}

	var out *model.AttendanceRecord
	var outcome string
	err := s.withPair(ctx, mark.SessionID, mark.LearnerID, func(tx *repository.Repository) error {
		now := s.clock.Now()
		cur, err := tx.Attendance.GetByPair(ctx, mark.SessionID, mark.LearnerID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if cur == nil {
			rec := &model.AttendanceRecord{
				SessionID:     mark.SessionID,
				LearnerID:     mark.LearnerID,
				Status:        mark.Status,
				Source:        model.SourceAutomatic,
				AccessEventID: mark.AccessEventID,
				ArrivedAt:     mark.ArrivedAt,
				MarkedAt:      now,
			}
			if err := s.insert(ctx, tx, rec, nil); err != nil {
				return err
			}
			out, outcome = rec, transitionCreated
			return nil
		}

		switch {
		case cur.Source == model.SourceManual:
			out, outcome = cur, transitionKeptManual
			return nil
		case cur.Status == mark.Status:
			out, outcome = cur, transitionNoop
			return nil
		case mark.Status.Rank() < cur.Status.Rank():
			out, outcome = cur, transitionKeptHigher
			return nil
		}

		old := cur.Status
		cur.Status = mark.Status
		cur.AccessEventID = mark.AccessEventID
		cur.ArrivedAt = mark.ArrivedAt
		cur.MarkedAt = now
		if err := s.update(ctx, tx, cur, old, nil); err != nil {
			return err
		}
		out, outcome = cur, transitionUpdated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Transition(string(model.SourceAutomatic), outcome)
	return out, nil
}

// ────────────────────── SetManual ──────────────────────

func (s *attendanceStore) SetManual(ctx context.Context, mark ManualMark) (*model.AttendanceRecord, error) {
	if !mark.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if mark.MarkedBy == "" {
		return nil, ErrMarkerRequired
	}

	var out *model.AttendanceRecord
	var outcome string
	err := s.withPair(ctx, mark.SessionID, mark.LearnerID, func(tx *repository.Repository) error {
		now := s.clock.Now()
		cur, err := tx.Attendance.GetByPair(ctx, mark.SessionID, mark.LearnerID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		actor := mark.MarkedBy

		if cur == nil {
			rec := &model.AttendanceRecord{
				SessionID: mark.SessionID,
				LearnerID: mark.LearnerID,
				Status:    mark.Status,
				Source:    model.SourceManual,
				MarkedBy:  &actor,
				MarkedAt:  now,
				Notes:     mark.Notes,
			}
			rec.CreatedBy = &actor
			rec.UpdatedBy = &actor
			if err := s.insert(ctx, tx, rec, &actor); err != nil {
				return err
			}
			out, outcome = rec, transitionCreated
			return nil
		}

		if cur.Source == model.SourceManual && cur.Status == mark.Status &&
			cur.MarkedBy != nil && *cur.MarkedBy == actor && sameNotes(cur.Notes, mark.Notes) {
			out, outcome = cur, transitionNoop
			return nil
		}

		old := cur.Status
		cur.Status = mark.Status
		cur.Source = model.SourceManual
		cur.MarkedBy = &actor
		cur.MarkedAt = now
		cur.Notes = mark.Notes
		cur.UpdatedBy = &actor
		if err := s.update(ctx, tx, cur, old, &actor); err != nil {
			return err
		}
		out, outcome = cur, transitionUpdated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Transition(string(model.SourceManual), outcome)
	return out, nil
}

// ────────────────────── Get ──────────────────────

func (s *attendanceStore) Get(ctx context.Context, sessionID, learnerID string) (*model.AttendanceRecord, error) {
	rec, err := s.repo.Attendance.GetByPair(ctx, sessionID, learnerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceNotFound
		}
		return nil, err
	}
	return rec, nil
}

// ────────────────────── EnsureDefaults ──────────────────────

func (s *attendanceStore) EnsureDefaults(ctx context.Context, sessionID string) (int, error) {
	session, err := s.repo.ClassSession.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrSessionNotFound
		}
		return 0, err
	}

	learners, err := s.repo.Cohort.ListLearnerIDs(ctx, session.CohortID)
	if err != nil {
		return 0, err
	}
	existing, err := s.repo.Attendance.ListBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	has := make(map[string]bool, len(existing))
	for _, r := range existing {
		has[r.LearnerID] = true
	}

	var created atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ensureDefaultsParallelism)
	for _, learnerID := range learners {
		if has[learnerID] {
			continue
		}
		learnerID := learnerID // go 1.21：循环变量按迭代复制
		g.Go(func() error {
			inserted, err := s.insertDefault(gctx, sessionID, learnerID)
			if inserted {
				created.Add(1)
			}
			return err
		})
	}
	err = g.Wait()

	n := int(created.Load())
	if n > 0 {
		s.logger.Info("补录默认缺勤", zap.String("session_id", sessionID), zap.Int("created", n))
	}
	return n, err
}

func (s *attendanceStore) insertDefault(ctx context.Context, sessionID, learnerID string) (bool, error) {
	inserted := false
	err := s.withPair(ctx, sessionID, learnerID, func(tx *repository.Repository) error {
		inserted = false
		_, err := tx.Attendance.GetByPair(ctx, sessionID, learnerID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		rec := &model.AttendanceRecord{
			SessionID: sessionID,
			LearnerID: learnerID,
			Status:    model.StatusAbsent,
			Source:    model.SourceAutomatic,
			MarkedAt:  s.clock.Now(),
		}
		if err := s.insert(ctx, tx, rec, nil); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err == nil && inserted {
		s.metrics.Transition(string(model.SourceAutomatic), transitionCreated)
	}
	return inserted, err
}

// ── 写入与流水 ──

func (s *attendanceStore) insert(ctx context.Context, tx *repository.Repository, rec *model.AttendanceRecord, actor *string) error {
	ok, err := tx.Attendance.InsertIfAbsent(ctx, rec)
	if err != nil {
		return err
	}
	if !ok {
		// 锁内不应出现；交给重试
		return errors.Join(pkgerrors.ErrConcurrencyConflict, errUnexpectedPairConflict)
	}
	return tx.ChangeLog.Create(ctx, &model.AttendanceChangeLog{
		RecordID:  rec.RecordID,
		SessionID: rec.SessionID,
		LearnerID: rec.LearnerID,
		NewStatus: rec.Status,
		Source:    rec.Source,
		ActorID:   actor,
	})
}

func (s *attendanceStore) update(ctx context.Context, tx *repository.Repository, rec *model.AttendanceRecord, old model.AttendanceStatus, actor *string) error {
	if err := tx.Attendance.Update(ctx, rec); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return errors.Join(pkgerrors.ErrConcurrencyConflict, err)
		}
		return err
	}
	return tx.ChangeLog.Create(ctx, &model.AttendanceChangeLog{
		RecordID:  rec.RecordID,
		SessionID: rec.SessionID,
		LearnerID: rec.LearnerID,
		OldStatus: &old,
		NewStatus: rec.Status,
		Source:    rec.Source,
		ActorID:   actor,
	})
}

// ── 串行化 ──

func pairKey(sessionID, learnerID string) string {
	return "attendance:" + sessionID + ":" + learnerID
}

// withPair 在 (session, learner) 锁与数据库事务内执行 fn
// 一次尝试 = 取进程内锁 → 事务内取 advisory 锁 → fn；
// 任一层等锁超时或数据库并发冲突都退避后整体重试一次，仍失败则返回 ErrConcurrencyConflict
func (s *attendanceStore) withPair(ctx context.Context, sessionID, learnerID string, fn func(tx *repository.Repository) error) error {
	key := pairKey(sessionID, learnerID)

	attempt := func() error {
		unlock, err := s.locks.Lock(ctx, key)
		if err != nil {
			if errors.Is(err, keylock.ErrLockTimeout) {
				s.logger.Warn("等待考勤记录锁超时", zap.String("key", key))
				return pkgerrors.ErrConcurrencyConflict
			}
			return err
		}
		defer unlock()

		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			if err := tx.Locker.LockKeys(ctx, s.lockWait, key); err != nil {
				return err
			}
			return fn(tx)
		})
	}

	return retryConcurrency(ctx, s.backoff, s.metrics, s.logger, key, attempt)
}

func sameNotes(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
