package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sasa-apparel/backend/internal/domain/analytics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// cronTickerInterval is the interval at which the cron scheduler checks for execution
const cronTickerInterval = 1 * time.Minute

// Trailing window recomputed per granularity on each scheduled run. Wide
// enough to absorb late-arriving records without rebuilding history.
const (
	dailyLookbackDays    = 7
	weeklyLookbackWeeks  = 4
	monthlyLookbackUnits = 3
)

// TenantLister supplies the tenant ids the scheduled rollup iterates.
type TenantLister interface {
	ListTenants(ctx context.Context) ([]uuid.UUID, error)
}

// RollupCronSchedulerConfig holds configuration for the cron-based rollup scheduler
type RollupCronSchedulerConfig struct {
	// Enabled indicates if the cron scheduler is enabled
	Enabled bool
	// CronHour is the hour (0-23) to run the daily rollup
	CronHour int
	// CronMinute is the minute (0-59) to run the daily rollup
	CronMinute int
	// DailyCronSchedule is the cron expression (parsed to extract hour/minute)
	DailyCronSchedule string
	// JobTimeout is the maximum time a single rollup job can run
	JobTimeout time.Duration
	// MaxConcurrentJobs is the maximum number of concurrent rollup jobs
	MaxConcurrentJobs int
	// RetryAttempts is the number of retry attempts for failed jobs
	RetryAttempts int
	// RetryDelay is the delay between retries
	RetryDelay time.Duration
}

// DefaultRollupCronSchedulerConfig returns default cron scheduler configuration
// Defaults to running at 2:00 AM daily
func DefaultRollupCronSchedulerConfig() RollupCronSchedulerConfig {
	return RollupCronSchedulerConfig{
		Enabled:           true,
		CronHour:          2,
		CronMinute:        0,
		DailyCronSchedule: "0 2 * * *",
		JobTimeout:        30 * time.Minute,
		MaxConcurrentJobs: 3,
		RetryAttempts:     3,
		RetryDelay:        5 * time.Minute,
	}
}

// ParseCronSchedule parses a cron expression "minute hour * * *" to extract hour and minute
// Returns defaults (2:00) if parsing fails or expression is empty
func ParseCronSchedule(cronExpr string) (hour, minute int, err error) {
	hour = 2
	minute = 0

	if cronExpr == "" {
		return hour, minute, nil
	}

	parts := strings.Fields(cronExpr)
	if len(parts) < 2 {
		return hour, minute, nil
	}

	if parts[0] != "*" {
		if val, parseErr := parseIntOrDefault(parts[0], 0); parseErr == nil {
			minute = val
		}
	}
	if parts[1] != "*" {
		if val, parseErr := parseIntOrDefault(parts[1], 2); parseErr == nil {
			hour = val
		}
	}

	if minute < 0 || minute > 59 {
		return 2, 0, fmt.Errorf("minute must be 0-59, got %d", minute)
	}
	if hour < 0 || hour > 23 {
		return 2, 0, fmt.Errorf("hour must be 0-23, got %d", hour)
	}

	return hour, minute, nil
}

// parseIntOrDefault parses an int string or returns default
func parseIntOrDefault(s string, defaultVal int) (int, error) {
	if s == "" || s == "*" {
		return defaultVal, nil
	}
	var val int
	for _, c := range s {
		if c < '0' || c > '9' {
			return defaultVal, ErrInvalidConfig
		}
		val = val*10 + int(c-'0')
	}
	return val, nil
}

// SchedulerJobRecord represents a record of a scheduled job execution
type SchedulerJobRecord struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	TenantID    *uuid.UUID `gorm:"column:tenant_id;type:uuid"`
	Granularity string     `gorm:"column:granularity;size:20;not null"`
	Status      string     `gorm:"column:last_run_status;size:20"`
	Error       string     `gorm:"column:last_error;type:text"`
	StartedAt   *time.Time `gorm:"column:last_run_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	NextRunAt   *time.Time `gorm:"column:next_run_at"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

// TableName returns the table name for GORM
func (SchedulerJobRecord) TableName() string {
	return "rollup_scheduler_jobs"
}

// SchedulerJobRepository handles persistence of scheduler job records
type SchedulerJobRepository struct {
	db *gorm.DB
}

// NewSchedulerJobRepository creates a new SchedulerJobRepository
func NewSchedulerJobRepository(db *gorm.DB) *SchedulerJobRepository {
	return &SchedulerJobRepository{db: db}
}

// RecordJobStart records the start of a job execution
func (r *SchedulerJobRepository) RecordJobStart(ctx context.Context, tenantID *uuid.UUID, granularity string) (uuid.UUID, error) {
	now := time.Now()
	record := &SchedulerJobRecord{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Granularity: granularity,
		Status:      string(JobStatusRunning),
		StartedAt:   &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return uuid.Nil, err
	}
	return record.ID, nil
}

// RecordJobComplete records the completion of a job
func (r *SchedulerJobRepository) RecordJobComplete(ctx context.Context, jobID uuid.UUID, success bool, errMsg string) error {
	now := time.Now()
	status := string(JobStatusSuccess)
	if !success {
		status = string(JobStatusFailed)
	}
	return r.db.WithContext(ctx).
		Model(&SchedulerJobRecord{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"last_run_status": status,
			"last_error":      errMsg,
			"completed_at":    now,
			"updated_at":      now,
		}).Error
}

// GetLastJobStatus gets the last job status for a granularity
func (r *SchedulerJobRepository) GetLastJobStatus(ctx context.Context, tenantID *uuid.UUID, granularity string) (*SchedulerJobRecord, error) {
	var record SchedulerJobRecord
	query := r.db.WithContext(ctx).Where("granularity = ?", granularity)
	if tenantID != nil {
		query = query.Where("tenant_id = ?", *tenantID)
	} else {
		query = query.Where("tenant_id IS NULL")
	}
	if err := query.Order("last_run_at DESC").First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// RollupCronScheduler implements cron-based scheduling for nightly rollup recomputes
type RollupCronScheduler struct {
	config    RollupCronSchedulerConfig
	executor  JobExecutor
	tenants   TenantLister
	jobRepo   *SchedulerJobRepository
	logger    *zap.Logger
	scheduler *Scheduler

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Last execution tracking
	lastRunAt *time.Time
	nextRunAt *time.Time
}

// NewRollupCronScheduler creates a new cron-based rollup scheduler
func NewRollupCronScheduler(
	config RollupCronSchedulerConfig,
	executor JobExecutor,
	tenants TenantLister,
	jobRepo *SchedulerJobRepository,
	logger *zap.Logger,
) *RollupCronScheduler {
	schedulerConfig := SchedulerConfig{
		Enabled:           config.Enabled,
		MaxConcurrentJobs: config.MaxConcurrentJobs,
		JobTimeout:        config.JobTimeout,
		RetryAttempts:     config.RetryAttempts,
		RetryDelay:        config.RetryDelay,
	}
	scheduler := NewScheduler(schedulerConfig, executor, logger)

	return &RollupCronScheduler{
		config:    config,
		executor:  executor,
		tenants:   tenants,
		jobRepo:   jobRepo,
		logger:    logger,
		scheduler: scheduler,
	}
}

// Start starts the cron scheduler
func (s *RollupCronScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	if err := s.scheduler.Start(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.calculateNextRunTime()

	s.wg.Add(1)
	go s.cronLoop(ctx)

	s.logger.Info("Rollup cron scheduler started",
		zap.Int("cron_hour", s.config.CronHour),
		zap.Int("cron_minute", s.config.CronMinute),
		zap.Timep("next_run_at", s.nextRunAt),
	)

	return nil
}

// Stop stops the cron scheduler
func (s *RollupCronScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if err := s.scheduler.Stop(ctx); err != nil {
			s.logger.Warn("Error stopping underlying scheduler", zap.Error(err))
		}
		s.logger.Info("Rollup cron scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Rollup cron scheduler stop timed out")
		return ctx.Err()
	}
}

// cronLoop runs the main cron loop
func (s *RollupCronScheduler) cronLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(cronTickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now) {
				s.runNightlyRollup(ctx)
				s.calculateNextRunTime()
			}
		}
	}
}

// shouldRun checks if the cron should run at the given time
func (s *RollupCronScheduler) shouldRun(now time.Time) bool {
	return now.Hour() == s.config.CronHour && now.Minute() == s.config.CronMinute
}

// calculateNextRunTime calculates the next run time
func (s *RollupCronScheduler) calculateNextRunTime() {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.config.CronHour, s.config.CronMinute, 0, 0, now.Location())

	if now.After(next) {
		next = next.AddDate(0, 0, 1)
	}

	s.mu.Lock()
	s.nextRunAt = &next
	s.mu.Unlock()
}

// LookbackWindow returns the trailing window recomputed for a granularity,
// ending at the current moment.
func LookbackWindow(granularity analytics.Granularity, now time.Time) (time.Time, time.Time) {
	end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 999999999, now.Location())
	var start time.Time
	switch granularity {
	case analytics.GranularityWeekly:
		start = now.AddDate(0, 0, -7*weeklyLookbackWeeks)
	case analytics.GranularityMonthly:
		start = now.AddDate(0, -monthlyLookbackUnits, 0)
	default:
		start = now.AddDate(0, 0, -dailyLookbackDays)
	}
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, now.Location())
	return start, end
}

// runNightlyRollup schedules rollup jobs for every tenant and granularity
func (s *RollupCronScheduler) runNightlyRollup(ctx context.Context) {
	s.logger.Info("Starting nightly rollup run")

	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	tenantIDs, err := s.tenants.ListTenants(ctx)
	if err != nil {
		s.logger.Error("Failed to list tenants for rollup run", zap.Error(err))
		return
	}

	s.logger.Info("Scheduling rollup for tenants", zap.Int("tenant_count", len(tenantIDs)))

	for _, tenantID := range tenantIDs {
		tenantID := tenantID
		for _, granularity := range analytics.AllGranularities() {
			periodStart, periodEnd := LookbackWindow(granularity, now)

			var jobID uuid.UUID
			if s.jobRepo != nil {
				var recordErr error
				jobID, recordErr = s.jobRepo.RecordJobStart(ctx, &tenantID, string(granularity))
				if recordErr != nil {
					s.logger.Warn("Failed to record job start",
						zap.String("tenant_id", tenantID.String()),
						zap.String("granularity", string(granularity)),
						zap.Error(recordErr),
					)
				}
			}

			job := NewJob(&tenantID, granularity, periodStart, periodEnd, s.config.RetryAttempts)
			if err := s.scheduler.SubmitJob(job); err != nil {
				s.logger.Error("Failed to submit rollup job",
					zap.String("tenant_id", tenantID.String()),
					zap.String("granularity", string(granularity)),
					zap.Error(err),
				)
				if s.jobRepo != nil && jobID != uuid.Nil {
					_ = s.jobRepo.RecordJobComplete(ctx, jobID, false, err.Error())
				}
				continue
			}

			s.logger.Debug("Scheduled rollup job",
				zap.String("tenant_id", tenantID.String()),
				zap.String("granularity", string(granularity)),
			)
		}
	}

	s.logger.Info("Nightly rollup jobs scheduled",
		zap.Int("tenant_count", len(tenantIDs)),
		zap.Int("granularities", len(analytics.AllGranularities())),
	)
}

// TriggerManualRun triggers a manual run of the nightly rollup
// Note: Uses background context to avoid premature cancellation when HTTP request completes
func (s *RollupCronScheduler) TriggerManualRun(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	go s.runNightlyRollup(context.Background())
	return nil
}

// TriggerTenantRollup triggers rollup for a specific tenant and window
func (s *RollupCronScheduler) TriggerTenantRollup(ctx context.Context, tenantID uuid.UUID, startDate, endDate time.Time) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	for _, granularity := range analytics.AllGranularities() {
		job := NewJob(&tenantID, granularity, startDate, endDate, s.config.RetryAttempts)
		if err := s.scheduler.SubmitJob(job); err != nil {
			return err
		}
	}
	return nil
}

// GetStatus returns the current status of the cron scheduler
func (s *RollupCronScheduler) GetStatus() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]any{
		"enabled":       s.config.Enabled,
		"is_running":    s.isRunning,
		"cron_hour":     s.config.CronHour,
		"cron_minute":   s.config.CronMinute,
		"cron_schedule": "Daily",
		"last_run_at":   s.lastRunAt,
		"next_run_at":   s.nextRunAt,
		"granularities": analytics.AllGranularities(),
	}
}

// GetNextRunAt returns when the next scheduled run will occur
func (s *RollupCronScheduler) GetNextRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunAt
}

// GetLastRunAt returns when the last run occurred
func (s *RollupCronScheduler) GetLastRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt
}
