package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ledgersync/server/internal/repository"
)

// RetentionService trims old change log entries on a schedule. The sync
// engine tolerates a trimmed prefix: a device whose cursor predates the
// retention window simply performs a fresh pull.
type RetentionService struct {
	changeLog     repository.ChangeLogRepo
	retentionDays int
	intervalHours int

	mu       sync.Mutex
	ticker   *time.Ticker
	stopChan chan struct{}
	lastRun  time.Time
}

// NewRetentionService creates a new RetentionService
func NewRetentionService(changeLog repository.ChangeLogRepo, retentionDays, intervalHours int) *RetentionService {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	if intervalHours <= 0 {
		intervalHours = 24
	}
	return &RetentionService{
		changeLog:     changeLog,
		retentionDays: retentionDays,
		intervalHours: intervalHours,
	}
}

// TrimChangeLog deletes entries older than the retention window and returns
// how many were removed.
func (s *RetentionService) TrimChangeLog(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	deleted, err := s.changeLog.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.lastRun = time.Now().UTC()
	s.mu.Unlock()

	if deleted > 0 {
		log.Printf("Change log retention: removed %d entries older than %s", deleted, cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}

// Start begins the background trim loop
func (s *RetentionService) Start() {
	s.mu.Lock()
	if s.ticker != nil {
		s.mu.Unlock()
		return // Already started
	}
	s.stopChan = make(chan struct{})
	s.ticker = time.NewTicker(time.Duration(s.intervalHours) * time.Hour)
	s.mu.Unlock()

	log.Printf("Change log retention started (every %d hours, keeping %d days)", s.intervalHours, s.retentionDays)

	go func() {
		for {
			select {
			case <-s.ticker.C:
				if _, err := s.TrimChangeLog(context.Background()); err != nil {
					log.Printf("Change log retention failed: %v", err)
				}
			case <-s.stopChan:
				s.mu.Lock()
				s.ticker.Stop()
				s.ticker = nil
				s.mu.Unlock()
				log.Println("Change log retention stopped")
				return
			}
		}
	}()
}

// Stop halts the background trim loop
func (s *RetentionService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker == nil {
		return
	}
	close(s.stopChan)
}
