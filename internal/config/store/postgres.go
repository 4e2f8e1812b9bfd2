package store

import (
	"sync"
	"time"

	"github.com/discord-terminal/engine/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Postgres handles configuration persistence using PostgreSQL with GORM.
type Postgres struct {
	db *gorm.DB
	mu sync.RWMutex
}

// NewPostgres creates a new database-backed configuration store.
// It automatically creates the required tables if they don't exist.
func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	store := &Postgres{db: db}

	// Run migrations
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

// migrate runs GORM auto-migration and ensures the singleton settings row.
func (s *Postgres) migrate() error {
	if err := s.db.AutoMigrate(&Setting{}, &Log{}, &Session{}); err != nil {
		return err
	}

	// Add CHECK constraint for single settings row (GORM doesn't support this directly)
	s.db.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'single_settings_row'
			) THEN
				ALTER TABLE settings ADD CONSTRAINT single_settings_row CHECK (id = 1);
			END IF;
		END $$;
	`)

	var count int64
	s.db.Model(&Setting{}).Count(&count)
	if count == 0 {
		s.db.Create(&Setting{ID: 1, Status: "online"})
	}

	return nil
}

// Load reads the presence-status preference from the database. Returns the
// default configuration if no record exists.
func (s *Postgres) Load() (*config.Configuration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := &config.Configuration{Status: config.StatusOnline}

	var setting Setting
	if err := s.db.First(&setting).Error; err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if setting.Status != "" {
		cfg.Status = config.Status(setting.Status)
	}

	return cfg, nil
}

// Save writes the presence-status preference to the database.
func (s *Postgres) Save(cfg *config.Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := cfg.Validate(); err != nil {
		return err
	}

	status := string(cfg.Status)
	if status == "" {
		status = "online"
	}
	return s.db.Save(&Setting{ID: 1, Status: status}).Error
}

// Close closes the database connection.
func (s *Postgres) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LogEntry represents a stored log entry for API responses.
type LogEntry struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// MaxLogEntries is the maximum number of log entries to keep in the database.
const MaxLogEntries = 1000

// whereServerID is the query condition for server_id lookups.
const whereServerID = "server_id = ?"

// AddLog inserts a new log entry and trims old entries if needed.
func (s *Postgres) AddLog(level, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Create(&Log{
		Level:   level,
		Message: message,
	}).Error; err != nil {
		return err
	}

	// Trim old logs using subquery
	s.db.Exec(`
		DELETE FROM logs WHERE id NOT IN (
			SELECT id FROM logs ORDER BY created_at DESC LIMIT ?
		)
	`, MaxLogEntries)

	return nil
}

// GetLogs retrieves log entries, optionally filtered by level.
// Returns logs ordered from oldest to newest.
func (s *Postgres) GetLogs(level string) ([]LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var logs []Log
	query := s.db.Order("created_at ASC").Limit(MaxLogEntries)

	if level != "" {
		query = query.Where("level = ?", level)
	}

	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}

	result := make([]LogEntry, len(logs))
	for i, log := range logs {
		result[i] = LogEntry{
			Level:     log.Level,
			Message:   log.Message,
			Timestamp: log.CreatedAt,
		}
	}

	return result, nil
}

// ClearLogs removes all log entries from the database.
func (s *Postgres) ClearLogs() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Where("1 = 1").Delete(&Log{}).Error
}

// SaveSession persists session state for later resumption.
func (s *Postgres) SaveSession(state config.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Save(&Session{
		ServerID:  state.ServerID,
		SessionID: state.SessionID,
		Sequence:  state.Sequence,
		ResumeURL: state.ResumeURL,
	}).Error
}

// LoadSession retrieves saved session state for resumption.
func (s *Postgres) LoadSession(serverID string) (*config.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var session Session
	if err := s.db.First(&session, whereServerID, serverID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	return &config.SessionState{
		ServerID:  session.ServerID,
		SessionID: session.SessionID,
		Sequence:  session.Sequence,
		ResumeURL: session.ResumeURL,
	}, nil
}

// DeleteSession removes session state.
func (s *Postgres) DeleteSession(serverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Delete(&Session{}, whereServerID, serverID).Error
}

// UpdateSessionSequence updates just the sequence number for a session.
func (s *Postgres) UpdateSessionSequence(serverID string, sequence int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Model(&Session{}).
		Where(whereServerID, serverID).
		Update("sequence", sequence).Error
}
