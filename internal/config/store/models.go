package store

import "time"

// Setting represents the global settings table (single row with id=1):
// the synced presence-status preference.
type Setting struct {
	ID        int       `gorm:"primaryKey;default:1"`
	Status    string    `gorm:"type:varchar(10);not null;default:'online'"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Setting) TableName() string {
	return "settings"
}

// Log represents a stored log entry.
type Log struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Level     string    `gorm:"type:varchar(10);not null;index:idx_logs_level"`
	Message   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_logs_created_at"`
}

// TableName specifies the table name for GORM.
func (Log) TableName() string {
	return "logs"
}

// Session holds gateway session data for resumption, keyed by the local
// device's server/profile entry.
type Session struct {
	ServerID  string    `gorm:"type:varchar(32);primaryKey"`
	SessionID string    `gorm:"column:session_id;type:varchar(64);not null"`
	Sequence  int       `gorm:"not null;default:0"`
	ResumeURL string    `gorm:"column:resume_url;type:varchar(255);not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Session) TableName() string {
	return "sessions"
}
