package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence. Candidate tables themselves are created
// dynamically at ingestion time and are not modeled here.

type ThreadModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_threads_user_table"`
	TableID   string    `gorm:"not null;uniqueIndex:idx_threads_user_table"`
	CreatedAt time.Time `gorm:"not null"`
}

type TurnModel struct {
	ID        string `gorm:"primaryKey"`
	ThreadID  string `gorm:"not null;index"`
	UserID    string `gorm:"not null;index:idx_turns_user_table"`
	TableID   string `gorm:"not null;index:idx_turns_user_table"`
	Question  string `gorm:"type:text;not null"`
	Response  string `gorm:"type:text;not null"`
	Followups datatypes.JSON
	CreatedAt time.Time `gorm:"not null;index"`
}

type CandidateDirModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"not null;uniqueIndex:idx_candidate_dir_name_table"`
	TableName string    `gorm:"not null;uniqueIndex:idx_candidate_dir_name_table"`
	RowID     int64     `gorm:"not null"`
	Email     string    ``
	CreatedAt time.Time `gorm:"not null"`
}

type JobDescriptionModel struct {
	TableName string    `gorm:"primaryKey"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type ResumeModel struct {
	CandidateName string    `gorm:"primaryKey"`
	Content       string    `gorm:"type:text;not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

type RejectedCandidateModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"not null"`
	Reason    string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
}
