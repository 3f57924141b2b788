package database

import "time"

// Status: запись таблицы status
type Status struct {
	ID            int
	CurrentStatus string
	UpdatedAt     time.Time
}

// Action: запись таблицы actions
type Action struct {
	ID        int
	Action    string
	Executed  bool
	CreatedAt time.Time
}

// Статусы, которые пишет цикл опроса
const (
	StatusRunning = "running"
	StatusPaused  = "paused"
	StatusStopped = "stopped"
)

// schemaStatements создают таблицы, если их нет
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS status (
		id INT AUTO_INCREMENT PRIMARY KEY,
		current_status VARCHAR(32) NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS actions (
		id INT AUTO_INCREMENT PRIMARY KEY,
		action VARCHAR(32) NOT NULL,
		executed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS tick_announcements (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		run_id CHAR(36) NOT NULL,
		phase TINYINT NOT NULL,
		source VARCHAR(16) NOT NULL,
		gap_ms DOUBLE NOT NULL,
		announced_at DATETIME(3) NOT NULL,
		INDEX idx_run (run_id)
	)`,
	`CREATE TABLE IF NOT EXISTS timing_samples (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		run_id CHAR(36) NOT NULL,
		timestamp_ms BIGINT NOT NULL,
		digit TINYINT NULL,
		confidence DOUBLE NOT NULL,
		since_change_ms BIGINT NULL,
		x INT NOT NULL,
		y INT NOT NULL,
		INDEX idx_run (run_id)
	)`,
}
