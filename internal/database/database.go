package database

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"

	"tickwatch/internal/config"
	"tickwatch/internal/logger"
	"tickwatch/internal/recorder"
	"tickwatch/internal/tracker"
)

// maxPendingWrites: сколько асинхронных записей может выполняться одновременно
const maxPendingWrites = 16

// DatabaseManager содержит функции для работы с базой данных
type DatabaseManager struct {
	db      *sql.DB
	logger  *logger.LoggerManager
	wg      sync.WaitGroup // для ожидания завершения асинхронных операций
	slots   chan struct{}
	dropped atomic.Int64
}

// NewDatabaseManager создает новый экземпляр DatabaseManager
func NewDatabaseManager(db *sql.DB, loggerManager *logger.LoggerManager) *DatabaseManager {
	return &DatabaseManager{
		db:     db,
		logger: loggerManager,
		slots:  make(chan struct{}, maxPendingWrites),
	}
}

// Open подключается к MySQL по DSN из конфигурации
func Open(cfg config.Database, loggerManager *logger.LoggerManager) (*DatabaseManager, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("база данных недоступна: %w", err)
	}
	return NewDatabaseManager(db, loggerManager), nil
}

// DB возвращает соединение
func (h *DatabaseManager) DB() *sql.DB {
	return h.db
}

// EnsureSchema создает таблицы, если их нет
func (h *DatabaseManager) EnsureSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := h.db.Exec(stmt); err != nil {
			return fmt.Errorf("ошибка создания таблицы: %w", err)
		}
	}
	return nil
}

// SaveAnnouncement сохраняет объявление фазы
func (h *DatabaseManager) SaveAnnouncement(runID string, a tracker.Announcement) error {
	_, err := h.db.Exec(
		`INSERT INTO tick_announcements (run_id, phase, source, gap_ms, announced_at) VALUES (?, ?, ?, ?, ?)`,
		runID, int(a.Phase), a.Source.String(), a.GapMs, a.At,
	)
	if err != nil {
		return fmt.Errorf("ошибка вставки объявления: %w", err)
	}
	return nil
}

// SaveTimingSample сохраняет строку замера задержки
func (h *DatabaseManager) SaveTimingSample(runID string, s recorder.TimingSample) error {
	var digit sql.NullInt64
	if s.Digit.Valid() {
		digit = sql.NullInt64{Int64: int64(s.Digit), Valid: true}
	}
	var since sql.NullInt64
	if s.SinceChangeMs != nil {
		since = sql.NullInt64{Int64: *s.SinceChangeMs, Valid: true}
	}

	_, err := h.db.Exec(
		`INSERT INTO timing_samples (run_id, timestamp_ms, digit, confidence, since_change_ms, x, y) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, s.TimestampMs, digit, s.Confidence, since, s.X, s.Y,
	)
	if err != nil {
		return fmt.Errorf("ошибка вставки замера: %w", err)
	}
	return nil
}

// MirrorAnnouncement сохраняет объявление асинхронно, не блокируя цикл опроса.
// Если незавершенных записей слишком много, объявление отбрасывается.
func (h *DatabaseManager) MirrorAnnouncement(runID string, a tracker.Announcement) {
	h.async(func() error { return h.SaveAnnouncement(runID, a) })
}

// MirrorTimingSample сохраняет замер асинхронно
func (h *DatabaseManager) MirrorTimingSample(runID string, s recorder.TimingSample) {
	h.async(func() error { return h.SaveTimingSample(runID, s) })
}

func (h *DatabaseManager) async(write func() error) {
	select {
	case h.slots <- struct{}{}:
	default:
		if n := h.dropped.Add(1); n == 1 || n%100 == 0 {
			h.logger.Warn("⚠️ База данных не успевает, отброшено записей: %d", n)
		}
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() { <-h.slots }()
		if err := write(); err != nil {
			h.logger.LogError(err, "Ошибка асинхронного сохранения")
		}
	}()
}

// Dropped возвращает число отброшенных асинхронных записей
func (h *DatabaseManager) Dropped() int64 {
	return h.dropped.Load()
}

// WaitForAsyncOperations ожидает завершения всех асинхронных операций сохранения
func (h *DatabaseManager) WaitForAsyncOperations() {
	h.logger.Debug("⏳ Ожидаем завершения асинхронных операций сохранения...")
	h.wg.Wait()
}

// GetLatestUnexecutedAction возвращает самое раннее невыполненное действие.
// Если действий нет, возвращается пустая строка и нулевой ID.
func (h *DatabaseManager) GetLatestUnexecutedAction() (string, int, error) {
	var action string
	var id int
	err := h.db.QueryRow(`SELECT id, action FROM actions WHERE executed = FALSE ORDER BY id ASC LIMIT 1`).Scan(&id, &action)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("ошибка чтения действий: %w", err)
	}
	return action, id, nil
}

// MarkActionAsExecuted помечает действие выполненным
func (h *DatabaseManager) MarkActionAsExecuted(id int) error {
	if _, err := h.db.Exec(`UPDATE actions SET executed = TRUE WHERE id = ?`, id); err != nil {
		return fmt.Errorf("ошибка пометки действия %d: %w", id, err)
	}
	return nil
}

// UpdateStatus добавляет запись о текущем статусе
func (h *DatabaseManager) UpdateStatus(status string) error {
	if _, err := h.db.Exec(`INSERT INTO status (current_status) VALUES (?)`, status); err != nil {
		return fmt.Errorf("ошибка обновления статуса: %w", err)
	}
	return nil
}

// AddAction ставит действие в очередь для запущенного процесса
func (h *DatabaseManager) AddAction(action string) error {
	if _, err := h.db.Exec(`INSERT INTO actions (action) VALUES (?)`, action); err != nil {
		return fmt.Errorf("ошибка добавления действия: %w", err)
	}
	return nil
}

// GetStatusAndActions возвращает последний статус и последние limit действий
func (h *DatabaseManager) GetStatusAndActions(limit int) (Status, []Action, error) {
	var status Status
	err := h.db.QueryRow(`SELECT id, current_status, updated_at FROM status ORDER BY id DESC LIMIT 1`).
		Scan(&status.ID, &status.CurrentStatus, &status.UpdatedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Status{}, nil, fmt.Errorf("ошибка чтения статуса: %w", err)
	}

	rows, err := h.db.Query(`SELECT id, action, executed, created_at FROM actions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return status, nil, fmt.Errorf("ошибка чтения действий: %w", err)
	}
	defer rows.Close()

	var actions []Action
	for rows.Next() {
		var action Action
		if err := rows.Scan(&action.ID, &action.Action, &action.Executed, &action.CreatedAt); err != nil {
			return status, actions, fmt.Errorf("ошибка чтения действия: %w", err)
		}
		actions = append(actions, action)
	}
	return status, actions, rows.Err()
}

// Close дожидается асинхронных записей и закрывает соединение
func (h *DatabaseManager) Close() error {
	h.WaitForAsyncOperations()
	return h.db.Close()
}
