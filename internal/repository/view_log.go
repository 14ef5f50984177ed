package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/devalphasystem/contenthub/internal/domain/model"
)

// ViewLogRepository — журнал просмотров для дедупликации инкрементов
// счётчика. Строки читаются только проверкой окна, не для отображения.
type ViewLogRepository interface {
	// SeenWithin сообщает, был ли просмотр entry+ipHash за последние window.
	SeenWithin(ctx context.Context, entryID, ipHash string, window time.Duration) (bool, error)
	// Insert фиксирует просмотр.
	Insert(ctx context.Context, row *model.ViewLogRow) error
	// DeleteByEntry удаляет все строки записи (при permanent delete).
	DeleteByEntry(ctx context.Context, entryID string) (int, error)
	// DeleteOlderThan удаляет строки старше cutoff (периодическая уборка).
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// viewLogRepo — реализация ViewLogRepository.
type viewLogRepo struct {
	db DBTX
}

// NewViewLogRepository создаёт репозиторий журнала просмотров.
func NewViewLogRepository(db DBTX) ViewLogRepository {
	return &viewLogRepo{db: db}
}

func (r *viewLogRepo) SeenWithin(ctx context.Context, entryID, ipHash string, window time.Duration) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM view_logs
			WHERE entry_id = $1 AND ip_hash = $2 AND viewed_at >= $3
		)`

	cutoff := time.Now().UTC().Add(-window)

	var seen bool
	err := r.db.QueryRow(ctx, query, entryID, ipHash, cutoff).Scan(&seen)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки журнала просмотров: %w", err)
	}
	return seen, nil
}

func (r *viewLogRepo) Insert(ctx context.Context, row *model.ViewLogRow) error {
	query := `
		INSERT INTO view_logs (entry_id, ip_hash, viewed_at)
		VALUES ($1, $2, $3)`

	if _, err := r.db.Exec(ctx, query, row.EntryID, row.IPHash, row.ViewedAt); err != nil {
		return fmt.Errorf("ошибка записи просмотра: %w", err)
	}
	return nil
}

func (r *viewLogRepo) DeleteByEntry(ctx context.Context, entryID string) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM view_logs WHERE entry_id = $1`, entryID)
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки журнала просмотров: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *viewLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM view_logs WHERE viewed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("ошибка уборки журнала просмотров: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
