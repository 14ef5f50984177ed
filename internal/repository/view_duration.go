package repository

import (
	"context"
	"fmt"

	"github.com/devalphasystem/contenthub/internal/domain/model"
)

// ViewDurationRepository — append-only журнал длительностей просмотра.
type ViewDurationRepository interface {
	// Insert фиксирует замер длительности.
	Insert(ctx context.Context, row *model.ViewDurationRow) error
	// DeleteByEntry удаляет все строки записи (при permanent delete).
	DeleteByEntry(ctx context.Context, entryID string) (int, error)
}

// viewDurationRepo — реализация ViewDurationRepository.
type viewDurationRepo struct {
	db DBTX
}

// NewViewDurationRepository создаёт репозиторий длительностей просмотра.
func NewViewDurationRepository(db DBTX) ViewDurationRepository {
	return &viewDurationRepo{db: db}
}

func (r *viewDurationRepo) Insert(ctx context.Context, row *model.ViewDurationRow) error {
	query := `
		INSERT INTO view_durations (id, entry_id, duration_seconds, ip_address, logged_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		row.ID, row.EntryID, row.DurationSeconds, row.IPAddress, row.LoggedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка записи длительности просмотра: %w", err)
	}
	return nil
}

func (r *viewDurationRepo) DeleteByEntry(ctx context.Context, entryID string) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM view_durations WHERE entry_id = $1`, entryID)
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки журнала длительностей: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
