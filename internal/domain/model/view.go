package model

import "time"

// ViewLogRow — строка локального журнала просмотров (таблица view_logs).
// Используется только для дедупликации инкрементов счётчика просмотров;
// на отображение никогда не читается.
type ViewLogRow struct {
	// EntryID — id записи контента
	EntryID string
	// IPHash — HMAC-SHA256 IP посетителя под серверной солью
	IPHash string
	// ViewedAt — время просмотра
	ViewedAt time.Time
}

// ViewDurationRow — строка локального журнала длительности просмотра
// (таблица view_durations, append-only).
type ViewDurationRow struct {
	// ID — UUID строки
	ID string
	// EntryID — id записи контента
	EntryID string
	// DurationSeconds — длительность просмотра, секунды
	DurationSeconds int
	// IPAddress — адрес посетителя (как получен, без хеширования)
	IPAddress string
	// LoggedAt — время фиксации
	LoggedAt time.Time
}
