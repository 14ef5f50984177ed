package model

import "time"

// PreviewToken — токен доступа к предпросмотру draft/staged контента.
// Хранится в коллекции entries_previews record store.
// На одну запись активен не более одного токена: выпуск нового
// удаляет все предыдущие.
type PreviewToken struct {
	// ID — идентификатор записи токена в record store
	ID string `json:"id"`
	// Token — случайная 256-битная hex-строка, уникальна
	Token string `json:"token"`
	// Entry — id записи, к которой даёт доступ
	Entry string `json:"entry"`
	// ExpiresAt — время истечения; токен валиден строго при now < ExpiresAt
	ExpiresAt time.Time `json:"expires_at"`
	// PasswordHash — HMAC-SHA256 пароля под серверной солью, пустая строка — без пароля
	PasswordHash string `json:"password_hash,omitempty"`
	// Created — системный timestamp record store
	Created time.Time `json:"created"`
}

// HasPassword сообщает, защищён ли токен паролем.
func (t *PreviewToken) HasPassword() bool {
	return t.PasswordHash != ""
}

// IsExpired проверяет истечение токена на момент now.
// Граница эксклюзивна: в момент now == ExpiresAt токен уже истёк.
func (t *PreviewToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
