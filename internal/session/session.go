// Пакет session — cookie-сессии публичного предпросмотра.
// В зашифрованном cookie хранятся отметки пройденных проверок:
// валидные preview-токены и проверенные пароли проектов.
// Шифрование AES-256-GCM.
package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Имя cookie зашифрованной сессии.
const CookieName = "contenthub_session"

// Максимальный возраст cookie сессии (24 часа).
const CookieMaxAge = 24 * 60 * 60

// Data — данные сессии, хранящиеся в зашифрованном cookie.
type Data struct {
	// ValidPreviews — preview-токены, для которых пароль уже проверен.
	ValidPreviews map[string]bool `json:"valid_previews,omitempty"`
	// ValidProjectPasswords — проекты, пароль которых уже проверен.
	ValidProjectPasswords map[string]bool `json:"valid_project_passwords,omitempty"`
}

// HasPreviewAccess сообщает, проверен ли пароль указанного preview-токена.
func (d *Data) HasPreviewAccess(token string) bool {
	return d != nil && d.ValidPreviews[token]
}

// GrantPreviewAccess отмечает preview-токен как прошедший проверку пароля.
func (d *Data) GrantPreviewAccess(token string) {
	if d.ValidPreviews == nil {
		d.ValidPreviews = make(map[string]bool)
	}
	d.ValidPreviews[token] = true
}

// HasProjectAccess сообщает, проверен ли пароль проекта.
func (d *Data) HasProjectAccess(projectID string) bool {
	return d != nil && d.ValidProjectPasswords[projectID]
}

// GrantProjectAccess отмечает проект как прошедший проверку пароля.
func (d *Data) GrantProjectAccess(projectID string) {
	if d.ValidProjectPasswords == nil {
		d.ValidProjectPasswords = make(map[string]bool)
	}
	d.ValidProjectPasswords[projectID] = true
}

// Manager — менеджер cookie-сессий.
// Шифрует/дешифрует Data в HTTP cookies через AES-256-GCM.
type Manager struct {
	// gcm — AEAD cipher для шифрования/дешифрования.
	gcm cipher.AEAD
	// secure — использовать Secure flag для cookie (true для HTTPS).
	secure bool
}

// NewManager создаёт новый менеджер сессий.
// key — 32-байтовый ключ для AES-256-GCM.
// Если key пустой — генерируется случайный ключ (непостоянный между рестартами).
func NewManager(key string, secure bool) (*Manager, error) {
	var keyBytes []byte

	if key == "" {
		// Автогенерация ключа (32 bytes = AES-256)
		keyBytes = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, keyBytes); err != nil {
			return nil, fmt.Errorf("ошибка генерации ключа сессии: %w", err)
		}
	} else {
		// Декодируем base64-ключ или используем как raw bytes
		var err error
		keyBytes, err = base64.StdEncoding.DecodeString(key)
		if err != nil || len(keyBytes) != 32 {
			// Если не base64 — хешируем строку до 32 bytes через SHA-256
			// (для удобства конфигурации)
			keyBytes = sha256Key(key)
		}
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	return &Manager{
		gcm:    gcm,
		secure: secure,
	}, nil
}

// Encrypt шифрует Data и возвращает base64-строку.
func (m *Manager) Encrypt(data *Data) (string, error) {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации сессии: %w", err)
	}

	// Генерируем уникальный nonce для каждого шифрования
	nonce := make([]byte, m.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	// Шифруем с аутентификацией (nonce prepended к ciphertext)
	ciphertext := m.gcm.Seal(nonce, nonce, plaintext, nil)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// Decrypt дешифрует base64-строку обратно в Data.
func (m *Manager) Decrypt(encrypted string) (*Data, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, fmt.Errorf("ошибка декодирования base64: %w", err)
	}

	nonceSize := m.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("зашифрованные данные слишком короткие")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := m.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка дешифрования сессии: %w", err)
	}

	var data Data
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("ошибка десериализации сессии: %w", err)
	}

	return &data, nil
}

// SetCookie устанавливает зашифрованный session cookie в ответ.
func (m *Manager) SetCookie(w http.ResponseWriter, data *Data) error {
	encrypted, err := m.Encrypt(data)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    encrypted,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// FromRequest извлекает и дешифрует Data из cookie запроса.
// Отсутствующий или нечитаемый cookie даёт пустую сессию, не ошибку:
// повреждённый cookie равносилен отсутствию доступа.
func (m *Manager) FromRequest(r *http.Request) *Data {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return &Data{}
	}

	data, err := m.Decrypt(cookie.Value)
	if err != nil {
		return &Data{}
	}
	return data
}

// ClearCookie удаляет session cookie из ответа.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sha256Key хеширует строковый ключ в 32 bytes через SHA-256.
func sha256Key(key string) []byte {
	h := sha256.Sum256([]byte(key))
	return h[:]
}
