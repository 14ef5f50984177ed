// client.go — HTTP-клиент к record store.
// Аутентификация админ-токеном через POST /api/admins/auth-with-password,
// кэширование токена (обновление за 60s до истечения), при 401 —
// принудительный refresh и один повтор запроса.
// Записи: /api/collections/{collection}/records.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Client — HTTP-клиент к record store. Реализует Store.
type Client struct {
	baseURL  string // Базовый URL record store (без trailing slash)
	identity string // Идентификатор админ-аккаунта
	password string // Пароль админ-аккаунта

	httpClient *http.Client
	logger     *slog.Logger

	// Кэш админ-токена. Токен обновляется за 60 секунд до истечения.
	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	tokenTTL    time.Duration
}

// New создаёт клиент record store.
// baseURL — базовый URL backend'а (например, http://records:8090).
// identity, password — credentials админ-аккаунта.
// tokenTTL — срок жизни кэшированного токена (backend выдаёт долгоживущие
// токены, TTL ограничивает их использование на нашей стороне).
func New(baseURL, identity, password string, tokenTTL time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		identity:   identity,
		password:   password,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokenTTL:   tokenTTL,
		logger:     logger.With(slog.String("component", "recordstore_client")),
	}
}

// --- Аутентификация ---

// authResponse — ответ backend'а на auth-with-password.
type authResponse struct {
	Token string `json:"token"`
}

// getToken возвращает актуальный админ-токен, обновляя при необходимости.
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Проверяем кэш: если токен валиден ещё 60 секунд — используем его
	if c.token != "" && time.Now().Add(60*time.Second).Before(c.tokenExpiry) {
		return c.token, nil
	}

	token, err := c.requestToken(ctx)
	if err != nil {
		return "", err
	}

	c.token = token
	c.tokenExpiry = time.Now().Add(c.tokenTTL)

	c.logger.Debug("Админ-токен record store обновлён",
		slog.Time("expires_at", c.tokenExpiry),
	)

	return c.token, nil
}

// ForceRefresh сбрасывает кэш токена; следующий запрос получит новый.
func (c *Client) ForceRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.tokenExpiry = time.Time{}
}

// requestToken выполняет аутентификацию админ-аккаунта.
func (c *Client) requestToken(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"identity": c.identity,
		"password": c.password,
	})
	if err != nil {
		return "", fmt.Errorf("сериализация auth-запроса: %w", err)
	}

	reqURL := c.baseURL + "/api/admins/auth-with-password"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("создание auth-запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth-запрос к record store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("record store вернул статус %d при аутентификации: %s", resp.StatusCode, string(data))
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", fmt.Errorf("декодирование auth-ответа: %w", err)
	}

	return auth.Token, nil
}

// --- HTTP helpers ---

// recordsPath возвращает путь коллекции записей.
func recordsPath(col Collection) string {
	return "/api/collections/" + string(col) + "/records"
}

// doAuthorized выполняет запрос к API записей с авторизацией.
// При 401 кэш токена сбрасывается и запрос повторяется один раз с новым
// токеном: backend мог отозвать токен раньше расчётного срока.
func (c *Client) doAuthorized(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("сериализация тела запроса: %w", err)
		}
	}

	resp, err := c.send(ctx, method, path, data)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	c.ForceRefresh()
	c.logger.Warn("Record store вернул 401, повтор запроса с новым токеном",
		slog.String("method", method),
		slog.String("path", path),
	)
	return c.send(ctx, method, path, data)
}

// send выполняет один запрос с текущим (возможно, кэшированным) токеном.
func (c *Client) send(ctx context.Context, method, path string, data []byte) (*http.Response, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение токена: %w", err)
	}

	var bodyReader io.Reader
	if data != nil {
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// apiErrorBody — тело ошибки record store.
type apiErrorBody struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

// decodeResponse декодирует JSON-ответ в target, маппя статусы на ошибки.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return mapAPIError(resp)
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("декодирование ответа record store: %w", err)
		}
	}

	return nil
}

// mapAPIError переводит не-2xx ответ в типизированную ошибку.
// 404 → ErrNotFound; 400 с нарушением уникальности → ErrConflict;
// остальное → *APIError.
func mapAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var body apiErrorBody
	_ = json.Unmarshal(raw, &body)
	msg := body.Message
	if msg == "" {
		msg = string(raw)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case resp.StatusCode == http.StatusBadRequest && hasUniqueViolation(body.Data):
		return fmt.Errorf("%w: %s", ErrConflict, msg)
	default:
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
}

// hasUniqueViolation ищет в данных валидации backend'а код нарушения
// уникальности хотя бы по одному полю.
func hasUniqueViolation(data map[string]any) bool {
	for _, v := range data {
		field, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if code, ok := field["code"].(string); ok && strings.Contains(code, "not_unique") {
			return true
		}
	}
	return false
}

// --- Store ---

// Get загружает запись по id.
func (c *Client) Get(ctx context.Context, col Collection, id string, out any) error {
	resp, err := c.doAuthorized(ctx, http.MethodGet, recordsPath(col)+"/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	if err := decodeResponse(resp, out); err != nil {
		return fmt.Errorf("Get %s/%s: %w", col, id, err)
	}
	return nil
}

// GetOne возвращает первую запись по фильтру, ErrNotFound при отсутствии.
func (c *Client) GetOne(ctx context.Context, col Collection, filter string, out any) error {
	res, err := c.List(ctx, col, 1, 1, ListOptions{Filter: filter})
	if err != nil {
		return err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(res.Items, &items); err != nil {
		return fmt.Errorf("GetOne %s: декодирование items: %w", col, err)
	}
	if len(items) == 0 {
		return fmt.Errorf("GetOne %s: %w", col, ErrNotFound)
	}
	if out != nil {
		if err := json.Unmarshal(items[0], out); err != nil {
			return fmt.Errorf("GetOne %s: декодирование записи: %w", col, err)
		}
	}
	return nil
}

// List возвращает страницу записей коллекции.
func (c *Client) List(ctx context.Context, col Collection, page, perPage int, opts ListOptions) (*ListResult, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprintf("%d", page))
	q.Set("perPage", fmt.Sprintf("%d", perPage))
	if opts.Filter != "" {
		q.Set("filter", opts.Filter)
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.Fields != "" {
		q.Set("fields", opts.Fields)
	}

	resp, err := c.doAuthorized(ctx, http.MethodGet, recordsPath(col)+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var res ListResult
	if err := decodeResponse(resp, &res); err != nil {
		return nil, fmt.Errorf("List %s: %w", col, err)
	}
	return &res, nil
}

// Create создаёт запись.
func (c *Client) Create(ctx context.Context, col Collection, data any, out any) error {
	resp, err := c.doAuthorized(ctx, http.MethodPost, recordsPath(col), data)
	if err != nil {
		return err
	}
	if err := decodeResponse(resp, out); err != nil {
		return fmt.Errorf("Create %s: %w", col, err)
	}
	return nil
}

// Update частично обновляет запись; nil-значения полей пишутся как null.
func (c *Client) Update(ctx context.Context, col Collection, id string, data any, out any) error {
	resp, err := c.doAuthorized(ctx, http.MethodPatch, recordsPath(col)+"/"+url.PathEscape(id), data)
	if err != nil {
		return err
	}
	if err := decodeResponse(resp, out); err != nil {
		return fmt.Errorf("Update %s/%s: %w", col, id, err)
	}
	return nil
}

// Delete удаляет запись по id.
func (c *Client) Delete(ctx context.Context, col Collection, id string) error {
	resp, err := c.doAuthorized(ctx, http.MethodDelete, recordsPath(col)+"/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	if err := decodeResponse(resp, nil); err != nil {
		return fmt.Errorf("Delete %s/%s: %w", col, id, err)
	}
	return nil
}

// Increment атомарно изменяет числовое поле на delta через field-оператор
// backend'а ("views+": 1). Конкурентные инкременты не теряют обновлений.
func (c *Client) Increment(ctx context.Context, col Collection, id, field string, delta int) error {
	data := map[string]any{field + "+": delta}
	if err := c.Update(ctx, col, id, data, nil); err != nil {
		return fmt.Errorf("Increment %s/%s %s%+d: %w", col, id, field, delta, err)
	}
	return nil
}

// HealthURL возвращает URL health-endpoint'а backend'а (для мониторинга зависимостей).
func (c *Client) HealthURL() string {
	return c.baseURL + "/api/health"
}

// CheckReady проверяет доступность record store через health endpoint.
// Реализует handlers.ReadinessChecker.
func (c *Client) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.HealthURL(), nil)
	if err != nil {
		return "fail", fmt.Sprintf("record store: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "fail", fmt.Sprintf("record store недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "degraded", fmt.Sprintf("record store вернул статус %d", resp.StatusCode)
	}
	return "ok", "record store доступен"
}
