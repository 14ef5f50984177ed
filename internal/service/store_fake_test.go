package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/devalphasystem/contenthub/internal/domain/model"
	"github.com/devalphasystem/contenthub/internal/recordstore"
	"github.com/devalphasystem/contenthub/internal/repository"
)

// fakeStore — in-memory реализация recordstore.Store для тестов.
// Записи хранятся после JSON-roundtrip, чтобы явные null вели себя
// так же, как в настоящем record store.
type fakeStore struct {
	mu    sync.Mutex
	cols  map[recordstore.Collection]map[string]map[string]any
	order map[recordstore.Collection][]string
	seq   int
	clock int

	// Инъекция ошибок
	failCreate map[recordstore.Collection]error
	failList   map[recordstore.Collection]error
	failDelete map[string]error
}

var _ recordstore.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		cols:       make(map[recordstore.Collection]map[string]map[string]any),
		order:      make(map[recordstore.Collection][]string),
		failCreate: make(map[recordstore.Collection]error),
		failList:   make(map[recordstore.Collection]error),
		failDelete: make(map[string]error),
	}
}

// roundtrip сериализует data в map через JSON (null сохраняются).
func roundtrip(data any) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// tick возвращает монотонно возрастающий timestamp для created/updated.
func (f *fakeStore) tick() string {
	f.clock++
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).
		Add(time.Duration(f.clock) * time.Second).Format(time.RFC3339)
}

// seed кладёт запись в коллекцию напрямую, минуя Create.
func (f *fakeStore) seed(col recordstore.Collection, id string, data map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := roundtrip(data)
	if err != nil {
		panic(err)
	}
	m["id"] = id
	if _, ok := m["created"]; !ok {
		m["created"] = f.tick()
	}
	if _, ok := m["updated"]; !ok {
		m["updated"] = m["created"]
	}

	if f.cols[col] == nil {
		f.cols[col] = make(map[string]map[string]any)
	}
	f.cols[col][id] = m
	f.order[col] = append(f.order[col], id)
}

func (f *fakeStore) records(col recordstore.Collection) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []map[string]any
	for _, id := range f.order[col] {
		if rec, ok := f.cols[col][id]; ok {
			out = append(out, rec)
		}
	}
	return out
}

func (f *fakeStore) count(col recordstore.Collection) int {
	return len(f.records(col))
}

// actions возвращает действия журнала аудита в порядке записи.
func (f *fakeStore) actions() []string {
	var out []string
	for _, rec := range f.records(recordstore.CollectionAuditLogs) {
		action, _ := rec["action"].(string)
		out = append(out, action)
	}
	return out
}

func (f *fakeStore) Get(_ context.Context, col recordstore.Collection, id string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.cols[col][id]
	if !ok {
		return recordstore.ErrNotFound
	}
	return decodeRecord(rec, out)
}

func (f *fakeStore) GetOne(_ context.Context, col recordstore.Collection, filter string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range f.order[col] {
		rec, ok := f.cols[col][id]
		if !ok {
			continue
		}
		if matchFilter(rec, filter) {
			return decodeRecord(rec, out)
		}
	}
	return recordstore.ErrNotFound
}

func (f *fakeStore) List(_ context.Context, col recordstore.Collection, page, perPage int, opts recordstore.ListOptions) (*recordstore.ListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failList[col]; err != nil {
		return nil, err
	}

	var matched []map[string]any
	for _, id := range f.order[col] {
		rec, ok := f.cols[col][id]
		if !ok {
			continue
		}
		if matchFilter(rec, opts.Filter) {
			matched = append(matched, rec)
		}
	}

	if opts.Sort != "" {
		field := opts.Sort
		desc := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		sort.SliceStable(matched, func(i, j int) bool {
			less := fieldLess(matched[i][field], matched[j][field])
			if desc {
				return fieldLess(matched[j][field], matched[i][field])
			}
			return less
		})
	}

	total := len(matched)
	totalPages := (total + perPage - 1) / perPage

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	items, err := json.Marshal(matched[start:end])
	if err != nil {
		return nil, err
	}

	return &recordstore.ListResult{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
		Items:      items,
	}, nil
}

func (f *fakeStore) Create(_ context.Context, col recordstore.Collection, data any, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failCreate[col]; err != nil {
		return err
	}

	rec, err := roundtrip(data)
	if err != nil {
		return err
	}

	id, _ := rec["id"].(string)
	if id == "" {
		f.seq++
		id = fmt.Sprintf("rec%012d", f.seq)
		rec["id"] = id
	}

	if f.cols[col] == nil {
		f.cols[col] = make(map[string]map[string]any)
	}
	if _, exists := f.cols[col][id]; exists {
		return recordstore.ErrConflict
	}

	created, _ := rec["created"].(string)
	if created == "" {
		rec["created"] = f.tick()
	}
	rec["updated"] = rec["created"]

	f.cols[col][id] = rec
	f.order[col] = append(f.order[col], id)

	if out != nil {
		return decodeRecord(rec, out)
	}
	return nil
}

func (f *fakeStore) Update(_ context.Context, col recordstore.Collection, id string, data any, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.cols[col][id]
	if !ok {
		return recordstore.ErrNotFound
	}

	patch, err := roundtrip(data)
	if err != nil {
		return err
	}
	for k, v := range patch {
		rec[k] = v
	}
	rec["updated"] = f.tick()

	if out != nil {
		return decodeRecord(rec, out)
	}
	return nil
}

func (f *fakeStore) Delete(_ context.Context, col recordstore.Collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failDelete[id]; err != nil {
		return err
	}

	if _, ok := f.cols[col][id]; !ok {
		return recordstore.ErrNotFound
	}
	delete(f.cols[col], id)
	return nil
}

func (f *fakeStore) Increment(_ context.Context, col recordstore.Collection, id, field string, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.cols[col][id]
	if !ok {
		return recordstore.ErrNotFound
	}
	cur, _ := rec[field].(float64)
	rec[field] = cur + float64(delta)
	return nil
}

// fieldLess сравнивает значения поля; timestamps сравниваются как время,
// остальное — как строки.
func fieldLess(a, b any) bool {
	as, _ := a.(string)
	bs, _ := b.(string)
	at, aerr := time.Parse(time.RFC3339Nano, as)
	bt, berr := time.Parse(time.RFC3339Nano, bs)
	if aerr == nil && berr == nil {
		return at.Before(bt)
	}
	return as < bs
}

func decodeRecord(rec map[string]any, out any) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// matchFilter — упрощённый матчер фильтров Eq/Before/And.
func matchFilter(rec map[string]any, filter string) bool {
	if filter == "" {
		return true
	}
	for _, cond := range strings.Split(filter, " && ") {
		if i := strings.Index(cond, "='"); i >= 0 {
			field := cond[:i]
			val := unquoteFilterValue(cond[i+1:])
			got, _ := rec[field].(string)
			if got != val {
				return false
			}
			continue
		}
		if i := strings.Index(cond, "<'"); i >= 0 {
			field := cond[:i]
			val := unquoteFilterValue(cond[i+1:])
			cutoff, err := time.Parse("2006-01-02 15:04:05.000Z", val)
			if err != nil {
				return false
			}
			raw, _ := rec[field].(string)
			got, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				return false
			}
			if !got.Before(cutoff) {
				return false
			}
			continue
		}
		return false
	}
	return true
}

func unquoteFilterValue(q string) string {
	q = strings.TrimPrefix(q, "'")
	q = strings.TrimSuffix(q, "'")
	q = strings.ReplaceAll(q, `\'`, `'`)
	q = strings.ReplaceAll(q, `\\`, `\`)
	return q
}

// --- Фейковые репозитории локальных журналов ---

type fakeViewLogs struct {
	mu   sync.Mutex
	rows []model.ViewLogRow

	seenErr   error
	insertErr error
	deleteErr error
}

func (f *fakeViewLogs) SeenWithin(_ context.Context, entryID, ipHash string, window time.Duration) (bool, error) {
	if f.seenErr != nil {
		return false, f.seenErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := time.Now().UTC().Add(-window)
	for _, r := range f.rows {
		if r.EntryID == entryID && r.IPHash == ipHash && !r.ViewedAt.Before(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeViewLogs) Insert(_ context.Context, row *model.ViewLogRow) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *row)
	return nil
}

func (f *fakeViewLogs) DeleteByEntry(_ context.Context, entryID string) (int, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.rows[:0]
	deleted := 0
	for _, r := range f.rows {
		if r.EntryID == entryID {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return deleted, nil
}

func (f *fakeViewLogs) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.rows[:0]
	deleted := 0
	for _, r := range f.rows {
		if r.ViewedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return deleted, nil
}

var _ repository.ViewLogRepository = (*fakeViewLogs)(nil)

type fakeDurations struct {
	mu   sync.Mutex
	rows []model.ViewDurationRow

	insertErr error
	deleteErr error
}

func (f *fakeDurations) Insert(_ context.Context, row *model.ViewDurationRow) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *row)
	return nil
}

func (f *fakeDurations) DeleteByEntry(_ context.Context, entryID string) (int, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.rows[:0]
	deleted := 0
	for _, r := range f.rows {
		if r.EntryID == entryID {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return deleted, nil
}

var _ repository.ViewDurationRepository = (*fakeDurations)(nil)

// testLogger — логгер для тестов, печатает только ошибки.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
