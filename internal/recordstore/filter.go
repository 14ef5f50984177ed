// filter.go — построение выражений фильтрации record store.
// DSL backend'а: равенство и сравнение полей, логические && / ||,
// строковые литералы в одинарных кавычках.
package recordstore

import (
	"fmt"
	"strings"
	"time"
)

// Формат времени в фильтрах record store.
const filterTimeLayout = "2006-01-02 15:04:05.000Z"

// quote экранирует строковое значение для фильтра.
// Одинарные кавычки и обратные слэши внутри значения экранируются,
// чтобы пользовательский ввод не ломал выражение.
func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// Eq — условие равенства поля строковому значению.
func Eq(field, value string) string {
	return fmt.Sprintf("%s=%s", field, quote(value))
}

// Before — условие "поле раньше момента t".
func Before(field string, t time.Time) string {
	return fmt.Sprintf("%s<%s", field, quote(t.UTC().Format(filterTimeLayout)))
}

// And объединяет условия через &&, пропуская пустые.
func And(conds ...string) string {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " && ")
}
