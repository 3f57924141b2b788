package phase

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase: позиция в повторяющемся цикле из 4 шагов (индекс тика).
// Нулевое значение None означает, что цифра не распознана.
type Phase uint8

const (
	None Phase = 0
	// Count: длина цикла
	Count = 4
)

// Valid возвращает true для значений 1..4
func (p Phase) Valid() bool {
	return p >= 1 && p <= Count
}

// Next возвращает следующую фазу цикла: 4 -> 1
func (p Phase) Next() Phase {
	if !p.Valid() {
		return None
	}
	if p == Count {
		return 1
	}
	return p + 1
}

// Prev возвращает предыдущую фазу цикла: 1 -> 4
func (p Phase) Prev() Phase {
	if !p.Valid() {
		return None
	}
	if p == 1 {
		return Count
	}
	return p - 1
}

// String возвращает цифру фазы или пустую строку для None
func (p Phase) String() string {
	if !p.Valid() {
		return ""
	}
	return strconv.Itoa(int(p))
}

// Parse разбирает строковое представление фазы. Пустая строка даёт None.
func Parse(s string) (Phase, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return None, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return None, fmt.Errorf("некорректная фаза %q: %w", s, err)
	}
	p, ok := FromInt(n)
	if !ok {
		return None, fmt.Errorf("фаза %d вне диапазона 1..%d", n, Count)
	}
	return p, nil
}

// FromInt приводит int к Phase, проверяя диапазон до приведения
// (иначе 257 превратилось бы в 1)
func FromInt(n int) (Phase, bool) {
	if n < 1 || n > Count {
		return None, false
	}
	return Phase(n), true
}
