package service

import (
	"errors"
	"fmt"
	"strings"
)

// APIError — не-2xx ответ шлюза. Тело сохраняем целиком, по нему
// классифицируем отказ (см. IsFunding / IsAuth).
type APIError struct {
	Status int
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("metaapi http %d %s: %s", e.Status, e.Path, e.Body)
}

// Ключевые слова биллинговых отказов. Шлюз не отдаёт машинный код,
// поэтому нюхаем текст ответа.
var fundingMarkers = []string{"funding", "credit", "balance", "payment"}

// IsFunding — отказ из-за неоплаченного счёта / исчерпанного кредита.
// Такие ошибки показываем пользователю отдельным сообщением.
func IsFunding(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	body := strings.ToLower(apiErr.Body)
	for _, m := range fundingMarkers {
		if strings.Contains(body, m) {
			return true
		}
	}
	return false
}

// IsAuth — протухший или невалидный auth-token.
func IsAuth(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == 401 || apiErr.Status == 403
}
