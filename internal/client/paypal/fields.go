package paypal

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// Field: одна пара key=value тела запроса
type Field struct {
	Key   string
	Value string
}

// Fields: упорядоченный набор полей запроса.
// Порядок сохраняется при сериализации, чтобы тело запроса было детерминированным.
type Fields []Field

// Add добавляет строковое поле
func (f *Fields) Add(key, value string) {
	*f = append(*f, Field{Key: key, Value: value})
}

// AddAmount добавляет денежное поле с двумя знаками после запятой
func (f *Fields) AddAmount(key string, amount decimal.Decimal) {
	f.Add(key, amount.StringFixed(2))
}

// Get возвращает первое значение по ключу
func (f Fields) Get(key string) (string, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return "", false
}

// Encode сериализует поля в application/x-www-form-urlencoded
func (f Fields) Encode() string {
	var b strings.Builder
	for i, field := range f {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(field.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(field.Value))
	}
	return b.String()
}

// secretKeys: поля тела NVP запроса, которые не должны попасть в аудит
var secretKeys = map[string]struct{}{
	"PWD":       {},
	"SIGNATURE": {},
}

// masked возвращает копию полей с замаскированными секретами
func (f Fields) masked() Fields {
	out := make(Fields, len(f))
	for i, field := range f {
		if _, ok := secretKeys[field.Key]; ok {
			field.Value = "***"
		}
		out[i] = field
	}
	return out
}
