package paypal

import (
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// ErrorDetail: одна ошибка из ответа PayPal.
// Adaptive API отдаёт error(N).errorId/error(N).message, classic NVP отдаёт L_ERRORCODEN/L_LONGMESSAGEN;
// оба семейства приводятся к этому виду при разборе.
type ErrorDetail struct {
	Code    string
	Message string
}

// Response: разобранный ответ PayPal и аудит-данные вызова.
// Клиент не интерпретирует успех или неуспех ответа.
type Response struct {
	Operation Operation
	// RawRequest тело запроса в том виде, в котором оно ушло (секреты замаскированы)
	RawRequest string
	// RawResponse тело ответа без изменений
	RawResponse string
	// Elapsed время от отправки запроса до полного чтения ответа
	Elapsed time.Duration

	fields map[string]string
}

// NewResponse разбирает тело ответа формата application/x-www-form-urlencoded.
// При повторе ключа сохраняется первое значение.
func NewResponse(op Operation, rawRequest, rawResponse string, elapsed time.Duration) *Response {
	return &Response{
		Operation:   op,
		RawRequest:  rawRequest,
		RawResponse: rawResponse,
		Elapsed:     elapsed,
		fields:      parseBody(rawResponse),
	}
}

func parseBody(body string) map[string]string {
	// ParseQuery возвращает всё, что удалось разобрать, даже вместе с ошибкой
	values, _ := url.ParseQuery(body)
	out := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			out[key] = vals[0]
		}
	}
	return out
}

// Get возвращает значение поля и признак его наличия
func (r *Response) Get(key string) (string, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// Decimal возвращает поле как decimal.
// present=false, если поля нет; err!=nil, если поле есть, но это не число.
func (r *Response) Decimal(key string) (value decimal.Decimal, present bool, err error) {
	raw, ok := r.fields[key]
	if !ok {
		return decimal.Decimal{}, false, nil
	}
	value, err = decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, true, fmt.Errorf("field %s is not a decimal: %w", key, err)
	}
	return value, true, nil
}

// Fields возвращает копию всех полей ответа
func (r *Response) Fields() map[string]string {
	out := make(map[string]string, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// Ack возвращает значение подтверждения из ответа любого семейства API
func (r *Response) Ack() string {
	return r.first("responseEnvelope.ack", "ACK")
}

// CorrelationID возвращает correlation id из ответа любого семейства API
func (r *Response) CorrelationID() string {
	return r.first("responseEnvelope.correlationId", "CORRELATIONID")
}

// Errors возвращает список ошибок ответа в порядке индексов
func (r *Response) Errors() []ErrorDetail {
	var out []ErrorDetail
	for i := 0; ; i++ {
		code, hasCode := r.fields[fmt.Sprintf("error(%d).errorId", i)]
		msg, hasMsg := r.fields[fmt.Sprintf("error(%d).message", i)]
		if !hasCode && !hasMsg {
			code, hasCode = r.fields[fmt.Sprintf("L_ERRORCODE%d", i)]
			msg, hasMsg = r.fields[fmt.Sprintf("L_LONGMESSAGE%d", i)]
			if !hasMsg {
				msg, hasMsg = r.fields[fmt.Sprintf("L_SHORTMESSAGE%d", i)]
			}
		}
		if !hasCode && !hasMsg {
			return out
		}
		out = append(out, ErrorDetail{Code: code, Message: msg})
	}
}

func (r *Response) first(keys ...string) string {
	for _, key := range keys {
		if v, ok := r.fields[key]; ok {
			return v
		}
	}
	return ""
}
