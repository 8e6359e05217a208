package application

import (
	"bytes"
	"encoding/json"

	"webhook-gateway/middleware/webhookguard/domain"
)

const jsonContentType = "application/json"

// BodyReader entrega o corpo bruto da requisição. Só é chamado depois que o
// Content-Type foi aceito.
type BodyReader func() ([]byte, error)

// Validator confere se uma requisição parece um update do Telegram.
// Não autentica nada; só descarta lixo antes do rate limit.
type Validator struct{}

// Validate roda as checagens na ordem: content-type, corpo vazio, JSON,
// update_id, tipo do update. Erro de leitura ou panic viram
// ReasonValidationFailed (fail-closed).
func (Validator) Validate(contentType string, read BodyReader) (res domain.Validation) {
	defer func() {
		if recover() != nil {
			res = domain.Invalid(domain.ReasonValidationFailed)
		}
	}()

	if contentType != jsonContentType {
		return domain.Invalid(domain.ReasonInvalidContentType)
	}

	body, err := read()
	if err != nil {
		return domain.Invalid(domain.ReasonValidationFailed)
	}
	if len(body) == 0 {
		return domain.Invalid(domain.ReasonEmptyBody)
	}
	if !json.Valid(body) {
		return domain.Invalid(domain.ReasonInvalidJSON)
	}

	// JSON válido que não é objeto (array, número, null) nem tem como ser lido
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return domain.Invalid(domain.ReasonValidationFailed)
	}
	rawID, ok := fields["update_id"]
	if !ok {
		return domain.Invalid(domain.ReasonMissingUpdateID)
	}

	for _, kind := range domain.UpdateKinds {
		if _, ok := fields[string(kind)]; ok {
			return domain.Valid(domain.UpdateInfo{
				ID:   string(bytes.TrimSpace(rawID)),
				Kind: kind,
				Size: len(body),
			})
		}
	}
	return domain.Invalid(domain.ReasonInvalidUpdateStructure)
}
