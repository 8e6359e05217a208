package domain

// Reason identifica por que um payload de webhook foi rejeitado.
type Reason string

const (
	ReasonInvalidContentType     Reason = "invalid_content_type"
	ReasonEmptyBody              Reason = "empty_body"
	ReasonInvalidJSON            Reason = "invalid_json"
	ReasonMissingUpdateID        Reason = "missing_update_id"
	ReasonInvalidUpdateStructure Reason = "invalid_update_structure"
	ReasonValidationFailed       Reason = "validation_failed"
)

type UpdateKind string

const (
	KindMessage       UpdateKind = "message"
	KindCallbackQuery UpdateKind = "callback_query"
	KindInlineQuery   UpdateKind = "inline_query"
)

// UpdateKinds na ordem em que são reconhecidas.
var UpdateKinds = []UpdateKind{KindMessage, KindCallbackQuery, KindInlineQuery}

// UpdateInfo resume um update aceito (usado só para log).
type UpdateInfo struct {
	ID   string
	Kind UpdateKind
	Size int
}

// Validation é o resultado da validação: Reason vazio significa válido.
type Validation struct {
	Reason Reason
	Update UpdateInfo
}

func Valid(u UpdateInfo) Validation { return Validation{Update: u} }

func Invalid(r Reason) Validation { return Validation{Reason: r} }

func (v Validation) OK() bool { return v.Reason == "" }

// Err converte o resultado em erro (nil quando válido).
func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return &InvalidPayloadError{Reason: v.Reason}
}
