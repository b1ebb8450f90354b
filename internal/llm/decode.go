package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/fields"
)

// FieldDecoder turns a model reply into assisted fields: the JSON object is
// cut out of the reply, normalized, validated and, when lenient, stripped of
// the offending optional fields and validated again.
type FieldDecoder struct {
	Validator  *Validator
	Categories []string
	Lenient    bool
	Logger     *slog.Logger
}

// NewFieldDecoder compiles the ticket schema for the category whitelist.
func NewFieldDecoder(lenient bool, logger *slog.Logger) (*FieldDecoder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	categories := constants.AsStringSlice()
	v, err := NewValidator(BuildTicketJSONSchema(categories))
	if err != nil {
		return nil, err
	}
	return &FieldDecoder{Validator: v, Categories: categories, Lenient: lenient, Logger: logger}, nil
}

func (d *FieldDecoder) Decode(reply string) (fields.AssistedFields, error) {
	obj, ok := cutJSONObject(reply)
	if !ok {
		return fields.AssistedFields{}, common.NewAppError("LLM_REPLY", "no JSON object in reply", common.ErrDecode)
	}
	doc, _, err := NormalizeTicketJSON([]byte(obj), d.Logger)
	if err != nil {
		return fields.AssistedFields{}, common.NewAppError("LLM_REPLY", "normalize reply", fmt.Errorf("%w: %v", common.ErrDecode, err))
	}

	if err := d.Validator.Validate(doc); err != nil {
		if !d.Lenient {
			d.Logger.Error("llm.fields.schema_validation_failed", "error", err, "content", string(doc))
			return fields.AssistedFields{}, common.NewAppError("LLM_REPLY", "schema validation failed", fmt.Errorf("%w: %v", common.ErrValidation, err))
		}
		cleaned, dropped, sErr := SanitizeOptionalFields(doc, d.Categories)
		if sErr != nil {
			return fields.AssistedFields{}, common.NewAppError("LLM_REPLY", "sanitize failed", fmt.Errorf("%w: %v", common.ErrDecode, sErr))
		}
		if vErr := d.Validator.Validate(cleaned); vErr != nil {
			d.Logger.Error("llm.fields.schema_validation_failed", "error", vErr, "content", string(cleaned))
			return fields.AssistedFields{}, common.NewAppError("LLM_REPLY", "schema validation failed", fmt.Errorf("%w: %v", common.ErrValidation, vErr))
		}
		d.Logger.Warn("llm.fields.lenient_sanitize_applied", "dropped", dropped)
		doc = cleaned
	}

	var out fields.AssistedFields
	if err := json.Unmarshal(doc, &out); err != nil {
		return fields.AssistedFields{}, common.NewAppError("LLM_REPLY", "unmarshal fields", fmt.Errorf("%w: %v", common.ErrDecode, err))
	}
	return out, nil
}

// cutJSONObject strips markdown fences and keeps the outermost {...}.
func cutJSONObject(reply string) (string, bool) {
	s := strings.TrimSpace(reply)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}
