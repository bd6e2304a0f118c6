package service

import (
	"encoding/json"
	"fmt"
	"html"
	"net/mail"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"gorm.io/datatypes"
)

// 菜单表单字段类型
const (
	menuFieldText     = "text"
	menuFieldTextarea = "textarea"
	menuFieldPhone    = "phone"
	menuFieldEmail    = "email"
	menuFieldNumber   = "number"
	menuFieldSelect   = "select"
	menuFieldRadio    = "radio"
	menuFieldCheckbox = "checkbox"
)

var (
	menuFieldKeyPattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)
	menuPhonePattern    = regexp.MustCompile(`^\+?[0-9\-()\s]{6,20}$`)
)

type menuField struct {
	Key         string            `json:"key"`
	Type        string            `json:"type"`
	Label       map[string]string `json:"label,omitempty"`
	Placeholder map[string]string `json:"placeholder,omitempty"`
	Required    bool              `json:"required"`
	Regex       string            `json:"regex,omitempty"`
	Min         *float64          `json:"min,omitempty"`
	Max         *float64          `json:"max,omitempty"`
	MaxLen      *int              `json:"max_len,omitempty"`
	Options     []string          `json:"options,omitempty"`

	pattern *regexp.Regexp
}

type menuSchema struct {
	Fields []menuField `json:"fields"`
}

func schemaError(reason string) error {
	return opError(ErrMenuFormSchemaInvalid, "menu_form", 0, reason)
}

func answerError(key, reason string) error {
	return opError(ErrMenuFormAnswerInvalid, "answers."+key, 0, reason)
}

// NormalizeMenuFormSchema 校验并规范化菜单表单结构，空结构表示自由填写
func NormalizeMenuFormSchema(raw datatypes.JSON) (datatypes.JSON, error) {
	schema, err := parseMenuSchema(raw)
	if err != nil || schema == nil {
		return nil, err
	}
	body, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(body), nil
}

// ValidateMenuAnswers 按菜单表单结构校验顾客填写内容
//
// 表单未定义结构时原样接受；定义了结构时拒绝未声明的字段。
func ValidateMenuAnswers(raw datatypes.JSON, answers map[string]interface{}) (map[string]interface{}, error) {
	schema, err := parseMenuSchema(raw)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return answers, nil
	}
	return schema.normalize(answers)
}

func parseMenuSchema(raw datatypes.JSON) (*menuSchema, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed == "{}" {
		return nil, nil
	}
	var schema menuSchema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, schemaError("malformed json")
	}
	seen := make(map[string]struct{}, len(schema.Fields))
	for i := range schema.Fields {
		field := &schema.Fields[i]
		if err := field.prepare(); err != nil {
			return nil, err
		}
		if _, dup := seen[field.Key]; dup {
			return nil, schemaError("duplicate key " + field.Key)
		}
		seen[field.Key] = struct{}{}
	}
	return &schema, nil
}

func (f *menuField) prepare() error {
	f.Key = strings.TrimSpace(f.Key)
	f.Type = strings.ToLower(strings.TrimSpace(f.Type))
	if !menuFieldKeyPattern.MatchString(f.Key) {
		return schemaError(fmt.Sprintf("invalid key %q", f.Key))
	}
	switch f.Type {
	case menuFieldText, menuFieldTextarea, menuFieldPhone, menuFieldEmail, menuFieldNumber:
	case menuFieldSelect, menuFieldRadio, menuFieldCheckbox:
		f.Options = uniqueSortedOptions(f.Options)
		if len(f.Options) == 0 {
			return schemaError(f.Key + " needs options")
		}
	default:
		return schemaError(fmt.Sprintf("unsupported type %q", f.Type))
	}
	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		return schemaError(f.Key + " min greater than max")
	}
	if f.MaxLen != nil && *f.MaxLen <= 0 {
		return schemaError(f.Key + " max_len must be positive")
	}
	f.Label = compactLocaleText(f.Label)
	f.Placeholder = compactLocaleText(f.Placeholder)
	f.Regex = strings.TrimSpace(f.Regex)
	if f.Regex != "" {
		pattern, err := compileFieldPattern(f.Regex)
		if err != nil {
			return schemaError(f.Key + " invalid regex")
		}
		f.pattern = pattern
	}
	return nil
}

func (s *menuSchema) normalize(answers map[string]interface{}) (map[string]interface{}, error) {
	allowed := make(map[string]struct{}, len(s.Fields))
	for _, field := range s.Fields {
		allowed[field.Key] = struct{}{}
	}
	for key := range answers {
		if _, ok := allowed[key]; !ok {
			return nil, answerError(key, "unknown field")
		}
	}

	result := make(map[string]interface{}, len(s.Fields))
	for _, field := range s.Fields {
		value, present, err := field.normalize(answers[field.Key])
		if err != nil {
			return nil, err
		}
		if !present {
			if field.Required {
				return nil, answerError(field.Key, "required")
			}
			continue
		}
		result[field.Key] = value
	}
	return result, nil
}

// normalize 返回规范化后的值；空值视为未填写
func (f menuField) normalize(raw interface{}) (interface{}, bool, error) {
	if raw == nil {
		return nil, false, nil
	}
	switch f.Type {
	case menuFieldNumber:
		number, ok := toFloat(raw)
		if !ok {
			return nil, false, answerError(f.Key, "number expected")
		}
		if (f.Min != nil && number < *f.Min) || (f.Max != nil && number > *f.Max) {
			return nil, false, answerError(f.Key, "out of range")
		}
		return number, true, nil
	case menuFieldSelect, menuFieldRadio:
		text, ok := raw.(string)
		if !ok {
			return nil, false, answerError(f.Key, "string expected")
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, false, nil
		}
		if !f.hasOption(text) {
			return nil, false, answerError(f.Key, "unknown option")
		}
		return text, true, nil
	case menuFieldCheckbox:
		values, ok := toStringList(raw)
		if !ok {
			return nil, false, answerError(f.Key, "list expected")
		}
		values = uniqueSortedOptions(values)
		for _, value := range values {
			if !f.hasOption(value) {
				return nil, false, answerError(f.Key, "unknown option")
			}
		}
		if len(values) == 0 {
			return nil, false, nil
		}
		return values, true, nil
	}

	text, ok := raw.(string)
	if !ok {
		return nil, false, answerError(f.Key, "string expected")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false, nil
	}
	if f.MaxLen != nil && utf8.RuneCountInString(text) > *f.MaxLen {
		return nil, false, answerError(f.Key, "too long")
	}
	switch f.Type {
	case menuFieldPhone:
		if !menuPhonePattern.MatchString(text) {
			return nil, false, answerError(f.Key, "invalid phone")
		}
	case menuFieldEmail:
		if _, err := mail.ParseAddress(text); err != nil {
			return nil, false, answerError(f.Key, "invalid email")
		}
	}
	if f.pattern != nil && !f.pattern.MatchString(text) {
		return nil, false, answerError(f.Key, "pattern mismatch")
	}
	return html.EscapeString(text), true, nil
}

func (f menuField) hasOption(value string) bool {
	idx := sort.SearchStrings(f.Options, value)
	return idx < len(f.Options) && f.Options[idx] == value
}

// compileFieldPattern 支持 Go 正则与 /pattern/flags 字面量（i/m/s 生效，g/u/y 忽略）
func compileFieldPattern(raw string) (*regexp.Regexp, error) {
	if len(raw) < 2 || raw[0] != '/' {
		return regexp.Compile(raw)
	}
	end := strings.LastIndex(raw, "/")
	if end <= 0 {
		return regexp.Compile(raw)
	}
	var prefix strings.Builder
	for _, flag := range raw[end+1:] {
		switch flag {
		case 'i', 'm', 's':
			prefix.WriteString("(?" + string(flag) + ")")
		case 'g', 'u', 'y':
		default:
			return nil, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}
	return regexp.Compile(prefix.String() + raw[1:end])
}

func compactLocaleText(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	result := make(map[string]string, len(values))
	for locale, text := range values {
		if text = strings.TrimSpace(text); text != "" {
			result[locale] = text
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func uniqueSortedOptions(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	sort.Strings(result)
	return result
}

func toFloat(raw interface{}) (float64, bool) {
	switch value := raw.(type) {
	case float64:
		return value, true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case json.Number:
		parsed, err := value.Float64()
		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func toStringList(raw interface{}) ([]string, bool) {
	switch value := raw.(type) {
	case []string:
		return value, true
	case []interface{}:
		result := make([]string, 0, len(value))
		for _, item := range value {
			text, ok := item.(string)
			if !ok {
				return nil, false
			}
			result = append(result, strings.TrimSpace(text))
		}
		return result, true
	default:
		return nil, false
	}
}
