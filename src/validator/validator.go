package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// maxIDLength 符号付きint64の最小値（-9223372036854775808）の文字数
const maxIDLength = 20

var idPattern = regexp.MustCompile(`^-?\d+$`)

// CustomValidator は拡張バリデーション機能を提供
type CustomValidator struct {
	validator *validator.Validate
}

// ValidationError はバリデーションエラーの詳細情報
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ValidationErrors は複数のバリデーションエラー
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (ve ValidationErrors) Error() string {
	if len(ve.Errors) == 1 {
		return fmt.Sprintf("validation failed: %s", ve.Errors[0].Message)
	}
	return fmt.Sprintf("validation failed: %d errors", len(ve.Errors))
}

// NewCustomValidator creates a new custom validator instance
func NewCustomValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate validates a struct and returns detailed error information
func (cv *CustomValidator) Validate(s interface{}) error {
	err := cv.validator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	validationErrors := make([]ValidationError, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		validationErrors = append(validationErrors, ValidationError{
			Field:   fe.Namespace(),
			Tag:     fe.Tag(),
			Value:   fe.Value(),
			Message: cv.generateErrorMessage(fe),
		})
	}
	return ValidationErrors{Errors: validationErrors}
}

// generateErrorMessage generates user-friendly error messages
func (cv *CustomValidator) generateErrorMessage(err validator.FieldError) string {
	field := err.Namespace()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s は必須項目です", field)
	case "required_if", "required_without":
		return fmt.Sprintf("%s は必須項目です (条件: %s)", field, err.Param())
	case "numeric":
		return fmt.Sprintf("%s は数値で指定してください", field)
	case "oneof":
		return fmt.Sprintf("%s は有効な値を選択してください (許可された値: %s)", field, err.Param())
	case "gt":
		return fmt.Sprintf("%s は %s より大きい値を指定してください", field, err.Param())
	case "gte":
		return fmt.Sprintf("%s は %s 以上の値を指定してください", field, err.Param())
	case "lte":
		return fmt.Sprintf("%s は %s 以下の値を指定してください", field, err.Param())
	case "min":
		return fmt.Sprintf("%s は %s 件以上指定してください", field, err.Param())
	default:
		return fmt.Sprintf("%s が無効です (値: %v)", field, err.Value())
	}
}

// ValidateID validates a path ID parameter and converts it to int64.
// Any value that fits in int64 is accepted; whether it exists is up to storage.
func (cv *CustomValidator) ValidateID(idStr string) (int64, error) {
	// 数値以外の文字をチェック
	if !idPattern.MatchString(idStr) {
		return 0, fmt.Errorf("ID must be an integer")
	}

	// 長さチェック（異常に長いIDを防ぐ）
	if len(idStr) > maxIDLength {
		return 0, fmt.Errorf("ID is too long")
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ID is out of range")
	}

	return id, nil
}
