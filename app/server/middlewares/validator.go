package middlewares

import (
	"github.com/go-playground/validator/v10"
)

// Validator 让 echo 的 c.Validate 使用 validate 标签
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *Validator) Validate(i interface{}) error {
	return v.v.Struct(i)
}
