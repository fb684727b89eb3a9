package service

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

// Package for custom validations
var (
	validate *validator.Validate
	once     sync.Once
)

func InitValidator() {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterValidation("study_direction", func(fl validator.FieldLevel) bool {
			value := fl.Field().String()
			return value == DirectionFrontBack || value == DirectionBackFront
		})
	})
}
