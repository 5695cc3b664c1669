package handlers

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/grammar-annotation-backend/internal/modules/annotation"
)

var registerOnce sync.Once

// RegisterValidators adds the question_type and difficulty tags to gin's
// validator. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
			_, ok := annotation.ParseQuestionType(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
			_, ok := annotation.ParseDifficulty(fl.Field().String())
			return ok
		})
	})
}

// bindError flattens validator errors into "field: tag" pairs.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
		}
	}
	return errors.New("invalid request: " + strings.Join(parts, ", "))
}
