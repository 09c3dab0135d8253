package dto

import (
	"strings"

	"blackjack-engine/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("client_seed", validateClientSeed)
		_ = v.RegisterValidation("action_kind", validateActionKind)
	}
}

// validateClientSeed accepts printable ASCII without ':', which separates
// the fields hashed into the shuffle key stream.
func validateClientSeed(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.ContainsRune(s, ':') {
		return false
	}
	for _, r := range s {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}

// validateActionKind accepts only actions a player may submit.
func validateActionKind(fl validator.FieldLevel) bool {
	return domain.ActionKind(fl.Field().String()).IsPlayerAction()
}
