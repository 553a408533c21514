package auth

import (
	"errors"

	"github.com/baechuer/storefront-auth/internal/domain"
)

func domainCode(err error) string {
	if err == nil {
		return ""
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "non_domain_error"
}

// asDomain keeps domain errors as they are and wraps anything else with wrap.
func asDomain(err error, wrap func(error) *domain.Error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return wrap(err)
}
