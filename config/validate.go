package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
)

var validatorInstance = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Registration only fails for empty tags or nil functions.
	_ = v.RegisterValidation("rpcurls", func(fl validator.FieldLevel) bool {
		for _, u := range strings.Split(fl.Field().String(), ",") {
			u = strings.TrimSpace(u)
			if u == "" {
				continue
			}
			if v.Var(u, "url") != nil {
				return false
			}
		}

		return true
	})
	_ = v.RegisterValidation("strictsemver", func(fl validator.FieldLevel) bool {
		_, err := semver.StrictNewVersion(fl.Field().String())
		return err == nil
	})

	return v
}

func validate(cfg *Config) error {
	err := validatorInstance.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("%s: failed %q check", fe.Namespace(), fe.Tag()))
	}

	return fmt.Errorf("invalid config: %w", errors.Join(errs...))
}
