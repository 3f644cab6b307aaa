package loader

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	tagTimeZone     = "iana_tz"
	tagPoolMinOrder = "lte_max_open_conns"
)

var configValidator = newConfigValidator()

// newConfigValidator 使用 json 名作为字段路径，并注册时区与连接池约束。
func newConfigValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation(tagTimeZone, func(fl validator.FieldLevel) bool {
		_, err := time.LoadLocation(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
	v.RegisterStructValidation(validatePoolLimits, PostgreSQL{})
	return v
}

// validatePoolLimits 要求 max_open_conns 设置时 min_open_conns 不超过它。
func validatePoolLimits(sl validator.StructLevel) {
	pg, ok := sl.Current().Interface().(PostgreSQL)
	if !ok {
		return
	}
	if pg.MaxOpenConns > 0 && pg.MinOpenConns > pg.MaxOpenConns {
		sl.ReportError(pg.MinOpenConns, "min_open_conns", "MinOpenConns", tagPoolMinOrder, "")
	}
}

// validate 校验加载后的配置，汇总所有违规项。
func validate(bc *Bootstrap) error {
	err := configValidator.Struct(bc)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, describeFieldError(fe))
	}
	return errors.Join(errs...)
}

func describeFieldError(fe validator.FieldError) error {
	path := fe.Namespace()
	if _, rest, ok := strings.Cut(path, "."); ok {
		path = rest
	}
	switch fe.Tag() {
	case "required":
		if path == "data.postgres.dsn" {
			return fmt.Errorf("%s is required (set DATABASE_URL)", path)
		}
		return fmt.Errorf("%s is required", path)
	case "gte":
		return fmt.Errorf("%s must be >= %s", path, fe.Param())
	case "lte":
		return fmt.Errorf("%s must be <= %s", path, fe.Param())
	case tagTimeZone:
		return fmt.Errorf("%s: unknown time zone %q", path, fe.Value())
	case tagPoolMinOrder:
		return fmt.Errorf("%s exceeds max_open_conns", path)
	default:
		return fmt.Errorf("%s failed %q validation", path, fe.Tag())
	}
}
