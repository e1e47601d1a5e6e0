package middleware

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/cjdquick/putaway-service/pkg/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// InitValidator initializes the validator with custom validators
func InitValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()

		register := func(v *validator.Validate) {
			_ = v.RegisterValidation("sku", validateSKU)
			_ = v.RegisterValidation("bin_code", validateBinCode)
			_ = v.RegisterValidation("task_number", validateTaskNumber)
			_ = v.RegisterValidation("safe_string", validateSafeString)

			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return fld.Name
				}
				return name
			})
		}

		register(validate)

		// Also register on Gin's default binding validator
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			register(v)
		}
	})

	return validate
}

// GetValidator returns the singleton validator instance
func GetValidator() *validator.Validate {
	if validate == nil {
		return InitValidator()
	}
	return validate
}

var (
	skuRegex        = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{2,49}$`)
	binCodeRegex    = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{1,29}$`)
	taskNumberRegex = regexp.MustCompile(`^PTW-\d{6,}$`)
	safeStringRegex = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.,!?@#$%&*()+=:;'"<>\/\[\]{}|\\~\x60]+$`)
)

func validateSKU(fl validator.FieldLevel) bool {
	return skuRegex.MatchString(fl.Field().String())
}

func validateBinCode(fl validator.FieldLevel) bool {
	return binCodeRegex.MatchString(fl.Field().String())
}

func validateTaskNumber(fl validator.FieldLevel) bool {
	return taskNumberRegex.MatchString(fl.Field().String())
}

func validateSafeString(fl validator.FieldLevel) bool {
	return safeStringRegex.MatchString(fl.Field().String())
}

// ValidationErrorFormatter formats validation errors into a map
func ValidationErrorFormatter(err error) map[string]string {
	fields := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			fields[e.Field()] = formatValidationError(e)
		}
	}

	return fields
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "sku":
		return "must be a valid SKU (uppercase alphanumeric with dashes)"
	case "bin_code":
		return "must be a valid bin code"
	case "task_number":
		return "must be a valid task number (format: PTW-000000)"
	case "safe_string":
		return "contains invalid characters"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

// BindAndValidate binds request body and validates it
func BindAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	if err := c.ShouldBindJSON(obj); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			fields := ValidationErrorFormatter(validationErrors)
			return errors.ErrValidationWithFields("validation failed", fields)
		}
		return errors.ErrBadRequest("invalid request body: " + err.Error())
	}
	return nil
}

// ValidateStruct validates a struct using the validator
func ValidateStruct(obj interface{}) *errors.AppError {
	v := GetValidator()
	if err := v.Struct(obj); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			fields := ValidationErrorFormatter(validationErrors)
			return errors.ErrValidationWithFields("validation failed", fields)
		}
		return errors.ErrBadRequest("validation failed: " + err.Error())
	}
	return nil
}

// SanitizeString removes null bytes and trims whitespace
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}

// InputSanitizer middleware sanitizes string query inputs
func InputSanitizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Request.URL.Query()
		for key, values := range query {
			for i, v := range values {
				values[i] = SanitizeString(v)
			}
			query[key] = values
		}
		c.Request.URL.RawQuery = query.Encode()

		c.Next()
	}
}

// ContentType middleware ensures proper content type for POST/PUT/PATCH
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "POST" || c.Request.Method == "PUT" || c.Request.Method == "PATCH" {
			contentType := c.GetHeader("Content-Type")
			if contentType == "" || !strings.HasPrefix(contentType, "application/json") {
				// Empty bodies are allowed, transitions like start take none
				if c.Request.ContentLength > 0 {
					AbortWithAppError(c, &errors.AppError{
						Code:       "INVALID_CONTENT_TYPE",
						Message:    "Content-Type must be application/json",
						HTTPStatus: 415,
					})
					return
				}
			}
		}
		c.Next()
	}
}
