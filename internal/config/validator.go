package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/aleister1102/imgsync/internal/common"
	"github.com/go-playground/validator/v10"
)

var embedColorPattern = regexp.MustCompile(`^(#|0x)?[0-9a-fA-F]{6}$`)

// ValidateConfig performs validation on the GlobalConfig structure.
// Failures are collected into a single ConfigurationError.
func ValidateConfig(cfg *GlobalConfig) error {
	validate := newValidator()

	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return common.NewConfigurationError("", "", err.Error())
	}

	var messages []string
	for _, e := range errs {
		msg := fmt.Sprintf("Validation failed for '%s': rule '%s'", fieldPath(e), e.Tag())
		if e.Param() != "" {
			msg += fmt.Sprintf(" (expected: %s)", e.Param())
		}
		if e.Value() != nil && e.Value() != "" && !isSecretField(e.Field()) {
			msg += fmt.Sprintf(", actual: '%v'", e.Value())
		}
		messages = append(messages, msg)
	}
	return common.NewConfigurationError("", "", "configuration validation failed:\n  "+strings.Join(messages, "\n  "))
}

func newValidator() *validator.Validate {
	validate := validator.New()

	// Register custom validation for file existence
	_ = validate.RegisterValidation("fileexists", func(fl validator.FieldLevel) bool {
		filePath := fl.Field().String()
		if filePath == "" {
			return true
		}
		info, err := os.Stat(filePath)
		return err == nil && !info.IsDir()
	})

	// Register custom validation for directory existence
	_ = validate.RegisterValidation("direxists", func(fl validator.FieldLevel) bool {
		dirPath := fl.Field().String()
		if dirPath == "" {
			return true
		}
		info, err := os.Stat(dirPath)
		return err == nil && info.IsDir()
	})

	// Register custom validation for LogLevel
	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "debug", "info", "warn", "error":
			return true
		default:
			return false
		}
	})

	// Register custom validation for LogFormat
	_ = validate.RegisterValidation("logformat", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "", "console", "text", "json":
			return true
		default:
			return false
		}
	})

	_ = validate.RegisterValidation("embedcolor", func(fl validator.FieldLevel) bool {
		return embedColorPattern.MatchString(fl.Field().String())
	})

	return validate
}

// fieldPath turns "GlobalConfig.SFTP.Host" into "SFTP.Host"
func fieldPath(e validator.FieldError) string {
	ns := e.StructNamespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func isSecretField(name string) bool {
	switch name {
	case "Password", "PrivateKeyPassphrase", "WorkerPSK":
		return true
	}
	return false
}
