// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"isomer/internal/models"
)

// Validation limits for request fields.
const (
	maxTitleLen     = 300
	maxPermalinkLen = 300
	maxSiteNameLen  = 200
	maxBodyBytes    = 5 << 20
)

var permalinkPattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9_.]*[a-z0-9])?$`)

// permalinkValidator accepts lower-case URL segments.
func permalinkValidator(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return len(s) <= maxPermalinkLen && permalinkPattern.MatchString(s)
}

// resourceTypeValidator accepts the resource types a client may create.
func resourceTypeValidator(fl validator.FieldLevel) bool {
	t := models.ResourceType(fl.Field().String())
	return t.Valid() && t != models.ResourceTypeRootPage
}

func jobTypeValidator(fl validator.FieldLevel) bool {
	return models.JobType(fl.Field().String()).Valid()
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("permalink", permalinkValidator)
	v.RegisterValidation("resourcetype", resourceTypeValidator)
	v.RegisterValidation("jobtype", jobTypeValidator)
	return v
}

// validationMessage turns a validator error into one readable sentence
// naming the first offending field.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request."
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", field)
	case "max":
		return fmt.Sprintf("%s is too long (max %s characters).", field, fe.Param())
	case "permalink":
		return fmt.Sprintf("%s must be lower-case letters, digits, dashes, dots or underscores.", field)
	case "resourcetype":
		return fmt.Sprintf("%s is not a resource type that can be created.", field)
	case "jobtype":
		return fmt.Sprintf("%s must be PushDocument or PublishResource.", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid.", field)
	}
}
