package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/fedutinova/vidshelf/internal/models"
	"github.com/go-playground/validator/v10"
)

const (
	MaxTitleLength = 500
	MaxQueryLength = 500
)

var videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// VideoInput is the payload the browser extension posts for a bookmarked video.
type VideoInput struct {
	VideoID         string `json:"videoId" validate:"required,videoid"`
	VideoTitle      string `json:"videoTitle" validate:"required,max=500"`
	VideoURL        string `json:"videoUrl" validate:"omitempty,url,max=2048"`
	ChannelID       string `json:"channelId" validate:"max=128"`
	ChannelIDSource string `json:"channelIdSource" validate:"max=64"`
	ChannelName     string `json:"channelName" validate:"max=500"`
	ChannelURL      string `json:"channelUrl" validate:"omitempty,url,max=2048"`
	ScrapedAt       string `json:"scrapedAt" validate:"max=64"`
}

type StartJobInput struct {
	TargetID string `json:"targetId" validate:"required,videoid"`
	Kind     string `json:"kind" validate:"required"`
}

type SummaryInput struct {
	Type string `json:"type" validate:"omitempty,oneof=structured narrative"`
}

// ChatInput carries a question and at most 20 earlier turns.
type ChatInput struct {
	Message string               `json:"message" validate:"required,max=4000"`
	History []models.ChatMessage `json:"history" validate:"max=20,dive"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Is lets callers match any validation failure with common.IsValidation.
func (e ValidationErrors) Is(target error) bool {
	return target == common.ErrValidation
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("videoid", func(fl validator.FieldLevel) bool {
		return IsVideoID(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// IsVideoID reports whether s looks like a YouTube video id.
func IsVideoID(s string) bool {
	return videoIDPattern.MatchString(s)
}

// Struct validates s and returns ValidationErrors, or nil when s is valid.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "videoid":
		return "must be an 11-character YouTube video id"
	case "url":
		return "must be a valid URL"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// ValidateSearchQuery trims q and rejects empty or oversized queries.
func ValidateSearchQuery(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", ValidationErrors{{Field: "q", Message: "query parameter is required"}}
	}
	if len([]rune(q)) > MaxQueryLength {
		return "", ValidationErrors{{Field: "q", Message: fmt.Sprintf("must be at most %d characters", MaxQueryLength)}}
	}
	return q, nil
}
