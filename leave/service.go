package leave

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/generic"
)

// Service applies for leave and drives the approval workflow.
type Service struct {
	Store     TxStore
	Documents DocumentStorage // nil rejects attachments with UploadError

	Log         *log.Logger
	Now         func() time.Time
	NewID       func() string
	MaxAttempts int

	validate *validator.Validate
}

func NewService(store TxStore, documents DocumentStorage) *Service {
	return &Service{
		Store:       store,
		Documents:   documents,
		Log:         log.StandardLogger(),
		Now:         func() time.Time { return time.Now().UTC() },
		NewID:       uuid.NewString,
		MaxAttempts: generic.DefaultAttempts,
		validate:    newValidator(),
	}
}

func (s *Service) logger(ctx context.Context) *log.Entry {
	if s.Log == nil {
		return log.WithContext(ctx)
	}
	return s.Log.WithContext(ctx)
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID == nil {
		return uuid.NewString()
	}
	return s.NewID()
}

// unitOfWork runs fn in a transaction, retrying lost races.
func (s *Service) unitOfWork(ctx context.Context, fn func(tx Store) error) error {
	return generic.Retry(ctx, s.MaxAttempts, func() error {
		return s.Store.WithTx(ctx, fn)
	})
}

// =============================================================================
// INPUT VALIDATION
// =============================================================================

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Service) checkStruct(input any) error {
	if s.validate == nil {
		s.validate = newValidator()
	}
	return translateValidation(s.validate.Struct(input))
}

// translateValidation turns the first validator failure into a ValidationError.
func translateValidation(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Reason: err.Error()}
	}
	fe := fieldErrs[0]

	// Namespace is "ApplyInput.leaveBreakup[0].shortCode"; drop the root.
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return invalid(field, "is required")
	case "min":
		return invalid(field, "must have at least %s entry", fe.Param())
	case "required_without":
		return invalid(field, "either leaveType or shortCode is required")
	default:
		return invalid(field, "failed %q check", fe.Tag())
	}
}
