package validate

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nekogravitycat/facility-booking-bot/internal/pkg/apperror"
)

var (
	ErrInvalidTime    = apperror.New(http.StatusBadRequest, "invalid time format")
	ErrInvalidContact = apperror.New(http.StatusBadRequest, "invalid contact number")
	ErrInvalidEmail   = apperror.New(http.StatusBadRequest, "invalid email")
)

// Contact numbers are 8 digits starting with 3, 6, 8 or 9 (local numbering plan).
var contactPattern = regexp.MustCompile(`^[3689]\d{7}$`)

// TimeOfDay parses a 4-character HHMM string and returns it normalized to HH:MM.
func TimeOfDay(s string) (string, error) {
	if len(s) != 4 {
		return "", ErrInvalidTime
	}
	hours, err := strconv.Atoi(s[:2])
	if err != nil {
		return "", ErrInvalidTime
	}
	minutes, err := strconv.Atoi(s[2:])
	if err != nil {
		return "", ErrInvalidTime
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return "", ErrInvalidTime
	}
	return fmt.Sprintf("%02d:%02d", hours, minutes), nil
}

// ContactNumber validates a contact number against the local numbering plan.
func ContactNumber(s string) error {
	if !contactPattern.MatchString(s) {
		return ErrInvalidContact
	}
	return nil
}

// HostResolver is the subset of net.Resolver used for domain plausibility
// checks.
type HostResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// EmailChecker validates email syntax and DNS plausibility of the domain.
// The DNS lookup blocks on the network; callers must pass a bounded context.
type EmailChecker struct {
	validate *validator.Validate
	resolver HostResolver
}

func NewEmailChecker() *EmailChecker {
	return NewEmailCheckerWithResolver(net.DefaultResolver)
}

// NewEmailCheckerWithResolver builds a checker backed by a custom resolver.
func NewEmailCheckerWithResolver(resolver HostResolver) *EmailChecker {
	return &EmailChecker{
		validate: validator.New(),
		resolver: resolver,
	}
}

// Check returns ErrInvalidEmail if the address is syntactically invalid or its
// domain has neither MX records nor an address record.
func (c *EmailChecker) Check(ctx context.Context, email string) error {
	if err := c.validate.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}

	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ErrInvalidEmail
	}
	domain := email[at+1:]

	if mx, err := c.resolver.LookupMX(ctx, domain); err == nil && len(mx) > 0 {
		return nil
	}
	// Fall back to an address record; some domains accept mail without MX.
	if hosts, err := c.resolver.LookupHost(ctx, domain); err == nil && len(hosts) > 0 {
		return nil
	}
	return ErrInvalidEmail
}
