// Package appargs validates positional arguments of github.com/urfave/cli
// commands.
package appargs

import (
	"net/netip"
	"strconv"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Validator checks the leading arguments and returns how many it consumed,
// or -1 if they are invalid.
type Validator = func([]string) int

// Required is a single required argument.
func Required(args []string) int {
	if len(args) == 0 {
		return -1
	}
	return 1
}

// RequiredNonEmpty is a single required argument that must not be empty.
func RequiredNonEmpty(args []string) int {
	if len(args) == 0 || args[0] == "" {
		return -1
	}
	return 1
}

// Optional is a single optional argument.
func Optional(args []string) int {
	if len(args) == 0 {
		return 0
	}
	return 1
}

// Rest consumes the remaining arguments without validation.
func Rest(args []string) int {
	return len(args)
}

// NonEmptyRest consumes the remaining arguments, requiring at least one.
func NonEmptyRest(args []string) int {
	if len(args) == 0 {
		return -1
	}
	return len(args)
}

// Int is a single required integer argument.
func Int(args []string) int {
	if len(args) == 0 {
		return -1
	}
	if _, err := strconv.Atoi(args[0]); err != nil {
		return -1
	}
	return 1
}

// IP is a single required IP address argument.
func IP(args []string) int {
	if len(args) == 0 {
		return -1
	}
	if _, err := netip.ParseAddr(args[0]); err != nil {
		return -1
	}
	return 1
}

// OneOf is a single required argument that must be one of values.
func OneOf(values ...string) Validator {
	return func(args []string) int {
		if len(args) == 0 {
			return -1
		}
		for _, v := range values {
			if args[0] == v {
				return 1
			}
		}
		return -1
	}
}

// ErrInvalidUsage is returned when there is a validation error.
var ErrInvalidUsage = errors.New("invalid command usage")

// Validate can be used as a command's Before function to validate the
// arguments to the command.
func Validate(vs ...Validator) cli.BeforeFunc {
	return func(context *cli.Context) error {
		return check([]string(context.Args()), vs...)
	}
}

func check(args []string, vs ...Validator) error {
	remaining := args
	for _, v := range vs {
		consumed := v(remaining)
		if consumed < 0 {
			return errors.Wrapf(ErrInvalidUsage, "argument %d", len(args)-len(remaining)+1)
		}
		remaining = remaining[consumed:]
	}
	if len(remaining) > 0 {
		return errors.Wrapf(ErrInvalidUsage, "unexpected argument %q", remaining[0])
	}
	return nil
}
