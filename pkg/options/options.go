package options

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/pflag"
)

// IOptions defines the contract every option group implements so that
// application commands can compose and validate them uniformly.
type IOptions interface {
	// Validate is used to parse and validate the parameters entered by the
	// user at the command line when the program starts.
	Validate() []error

	// AddFlags adds the flags of the option group to the specified FlagSet.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// ValidateAddress checks that addr is a valid "host:port" listen address.
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}

	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}

	if _, err := strconv.ParseUint(portStr, 10, 16); err != nil {
		return fmt.Errorf("invalid port in address %q: %w", addr, err)
	}

	return nil
}

// ValidatePort checks that port is a usable UDP/TCP port number.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", port)
	}
	return nil
}
