package utils

import (
	"fmt"
	"net"
	"strings"

	"github.com/canonical/lxd/shared/validate"
)

// ValidateFQDN validates that the given name is a a valid fully qualified domain name.
func ValidateFQDN(name string) error {
	// Validate length
	if len(name) < 1 || len(name) > 255 {
		return fmt.Errorf("Name must be 1-255 characters long")
	}

	hostnames := strings.Split(name, ".")
	for _, h := range hostnames {
		err := validate.IsHostname(h)
		if err != nil {
			return err
		}
	}

	return nil
}

// ValidateAddress validates a listen address of the form host:port, where host is an IP address
// or a fully qualified domain name.
func ValidateAddress(address string) error {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("Invalid address %q: %w", address, err)
	}

	if net.ParseIP(host) != nil {
		err = validate.IsNetworkAddress(host)
	} else {
		err = ValidateFQDN(host)
	}

	if err != nil {
		return fmt.Errorf("Invalid address %q: %w", address, err)
	}

	err = validate.IsNetworkPort(port)
	if err != nil {
		return fmt.Errorf("Invalid port in address %q: %w", address, err)
	}

	return nil
}
