package models

import (
	"fmt"
	"net"
	"strconv"
)

// ConnectionDescriptor holds what is needed to open an SFTP session.
// Treat it as immutable once built.
type ConnectionDescriptor struct {
	Host                 string
	Port                 int
	Username             string
	Password             string
	PrivateKeyFile       string
	PrivateKeyPassphrase string
	KnownHostsFile       string
}

// Address returns host:port suitable for net.Dial.
func (d ConnectionDescriptor) Address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// String never includes secrets.
func (d ConnectionDescriptor) String() string {
	auth := "none"
	switch {
	case d.PrivateKeyFile != "" && d.Password != "":
		auth = "key+password"
	case d.PrivateKeyFile != "":
		auth = "key"
	case d.Password != "":
		auth = "password"
	}
	return fmt.Sprintf("%s@%s (auth=%s)", d.Username, d.Address(), auth)
}
