// Package logging centralizes zap logger construction so every command
// builds one logger and threads it into every service constructor.
package logging

import "go.uber.org/zap"

// New builds a production logger, or a development logger when dev is true.
func New(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
