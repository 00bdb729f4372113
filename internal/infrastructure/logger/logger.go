// Package logger builds the process-wide zap logger.
package logger

import "go.uber.org/zap"

// New returns a JSON logger for "production" and a console logger otherwise.
// Unknown failures fall back to a no-op logger.
func New(env string) *zap.Logger {
	var base *zap.Logger
	var err error
	if env == "production" {
		base, err = zap.NewProduction()
	} else {
		base, err = zap.NewDevelopment()
	}
	if err != nil {
		return zap.NewNop()
	}
	return base.With(zap.String("service", "credit-origination"))
}
