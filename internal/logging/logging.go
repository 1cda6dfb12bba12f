// Package logging builds the process-wide zap logger: JSON in production,
// human-readable console output everywhere else.
package logging

import "go.uber.org/zap"

// New returns a sugared logger tuned for the environment and installs it as
// the zap global.
func New(production bool) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if production {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(l)
	return l.Sugar(), nil
}
