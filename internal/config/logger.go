// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package config

import (
	"io"
	"log/slog"

	"github.com/lmittmann/tint"
)

// NewLogger builds the process logger: coloured console output in
// development, JSON everywhere else.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	if c.IsDev() {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      c.SlogLevel(),
			TimeFormat: "15:04:05.000",
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: c.SlogLevel(),
	}))
}
