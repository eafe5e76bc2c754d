// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Site is the top-level tenant. It owns one resource tree plus its navbar,
// footer and theme configuration, stored as opaque JSON.
type Site struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Config    json.RawMessage `json:"config"`
	Navbar    json.RawMessage `json:"navbar"`
	Footer    json.RawMessage `json:"footer"`
	Theme     json.RawMessage `json:"theme"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
