// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// ErrInvalidCursor is returned when a page token cannot be decoded.
var ErrInvalidCursor = errors.New("invalid cursor")

// cursor is the keyset position after the last row of a page. Children are
// ordered by (type priority, permalink, id), so resuming from a cursor
// neither skips nor repeats rows when siblings are inserted concurrently.
type cursor struct {
	Priority  int       `json:"p"`
	Permalink string    `json:"l"`
	ID        uuid.UUID `json:"i"`
}

func (c cursor) encode() string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// decodeCursor parses a token produced by encode. An empty token means
// "from the start" and yields nil.
func decodeCursor(token string) (*cursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c cursor
	if err := json.Unmarshal(data, &c); err != nil || c.ID == uuid.Nil {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}
