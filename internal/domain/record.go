package domain

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/devops-golf-s17/wishlists/pkg/errors"
)

// Record is the flat, serialisable form of a Wishlist. It is both the stored
// value and the HTTP representation. Field order is the wire key order.
type Record struct {
	ID      int64           `json:"id"`
	UserID  string          `json:"user_id"`
	Name    string          `json:"name"`
	Created string          `json:"created"`
	Deleted bool            `json:"deleted"`
	Items   map[string]Item `json:"items"`
}

// Encode converts w to its record form.
func Encode(w *Wishlist) Record {
	items := make(map[string]Item, len(w.Items))
	for id, item := range w.Items {
		items[id] = item
	}
	return Record{
		ID:      w.ID,
		UserID:  w.UserID,
		Name:    w.Name,
		Created: w.Created.UTC().Format(time.RFC3339Nano),
		Deleted: w.Deleted,
		Items:   items,
	}
}

// Decode rebuilds a Wishlist from r.
func Decode(r Record) (*Wishlist, error) {
	if r.Name == "" {
		return nil, apperrors.InvalidInput("invalid wishlist record: missing name")
	}
	created, err := time.Parse(time.RFC3339Nano, r.Created)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid wishlist record: bad created timestamp " + r.Created)
	}

	items := make(map[string]Item, len(r.Items))
	for id, item := range r.Items {
		if item.ID == "" {
			item.ID = id
		}
		items[id] = item
	}

	return &Wishlist{
		ID:      r.ID,
		UserID:  r.UserID,
		Name:    r.Name,
		Created: created.UTC(),
		Deleted: r.Deleted,
		Items:   items,
	}, nil
}

// Marshal encodes w as a JSON record.
func Marshal(w *Wishlist) ([]byte, error) {
	data, err := json.Marshal(Encode(w))
	if err != nil {
		return nil, fmt.Errorf("marshal wishlist %d: %w", w.ID, err)
	}
	return data, nil
}

// Unmarshal decodes a JSON record.
func Unmarshal(data []byte) (*Wishlist, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal wishlist: %w", err)
	}
	return Decode(r)
}
