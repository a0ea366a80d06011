package catalog

import "github.com/google/uuid"

// Item is a single catalog entry. Items are created by the catalog source and
// never mutated once handed to an Index.
type Item struct {
	ID    uuid.UUID `json:"id" msgpack:"id"`
	Name  string    `json:"name" msgpack:"name"`
	Size  Size      `json:"size" msgpack:"size"`
	Color Color     `json:"color" msgpack:"color"`
}

// NewItem creates an Item with a random identifier.
func NewItem(name string, size Size, color Color) Item {
	return Item{
		ID:    uuid.New(),
		Name:  name,
		Size:  size,
		Color: color,
	}
}

// Key is the composite (Size, Color) pair an Index is partitioned by.
type Key struct {
	Size  Size
	Color Color
}

// KeyOf returns the partition key of an item.
func KeyOf(item Item) Key {
	return Key{Size: item.Size, Color: item.Color}
}
