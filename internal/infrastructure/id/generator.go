package id

import "github.com/google/uuid"

// Generator hands out UUIDv7 strings, which sort by creation time and need
// no coordination between processes.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// v7 only fails when the random source does.
		return uuid.NewString()
	}
	return id.String()
}
