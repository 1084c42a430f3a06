package domain

import "github.com/google/uuid"

type ID string

func (vo ID) String() string {
	return string(vo)
}

func NewID() ID {
	return ID(uuid.NewString())
}
