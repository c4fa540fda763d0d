package app

import (
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const itemAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func newDraftID() string {
	return uuid.New().String()
}

func newActivityID() string {
	return uuid.New().String()
}

// newItemID returns a short id for a thread item. Items are only unique
// within their draft.
func newItemID() string {
	return "item-" + gonanoid.MustGenerate(itemAlphabet, 12)
}
