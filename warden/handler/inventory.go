// Package handler enforces moderation state on the actions of connected players.
package handler

import (
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/item/inventory"
	"github.com/google/uuid"
)

// InventoryHandler stops frozen players from moving items around.
type InventoryHandler struct {
	inventory.NopHandler

	guard *Guard
	id    uuid.UUID
}

// HandleTake ...
func (h InventoryHandler) HandleTake(ctx *inventory.Context, _ int, _ item.Stack) {
	if h.guard.Frozen(h.id) {
		ctx.Cancel()
	}
}

// HandlePlace ...
func (h InventoryHandler) HandlePlace(ctx *inventory.Context, _ int, _ item.Stack) {
	if h.guard.Frozen(h.id) {
		ctx.Cancel()
	}
}

// HandleDrop ...
func (h InventoryHandler) HandleDrop(ctx *inventory.Context, _ int, _ item.Stack) {
	if h.guard.Frozen(h.id) {
		ctx.Cancel()
	}
}
