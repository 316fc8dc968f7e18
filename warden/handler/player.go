package handler

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/player/chat"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/smell-of-curry/warden/warden/game"
	"github.com/smell-of-curry/warden/warden/rank"
	"github.com/smell-of-curry/warden/warden/session"
)

// PlayerHandler ...
type PlayerHandler struct {
	guard *Guard
	ranks *session.Ranks

	player.NopHandler
}

// NewPlayerHandler ...
func NewPlayerHandler(g *Guard, ranks *session.Ranks) *PlayerHandler {
	return &PlayerHandler{guard: g, ranks: ranks}
}

// HandleJoin records the player and restores its punishments. It is called once the player was added to
// the world, outside the world goroutine.
func (h *PlayerHandler) HandleJoin(p *player.Player) {
	p.Inventory().Handle(InventoryHandler{guard: h.guard, id: p.UUID()})
	h.guard.Join(game.Profile{UUID: p.UUID(), Name: p.Name()}, game.PlayerSession(p).Addr())
}

// HasPermission ...
func (h *PlayerHandler) HasPermission(perm string) bool {
	return h.guard.HasPermission(h.ranks.HighestRank(), perm)
}

// HighestRank ...
func (h *PlayerHandler) HighestRank() rank.Rank {
	return h.ranks.HighestRank()
}

// Ranks ...
func (h *PlayerHandler) Ranks() *session.Ranks {
	return h.ranks
}

// HandleChat ...
func (h *PlayerHandler) HandleChat(ctx *player.Context, message *string) {
	ctx.Cancel()
	p := ctx.Val()
	if !h.guard.Chat(game.TxView(p.Tx()), game.PlayerSession(p), *message) {
		return
	}
	_, _ = chat.Global.WriteString(h.ranks.HighestRank().Chat(p.Name(), *message))
}

// HandleCommandExecution ...
func (h *PlayerHandler) HandleCommandExecution(ctx *player.Context, command cmd.Command, _ []string) {
	if !h.guard.Command(game.PlayerSession(ctx.Val()), command.Name(), command.Aliases()...) {
		ctx.Cancel()
	}
}

// HandleMove ...
func (h *PlayerHandler) HandleMove(ctx *player.Context, newPos mgl64.Vec3, _ cube.Rotation) {
	p := ctx.Val()
	if !h.guard.Frozen(p.UUID()) {
		return
	}
	old := p.Position()
	if (mgl64.Vec2{newPos.X() - old.X(), newPos.Z() - old.Z()}).Len() > 0 {
		ctx.Cancel()
	}
}

// HandleBlockPlace ...
func (h *PlayerHandler) HandleBlockPlace(ctx *player.Context, _ cube.Pos, _ world.Block) {
	if h.guard.Frozen(ctx.Val().UUID()) {
		ctx.Cancel()
	}
}

// HandleBlockBreak ...
func (h *PlayerHandler) HandleBlockBreak(ctx *player.Context, _ cube.Pos, _ *[]item.Stack, _ *int) {
	if h.guard.Frozen(ctx.Val().UUID()) {
		ctx.Cancel()
	}
}

// HandleItemDrop ...
func (h *PlayerHandler) HandleItemDrop(ctx *player.Context, _ item.Stack) {
	if h.guard.Frozen(ctx.Val().UUID()) {
		ctx.Cancel()
	}
}

// HandleQuit ...
func (h *PlayerHandler) HandleQuit(p *player.Player) {
	h.guard.Quit(game.TxView(p.Tx()), game.PlayerSession(p))
}
