// Package rank maps external staff roles to in-game ranks and ranks to the permissions they grant.
package rank

import (
	"strings"

	"github.com/samber/lo"
	"github.com/sandertv/gophertunnel/minecraft/text"
)

// Rank represents the rank of a player.
type Rank int

// Rank constants, from lowest to highest.
const (
	Player Rank = iota
	Helper
	Moderator
	SeniorModerator
	Admin
	Owner
)

// Ranks returns every Rank in ascending order.
func Ranks() []Rank {
	return []Rank{Player, Helper, Moderator, SeniorModerator, Admin, Owner}
}

// Info centralizes all details for each rank.
type Info struct {
	DisplayName string // Human-readable name of the rank.
	Color       string // Colour tag used when formatting names.
	Prefix      bool   // If true, the rank's title is prepended to the player's name.
	RoleID      string // External role identifier.
}

// Config holds the configurable role IDs for ranks.
type Config struct {
	HelperRoleID          string
	ModeratorRoleID       string
	SeniorModeratorRoleID string
	AdminRoleID           string
	OwnerRoleID           string
}

// rankInfos holds the rank details keyed by Rank.
var rankInfos = infos(&Config{})

// InitializeRanks initializes the rank system with the provided configuration.
func InitializeRanks(config *Config) {
	rankInfos = infos(config)

	rolesToRanks = make(map[string]Rank)
	for r, info := range rankInfos {
		if info.RoleID != "" {
			rolesToRanks[info.RoleID] = r
		}
	}
}

// infos ...
func infos(config *Config) map[Rank]Info {
	return map[Rank]Info{
		Player:    {DisplayName: "Player", Color: "grey"},
		Helper:    {DisplayName: "Helper", Color: "yellow", Prefix: true, RoleID: config.HelperRoleID},
		Moderator: {DisplayName: "Moderator", Color: "blue", Prefix: true, RoleID: config.ModeratorRoleID},
		SeniorModerator: {DisplayName: "Senior Moderator", Color: "aqua", Prefix: true,
			RoleID: config.SeniorModeratorRoleID},
		Admin: {DisplayName: "Admin", Color: "red", Prefix: true, RoleID: config.AdminRoleID},
		Owner: {DisplayName: "Owner", Color: "dark-red", Prefix: true, RoleID: config.OwnerRoleID},
	}
}

// ParseRank parses the display name of a rank, ignoring case and spaces.
func ParseRank(s string) (Rank, bool) {
	key := normalise(s)
	return lo.Find(Ranks(), func(r Rank) bool {
		return normalise(rankInfos[r].DisplayName) == key
	})
}

// normalise ...
func normalise(s string) string {
	return strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s))
}

// Name returns the human-readable name of the rank.
func (r Rank) Name() string {
	info, ok := rankInfos[r]
	if !ok {
		return "Unknown"
	}
	return info.DisplayName
}

// FormatName formats a player's name according to their rank.
// If the rank uses a prefix, the rank's title is prepended.
func (r Rank) FormatName(name string) string {
	info, ok := rankInfos[r]
	if !ok {
		return text.Colourf("<grey>%s</grey>", name)
	}
	if info.Prefix {
		return text.Colourf("<%s>%s %s</%s>", info.Color, info.DisplayName, name, info.Color)
	}
	return text.Colourf("<%s>%s</%s>", info.Color, name, info.Color)
}

// Chat formats a chat message with the rank's styled name.
func (r Rank) Chat(name, message string) string {
	return text.Colourf("%s: <grey>%s</grey>", r.FormatName(name), message)
}

// NameTag returns the formatted name tag of the player.
func (r Rank) NameTag(name string) string {
	return r.FormatName(name)
}
