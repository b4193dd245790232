package convert

import (
	"reflect"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Profile names.
const (
	TypeUser             = "user"
	TypeRole             = "role"
	TypeChannel          = "channel"
	TypeGuild            = "guild"
	TypeEmoji            = "emoji"
	TypeString           = "str"
	TypeInt              = "int"
	TypeDuration         = "tdelta"
	TypeRelativeDuration = "rdelta"
	TypeContent          = "content"
	TypeRest             = "rest"
	TypeGuard            = "guard"
)

// TypeProfile declares what a converter of one abstract type may do.
// Profiles are built once and never mutated.
type TypeProfile struct {
	Name            string
	Kind            Kind // KindNone for textual types
	Mandatory       Flag
	Default         Flag
	Allowed         Flag
	ArityMeaningful bool
	GuildScoped     bool
	Value           reflect.Type // nil when the converter produces no value
}

// NeedsGuild reports whether a slot with flags f can only be resolved inside a guild.
func (p *TypeProfile) NeedsGuild(f Flag) bool {
	if f.RequiresGuild() {
		return true
	}
	return p.GuildScoped && f&(ByID|ByName) != 0 && !f.Everywhere()
}

// Textual reports whether the profile converts text directly instead of
// running the entity resolution chain.
func (p *TypeProfile) Textual() bool { return p.Kind == KindNone }

const entityFlags = ByMention | ByName | ByID | Everywhere | RequiresGuild

// DefaultProfiles returns the built-in profile table.
func DefaultProfiles() []*TypeProfile {
	return []*TypeProfile{
		{
			Name:            TypeUser,
			Kind:            KindUser,
			Default:         ByMention | ByName | ByID,
			Allowed:         entityFlags | ThroughProfile,
			ArityMeaningful: true,
			Value:           reflect.TypeOf((*discordgo.User)(nil)),
		},
		{
			Name:            TypeRole,
			Kind:            KindRole,
			Default:         ByMention | ByName | ByID,
			Allowed:         entityFlags,
			ArityMeaningful: true,
			GuildScoped:     true,
			Value:           reflect.TypeOf((*discordgo.Role)(nil)),
		},
		{
			Name:            TypeChannel,
			Kind:            KindChannel,
			Default:         ByMention | ByName | ByID,
			Allowed:         entityFlags,
			ArityMeaningful: true,
			GuildScoped:     true,
			Value:           reflect.TypeOf((*discordgo.Channel)(nil)),
		},
		{
			Name:            TypeGuild,
			Kind:            KindGuild,
			Default:         ByID,
			Allowed:         ByName | ByID | Everywhere,
			ArityMeaningful: true,
			Value:           reflect.TypeOf((*discordgo.Guild)(nil)),
		},
		{
			Name:            TypeEmoji,
			Kind:            KindEmoji,
			Mandatory:       ByMention,
			Default:         ByMention,
			Allowed:         entityFlags,
			ArityMeaningful: true,
			GuildScoped:     true,
			Value:           reflect.TypeOf((*discordgo.Emoji)(nil)),
		},
		{Name: TypeString, ArityMeaningful: true, Value: reflect.TypeOf("")},
		{Name: TypeInt, ArityMeaningful: true, Value: reflect.TypeOf(0)},
		{Name: TypeDuration, ArityMeaningful: true, Value: reflect.TypeOf(time.Duration(0))},
		{Name: TypeRelativeDuration, ArityMeaningful: true, Value: reflect.TypeOf(RelativeDuration{})},
		{Name: TypeContent, Value: reflect.TypeOf("")},
		{Name: TypeRest, Value: reflect.TypeOf("")},
		{Name: TypeGuard, Allowed: Inverted},
	}
}

// goTypes maps handler parameter types to profile names.
var goTypes = map[reflect.Type]string{
	reflect.TypeOf((*discordgo.User)(nil)):    TypeUser,
	reflect.TypeOf((*discordgo.Role)(nil)):    TypeRole,
	reflect.TypeOf((*discordgo.Channel)(nil)): TypeChannel,
	reflect.TypeOf((*discordgo.Guild)(nil)):   TypeGuild,
	reflect.TypeOf((*discordgo.Emoji)(nil)):   TypeEmoji,
	reflect.TypeOf(""):                        TypeString,
	reflect.TypeOf(0):                         TypeInt,
	reflect.TypeOf(int64(0)):                  TypeInt,
	reflect.TypeOf(time.Duration(0)):          TypeDuration,
	reflect.TypeOf(RelativeDuration{}):        TypeRelativeDuration,
}
