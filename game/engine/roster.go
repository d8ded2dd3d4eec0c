package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// Namer supplies agent names when rosters are built.
type Namer interface {
	Name(team string, index int) string
}

// NamerFunc adapts a function to Namer.
type NamerFunc func(team string, index int) string

// Name calls f.
func (f NamerFunc) Name(team string, index int) string { return f(team, index) }

// NumberedNamer names agents "<team> #n", counting from 1.
var NumberedNamer = NamerFunc(func(team string, index int) string {
	return fmt.Sprintf("%s #%d", team, index+1)
})

func roll(rng RNG, sr StatRange) int { return RollBetween(rng, sr.Min, sr.Max) }

// RandomAttributes rolls a fresh agent within the rules' stat ranges.
func RandomAttributes(rng RNG, r *Rules) Attributes {
	return Attributes{
		Strength:         roll(rng, r.Strength),
		Toughness:        roll(rng, r.Toughness),
		Agility:          roll(rng, r.Agility),
		BlockSkill:       roll(rng, r.BlockSkill),
		InjuryResistance: roll(rng, r.InjuryResistance),
		Movement:         roll(rng, r.Movement),
	}
}

// BuildTeam rolls a roster of RosterSize agents for side. A nil namer uses
// NumberedNamer. IDs are derived from side, team name and roster slot, so a
// rebuilt roster keeps the same IDs.
func BuildTeam(rng RNG, r *Rules, name string, side Side, namer Namer) *Team {
	if namer == nil {
		namer = NumberedNamer
	}
	t := NewTeam(name, side)
	t.ID = stableID(side.String(), name)
	for i := 0; i < r.RosterSize; i++ {
		a := NewAgent(namer.Name(name, i), side, RandomAttributes(rng, r))
		a.ID = stableID(side.String(), name, fmt.Sprint(i))
		t.Add(a)
	}
	return t
}

func stableID(parts ...string) string {
	key := ""
	for _, p := range parts {
		key += p + "/"
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}
