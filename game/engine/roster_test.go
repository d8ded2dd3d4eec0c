package engine

import "testing"

func TestBuildTeamDeterministic(t *testing.T) {
	r := DefaultRules()
	a := BuildTeam(NewRNG(7), r, "Grubs", SideHome, nil)
	b := BuildTeam(NewRNG(7), r, "Grubs", SideHome, nil)

	if len(a.Agents) != r.RosterSize {
		t.Fatalf("roster size = %d, want %d", len(a.Agents), r.RosterSize)
	}
	if a.ID != b.ID {
		t.Errorf("team IDs differ: %s vs %s", a.ID, b.ID)
	}
	for i := range a.Agents {
		x, y := a.Agents[i], b.Agents[i]
		if x.ID != y.ID || x.Name != y.Name || x.Base != y.Base {
			t.Errorf("agent %d differs: %+v vs %+v", i, x, y)
		}
	}
	if a.Agents[0].Name != "Grubs #1" {
		t.Errorf("first name = %q, want %q", a.Agents[0].Name, "Grubs #1")
	}

	other := BuildTeam(NewRNG(7), r, "Grubs", SideAway, nil)
	if other.Agents[0].ID == a.Agents[0].ID {
		t.Error("same name on the other side must get a different ID")
	}
}

func TestRandomAttributesWithinRanges(t *testing.T) {
	r := DefaultRules()
	rng := NewRNG(42)
	for i := 0; i < 200; i++ {
		attrs := RandomAttributes(rng, r)
		checks := []struct {
			name string
			v    int
			sr   StatRange
		}{
			{"strength", attrs.Strength, r.Strength},
			{"toughness", attrs.Toughness, r.Toughness},
			{"agility", attrs.Agility, r.Agility},
			{"block skill", attrs.BlockSkill, r.BlockSkill},
			{"injury resistance", attrs.InjuryResistance, r.InjuryResistance},
			{"movement", attrs.Movement, r.Movement},
		}
		for _, c := range checks {
			if c.v < c.sr.Min || c.v > c.sr.Max {
				t.Fatalf("%s = %d outside [%d, %d]", c.name, c.v, c.sr.Min, c.sr.Max)
			}
		}
	}
}

func TestNamerFunc(t *testing.T) {
	namer := NamerFunc(func(team string, i int) string { return team + "-" + string(rune('a'+i)) })
	team := BuildTeam(NewRNG(1), DefaultRules(), "Bogs", SideAway, namer)
	if got := team.Agents[2].Name; got != "Bogs-c" {
		t.Errorf("name = %q, want %q", got, "Bogs-c")
	}
	for _, a := range team.Agents {
		if a.Side != SideAway {
			t.Errorf("%s on side %s", a.Name, a.Side)
		}
	}
}
