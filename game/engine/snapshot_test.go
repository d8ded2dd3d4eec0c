package engine

import (
	"encoding/json"
	"testing"
)

func TestSnapshot_DecodesFromJSON(t *testing.T) {
	g, _ := newSeededGame(t, 3)
	carrier, err := g.BeginPlay()
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(g.Snapshot())
	if err != nil {
		t.Fatal(err)
	}

	var got Snapshot
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if got.Ball.State != BallHeld || got.Ball.HolderID != carrier.ID {
		t.Errorf("ball = %+v, want held by %s", got.Ball, carrier.ID)
	}
	if got.Home.Side != SideHome || got.Away.Side != SideAway {
		t.Errorf("sides = %s/%s", got.Home.Side, got.Away.Side)
	}
	if len(got.Home.Agents) != len(g.Home.Agents) || got.Home.Agents[0].Side != SideHome {
		t.Errorf("home agents = %+v", got.Home.Agents)
	}
}

func TestTextEnums_RoundTrip(t *testing.T) {
	for _, s := range []BallState{BallDead, BallHeld, BallFree} {
		b, _ := s.MarshalText()
		var got BallState
		if err := got.UnmarshalText(b); err != nil || got != s {
			t.Errorf("ball state %s decoded to %s (%v)", s, got, err)
		}
	}
	for _, o := range []BlockOutcome{BlockNoEffect, BlockPush, BlockKnockdown, BlockKnockdownInjury} {
		b, _ := o.MarshalText()
		var got BlockOutcome
		if err := got.UnmarshalText(b); err != nil || got != o {
			t.Errorf("outcome %s decoded to %s (%v)", o, got, err)
		}
	}

	var res BlockResult
	if err := json.Unmarshal([]byte(`{"attempted":true,"outcome":"push"}`), &res); err != nil || res.Outcome != BlockPush {
		t.Errorf("block result = %+v (%v)", res, err)
	}
	var s BallState
	if err := s.UnmarshalText([]byte("lost")); err == nil {
		t.Error("unknown ball state should fail")
	}
	var o BlockOutcome
	if err := o.UnmarshalText([]byte("maul")); err == nil {
		t.Error("unknown outcome should fail")
	}
}
