package engine

import "fmt"

// BeginPlay resets the field for the next play: agents recover or sit out,
// both teams line up, and the offense's next carrier takes the ball.
func (g *Game) BeginPlay() (*Agent, error) {
	if g.PlayLive {
		return nil, fmt.Errorf("begin play: play %d is still live", g.Play)
	}
	g.Play++
	g.Turn = 0
	g.Outcome = OutcomeNone
	g.setClock()

	g.Grid.Clear()
	g.Ball = Ball{}
	g.trails = make(map[string][]Position)
	for _, a := range g.Agents() {
		a.KnockedDown = false
		a.HasBall = false
		switch {
		case a.OutOfGame:
			a.Unavailable = true
		case a.MissesPlays > 0:
			a.MissesPlays--
			a.Unavailable = true
		default:
			a.Unavailable = false
			a.Injury = InjuryNone
		}
		a.ResetMovement()
	}
	g.lineUp(g.Home, g.Rules.HomeStartRow())
	g.lineUp(g.Away, g.Rules.AwayStartRow())

	g.PlayLive = true
	offense := g.Offense()
	carrier, ok := offense.NextCarrier()
	payload := Payload{
		"offense":      offense.Name,
		"offense_side": offense.Side.String(),
		"defense":      g.Defense().Name,
	}
	if !ok {
		payload["carrier_name"] = "nobody"
		g.emit(EventPlayStart, payload)
		g.endPlay(OutcomeNoCarrier)
		return nil, nil
	}
	g.giveBall(carrier)
	payload["carrier_id"] = carrier.ID
	payload["carrier_name"] = carrier.Name
	payload["carrier_at"] = carrier.Position
	g.emit(EventPlayStart, payload)
	return carrier, nil
}

// lineUp places the available members of t across row, spaced out from the
// formation start column. Taken cells fall back to the nearest free cell on
// the row, then on the rows behind it.
func (g *Game) lineUp(t *Team, row int) {
	r := g.Rules
	back := -Forward(t.Side)
	for i, a := range t.Available() {
		want := Position{X: clampInt(0, g.Grid.Width()-1, r.FormationStartX+r.FormationSpacing*i), Y: row}
		for y := row; y >= 0 && y < g.Grid.Height(); y += back {
			if p, ok := g.nearestFreeOnRow(want.X, y); ok {
				g.Grid.Place(a, p)
				break
			}
		}
	}
}

func (g *Game) nearestFreeOnRow(x, y int) (Position, bool) {
	for d := 0; d < g.Grid.Width(); d++ {
		for _, cx := range []int{x - d, x + d} {
			p := Position{X: cx, Y: y}
			if g.Grid.IsEmpty(p) {
				return p, true
			}
		}
	}
	return Position{}, false
}

// BeginTurn advances the turn clock. It returns false, ending the play, when
// the turn cap is exceeded; otherwise every standing available agent gets its
// movement back.
func (g *Game) BeginTurn() bool {
	if !g.PlayLive {
		return false
	}
	g.Turn++
	if g.Turn > g.Rules.MaxTurnsPerPlay {
		g.StopPlay(OutcomeTurnLimit)
		return false
	}
	g.setClock()
	for _, a := range g.Agents() {
		if a.onField && !a.KnockedDown && !a.Unavailable && !a.OutOfGame {
			a.ResetMovement()
		}
	}
	g.emit(EventTurnStart, Payload{"offense": g.Offense().Name})
	return true
}

// EndTurn closes the current turn.
func (g *Game) EndTurn() {
	g.emit(EventTurnEnd, Payload{
		"home_score": g.Home.Score,
		"away_score": g.Away.Score,
		"ball":       g.Ball.State.String(),
		"ball_at":    g.Ball.Location(),
	})
}

// StopPlay ends a live play from outside the rules, such as the turn cap. The
// ball goes dead where it is.
func (g *Game) StopPlay(outcome PlayOutcome) {
	if !g.PlayLive {
		return
	}
	g.killBall()
	g.endPlay(outcome)
}

// TurnsPlayed is the number of turns that actually ran in the current or last
// play.
func (g *Game) TurnsPlayed() int {
	return min(g.Turn, g.Rules.MaxTurnsPerPlay)
}

// SwapRoles hands the offense to the other team.
func (g *Game) SwapRoles() {
	g.Home.Offense = !g.Home.Offense
	g.Away.Offense = !g.Home.Offense
}

// GameResult is the final score of a game.
type GameResult struct {
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
	Tie       bool   `json:"tie"`
	Winner    string `json:"winner,omitempty"`
	WinnerID  string `json:"winner_id,omitempty"`
	Plays     int    `json:"plays"`
}

// FinishGame decides the winner, books results on both teams and emits
// game_end.
func (g *Game) FinishGame() GameResult {
	g.StopPlay(OutcomeNone)
	res := GameResult{HomeScore: g.Home.Score, AwayScore: g.Away.Score, Plays: g.Play}
	switch {
	case res.HomeScore > res.AwayScore:
		res.Winner, res.WinnerID = g.Home.Name, g.Home.ID
	case res.AwayScore > res.HomeScore:
		res.Winner, res.WinnerID = g.Away.Name, g.Away.ID
	default:
		res.Tie = true
	}
	g.Home.recordResult(g.Away.Score)
	g.Away.recordResult(g.Home.Score)
	winner := res.Winner
	if res.Tie {
		winner = "tie"
	}
	g.emit(EventGameEnd, Payload{
		"home":       g.Home.Name,
		"away":       g.Away.Name,
		"home_score": res.HomeScore,
		"away_score": res.AwayScore,
		"winner":     winner,
		"tie":        res.Tie,
		"plays":      g.Play,
	})
	return res
}

// ResetForGame clears scores, clocks and game-long penalties so the same
// rosters can play again. Injuries in progress carry over.
func (g *Game) ResetForGame() {
	g.StopPlay(OutcomeNone)
	g.Play, g.Turn = 0, 0
	g.Outcome = OutcomeNone
	g.Grid.Clear()
	g.Ball = Ball{}
	g.Home.resetForGame()
	g.Away.resetForGame()
	g.Home.Offense, g.Away.Offense = true, false
	g.setClock()
}
