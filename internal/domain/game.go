package domain

type GameStatus string

const (
	GameIdle           GameStatus = "idle"
	GameSpinning       GameStatus = "spinning"
	GameAwaitingChoice GameStatus = "awaiting_choice"
)

// GameSession is the truth-or-dare bottle game of one room.
type GameSession struct {
	ID          string     `json:"session_id"`
	Players     []User     `json:"players"`
	CurrentTurn int        `json:"current_turn"`
	BottleAngle float64    `json:"bottle_angle"`
	Status      GameStatus `json:"status"`
}

// SpinResult is what a bottle spin produced.
type SpinResult struct {
	SessionID      string  `json:"session_id"`
	Angle          float64 `json:"angle"`
	SelectedPlayer User    `json:"selected_player"`
	TruthQuestion  string  `json:"truth_question"`
	DareChallenge  string  `json:"dare_challenge"`
}
