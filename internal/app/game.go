package app

import "math/rand/v2"

// Prompts are the truth and dare pools a spin draws from.
type Prompts struct {
	Truths []string
	Dares  []string
}

func DefaultPrompts() Prompts {
	return Prompts{
		Truths: []string{
			"What's your biggest dating red flag?",
			"Who was your first crush?",
			"What's the most embarrassing thing you've done for love?",
			"Rate everyone here from 1-10 honestly",
			"What's your ideal first date?",
			"Have you ever stalked someone on social media?",
			"What's your biggest turn-off?",
			"Who would you date in this room?",
			"What's your love language?",
			"Biggest relationship mistake you've made?",
		},
		Dares: []string{
			"Send a flirty message to your crush",
			"Do your best pickup line on someone here",
			"Share your most embarrassing photo",
			"Sing a romantic song",
			"Dance for 30 seconds",
			"Tell a joke and make everyone laugh",
			"Compliment everyone in the room",
			"Share your phone wallpaper",
			"Do 10 pushups",
			"Act like your favorite movie character",
		},
	}
}

// RandSource is the subset of *rand.Rand used by the game.
type RandSource interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// playerIndex maps a bottle angle in [0, 360) onto one of n players.
func playerIndex(angle float64, n int) int {
	i := int(angle / 360 * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func pick(r RandSource, pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[r.IntN(len(pool))]
}
