package models

// ByeID marks the synthetic bye player used to pad a bracket to a power of two.
const ByeID = -1

// Player is a bracket entrant. Real players have ID >= 0, unique within a roster.
type Player struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (p Player) IsBye() bool {
	return p.ID == ByeID
}

// Bye returns the placeholder opponent used by the bye policy.
func Bye() Player {
	return Player{ID: ByeID, Name: "BYE"}
}
