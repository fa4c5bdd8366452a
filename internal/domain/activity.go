package domain

// Activity is one offering in the catalog. Everything except the roster is fixed at seed time.
type Activity struct {
	Name            string
	Description     string
	Schedule        string
	MaxParticipants int
	participants    *Roster
}

// ActivityView is a point-in-time copy of an activity handed out by List.
type ActivityView struct {
	Name            string
	Description     string
	Schedule        string
	MaxParticipants int
	Participants    []string
}

// SpotsLeft reports remaining places and whether a ceiling is declared at all.
func (v ActivityView) SpotsLeft() (int, bool) {
	if v.MaxParticipants <= 0 {
		return 0, false
	}
	left := v.MaxParticipants - len(v.Participants)
	if left < 0 {
		left = 0
	}
	return left, true
}

func (a *Activity) view() ActivityView {
	return ActivityView{
		Name:            a.Name,
		Description:     a.Description,
		Schedule:        a.Schedule,
		MaxParticipants: a.MaxParticipants,
		Participants:    a.participants.Members(),
	}
}

// Seed describes an activity supplied by the bootstrap loader.
type Seed struct {
	Name            string
	Description     string
	Schedule        string
	MaxParticipants int
	Participants    []string
}

// Action names the roster change a Confirmation describes.
type Action string

const (
	ActionEnrolled  Action = "enrolled"
	ActionWithdrawn Action = "withdrawn"
)

// Confirmation is returned by a successful Enroll or Withdraw.
type Confirmation struct {
	Activity    string
	Participant string
	Action      Action
	RosterSize  int
}
