package domain

import "time"

// Team is a named group of technicians that owns equipment.
// Members is derived from users.team_id and is only populated on reads that ask for it.
type Team struct {
	ID        string
	Name      string
	Members   []User
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MemberIDs returns the ids of the loaded members.
func (t *Team) MemberIDs() []string {
	ids := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

// TeamSummary is a team with its member count.
type TeamSummary struct {
	ID          string
	Name        string
	MemberCount int
}
