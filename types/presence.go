package types

// ChannelID identifies a chat channel. Platform ids are opaque strings.
type ChannelID string

// ParticipantID identifies a participant across channels.
type ParticipantID string

// Participant is a member currently present in a channel.
type Participant struct {
	ID        ParticipantID `json:"id"`
	Name      string        `json:"name"`
	Automated bool          `json:"automated"`
}

// Mention renders the participant in a notice.
func (p Participant) Mention() string {
	return "<@" + string(p.ID) + ">"
}

// PresenceTotal is the accumulated presence of one participant while a
// channel has been bound.
type PresenceTotal struct {
	ParticipantID ParticipantID `json:"participant_id"`
	TotalSeconds  float64       `json:"total_seconds"`
}

// Minutes returns the total expressed in minutes.
func (t PresenceTotal) Minutes() float64 {
	return t.TotalSeconds / 60
}
