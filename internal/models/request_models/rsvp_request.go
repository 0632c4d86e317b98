package request_models

type RSVPRequest struct {
	RSVPStatus  string `json:"rsvpStatus" binding:"required,oneof=going maybe not_going"`
	GuestsCount int    `json:"guestsCount" binding:"min=0"`
}
