package models

// Dialog is one active conversation between a client and an agent.
// Responder is whoever currently answers: the bot by default, an operator
// after a transfer.
type Dialog struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Time      string `json:"time"`
	Platform  string `json:"platform"`
	Responder Author `json:"responder"`
	Closed    bool   `json:"closed,omitempty"`
}
