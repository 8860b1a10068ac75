package terminal

// inetLoginRequest is the first login screen.
type inetLoginRequest struct {
	INETID string `json:"inet_id"`
}

// subscriberLoginRequest is the second login screen.
type subscriberLoginRequest struct {
	SubscriberID string `json:"subscriber_id"`
	PIN          string `json:"pin"`
	PARS         string `json:"pars"`
}

type loginResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type balanceResponse struct {
	Balance int `json:"balance"`
}

type depositRequest struct {
	Amount int    `json:"amount"`
	PIN    string `json:"pin"`
}

type depositResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
}

// apiBet is a recorded bet as the terminal's inquiry reports it.
type apiBet struct {
	ReceiptID   string `json:"receipt_id"`
	RaceCourse  string `json:"race_course"`
	RaceNumber  int    `json:"race_number"`
	BetType     string `json:"bet_type"`
	HorseNumber int    `json:"horse_number"`
	Amount      int    `json:"amount"`
}

type betsResponse struct {
	Bets []apiBet `json:"bets"`
}

type submitRequest struct {
	RaceCourse  string `json:"race_course"`
	RaceNumber  int    `json:"race_number"`
	BetType     string `json:"bet_type"`
	HorseNumber int    `json:"horse_number"`
	Amount      int    `json:"amount"`
}

type submitResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}
