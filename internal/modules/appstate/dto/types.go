package dto

type UserInput struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Gender string `json:"gender"`
}

type LocationInput struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

type ActionInput struct {
	Type     string         `json:"type"`
	User     *UserInput     `json:"user,omitempty"`
	Location *LocationInput `json:"location,omitempty"`
}

type UserOutput struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Gender string `json:"gender,omitempty"`
}

type LocationOutput struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

type StateOutput struct {
	User            *UserOutput     `json:"user"`
	Theme           string          `json:"theme"`
	IsAuthenticated bool            `json:"is_authenticated"`
	SOSActive       bool            `json:"sos_active"`
	Location        *LocationOutput `json:"location"`
}
