package session

type whoamiInput struct{}

type whoamiOutput struct {
	Body WhoamiResponse
}

type WhoamiResponse struct {
	Owner  string `json:"owner" doc:"Владелец, указанный в токене"`
	Status string `json:"status"`
}
