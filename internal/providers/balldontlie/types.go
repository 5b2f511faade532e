package balldontlie

const providerName = "balldontlie"

type gamesResponse struct {
	Data []gameResponse `json:"data"`
	Meta metaResponse   `json:"meta"`
}

// gameResponse covers the NBA and NFL game shapes; NFL reports quarter instead of period.
type gameResponse struct {
	ID               int          `json:"id"`
	Date             string       `json:"date"`
	Status           string       `json:"status"`
	Time             string       `json:"time"`
	Period           int          `json:"period"`
	Quarter          int          `json:"quarter"`
	Postseason       bool         `json:"postseason"`
	HomeTeam         teamResponse `json:"home_team"`
	VisitorTeam      teamResponse `json:"visitor_team"`
	HomeTeamScore    *int         `json:"home_team_score"`
	VisitorTeamScore *int         `json:"visitor_team_score"`
	Season           int          `json:"season"`
}

type teamResponse struct {
	ID           int    `json:"id"`
	Abbreviation string `json:"abbreviation"`
	FullName     string `json:"full_name"`
	Name         string `json:"name"`
}

type metaResponse struct {
	TotalPages int  `json:"total_pages"`
	NextCursor *int `json:"next_cursor"`
}
