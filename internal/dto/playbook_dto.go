package dto

type PlaybookQuery struct {
	ClientID  int `query:"client_id"`
	UseCaseID int `query:"use_case_id"`
}
