package livequery

import "dva-dashboard-be/internal/entity"

type Kind int

const (
	Loading Kind = iota
	Ready
	Failed
)

func (k Kind) String() string {
	switch k {
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "loading"
	}
}

// FetchState is exactly one of Loading, Ready(Records) or Failed(Message).
type FetchState struct {
	Kind    Kind
	Records []entity.UseCase
	Message string
}

func LoadingState() FetchState {
	return FetchState{Kind: Loading}
}

func ReadyState(records []entity.UseCase) FetchState {
	if records == nil {
		records = []entity.UseCase{}
	}
	return FetchState{Kind: Ready, Records: records}
}

func FailedState(message string) FetchState {
	return FetchState{Kind: Failed, Message: message}
}
