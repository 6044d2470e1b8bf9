package models

type Route string

const (
	RouteRAGQuery           Route = "rag_query"
	RouteGeneralExplanation Route = "general_explanation"
	RouteQuizRequest        Route = "quiz_request"
)

func (r Route) Valid() bool {
	switch r {
	case RouteRAGQuery, RouteGeneralExplanation, RouteQuizRequest:
		return true
	default:
		return false
	}
}

type RouteDecision struct {
	Type    Route  `json:"type"`
	Chapter string `json:"chapter,omitempty"`
}
