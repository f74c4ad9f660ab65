package sessions

import (
	"legalreview-backend/internal/fixes"
	"legalreview-backend/internal/items"
)

type createReviewRequest struct {
	Text      string `json:"text"`
	FileName  string `json:"fileName"`
	ObjectKey string `json:"objectKey"`
	MimeType  string `json:"mimeType"`
	Context   string `json:"context"`
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type itemsResponse struct {
	Items  items.Set           `json:"items"`
	Counts map[items.State]int `json:"counts"`
}

func newItemsResponse(set items.Set) itemsResponse {
	return itemsResponse{Items: set, Counts: set.Counts()}
}

type autoFixResponse struct {
	Summary fixes.Summary `json:"summary"`
	Steps   []fixes.Step  `json:"steps"`
	Items   items.Set     `json:"items"`
}
