package handler

import "github.com/iliyamo/visitor-tracker/internal/model"

// Response bodies.  Every body carries success; failures carry only a short
// human message, never error detail.

type failureResp struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type trackResp struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	VisitorID string `json:"visitorId"`
}

type visitorsResp struct {
	Success  bool            `json:"success"`
	Count    int             `json:"count"`
	Visitors []model.Visitor `json:"visitors"`
}

type statsResp struct {
	Success bool        `json:"success"`
	Stats   model.Stats `json:"stats"`
}

type healthResp struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func failure(message string) failureResp {
	return failureResp{Success: false, Message: message}
}
