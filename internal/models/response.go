// Package models holds the JSON envelopes written by the REST API.
package models

import (
	"saquabus.org/internal/clock"
)

const APIVersion = 1

// ResponseModel wraps every JSON body: HTTP code, server time in Unix milliseconds,
// a short text and the payload.
type ResponseModel struct {
	Code        int    `json:"code"`
	CurrentTime int64  `json:"currentTime"`
	Data        any    `json:"data,omitempty"`
	Text        string `json:"text"`
	Version     int    `json:"version"`
}

func ResponseCurrentTime(c clock.Clock) int64 {
	return c.NowUnixMilli()
}

func NewOKResponse(data any, c clock.Clock) ResponseModel {
	return ResponseModel{
		Code:        200,
		CurrentTime: ResponseCurrentTime(c),
		Data:        data,
		Text:        "OK",
		Version:     APIVersion,
	}
}

func NewResponse(code int, data any, text string, c clock.Clock) ResponseModel {
	return ResponseModel{
		Code:        code,
		CurrentTime: ResponseCurrentTime(c),
		Data:        data,
		Text:        text,
		Version:     APIVersion,
	}
}

// ListData is the payload of list endpoints.
type ListData struct {
	List          any  `json:"list"`
	LimitExceeded bool `json:"limitExceeded"`
}

func NewListResponse(list any, limitExceeded bool, c clock.Clock) ResponseModel {
	return NewOKResponse(ListData{List: list, LimitExceeded: limitExceeded}, c)
}

// ErrorData carries per-field validation messages.
type ErrorData struct {
	FieldErrors map[string][]string `json:"fieldErrors"`
}
