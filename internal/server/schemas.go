package server

import "github.com/nadhanasaripv257/skillq-app/internal/common/validation"

var turnSchema = validation.MustCompile("turn", `{
  "type": "object",
  "required": ["text"],
  "properties": {
    "text": {"type": "string", "maxLength": 2000}
  },
  "additionalProperties": false
}`)

var outreachSchema = validation.MustCompile("outreach", `{
  "type": "object",
  "required": ["candidateId"],
  "properties": {
    "candidateId": {"type": "string", "minLength": 1, "maxLength": 64}
  },
  "additionalProperties": false
}`)

type turnRequest struct {
	Text string `json:"text"`
}

type outreachRequest struct {
	CandidateID string `json:"candidateId"`
}
