package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"autolearner-go/internal/learner"
	"autolearner-go/internal/model"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

func respondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// MaterialResponse is the wire form of a material. Field names follow the
// registry contract so existing front ends can consume it unchanged.
type MaterialResponse struct {
	ID            string             `json:"id"`
	Owner         string             `json:"owner"`
	SourceURI     string             `json:"sourceURI"`
	Processed     bool               `json:"processed"`
	Timestamp     int64              `json:"timestamp"`
	FlashcardsCID string             `json:"flashcardsCID,omitempty"`
	QuizCID       string             `json:"quizCID,omitempty"`
	AudioCID      string             `json:"audioCID,omitempty"`
	Flashcards    model.FlashcardSet `json:"flashcards,omitempty"`
	Quiz          model.QuizSet      `json:"quiz,omitempty"`
	AudioURL      string             `json:"audioUrl,omitempty"`
}

func newMaterialResponse(m *model.Material) MaterialResponse {
	r := m.Record
	return MaterialResponse{
		ID:            r.ID,
		Owner:         r.Owner,
		SourceURI:     r.SourceReference,
		Processed:     r.Processed,
		Timestamp:     r.SubmittedAt.Unix(),
		FlashcardsCID: r.FlashcardReference,
		QuizCID:       r.QuizReference,
		AudioCID:      r.AudioReference,
		Flashcards:    m.Flashcards,
		Quiz:          m.Quiz,
		AudioURL:      m.AudioURL,
	}
}

// StateResponse is the wire form of the accessor's committed view.
type StateResponse struct {
	Status    string             `json:"status"`
	Identity  string             `json:"identity,omitempty"`
	Materials []MaterialResponse `json:"materials"`
	Error     string             `json:"error,omitempty"`
	LoadedAt  *time.Time         `json:"loadedAt,omitempty"`
}

func newStateResponse(s learner.State) StateResponse {
	out := StateResponse{
		Status:    s.Status.String(),
		Identity:  s.Identity,
		Materials: newMaterialList(s.Materials),
	}
	if s.Err != nil {
		out.Error = s.Err.Error()
	}
	if !s.LoadedAt.IsZero() {
		t := s.LoadedAt.UTC()
		out.LoadedAt = &t
	}
	return out
}

func newMaterialList(materials []*model.Material) []MaterialResponse {
	out := make([]MaterialResponse, 0, len(materials))
	for _, m := range materials {
		out = append(out, newMaterialResponse(m))
	}
	return out
}

type SubmissionRequest struct {
	SourceURI string `json:"sourceURI"`
}

type ReceiptResponse struct {
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
	GasUsed     uint64 `json:"gasUsed"`
	RecordID    string `json:"recordId,omitempty"`
}

type SubmissionResponse struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	SourceURI   string    `json:"sourceURI"`
	TxHash      string    `json:"txHash"`
	RecordID    string    `json:"recordId,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}
