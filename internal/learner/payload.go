package learner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"autolearner-go/internal/model"
)

// DecodeFlashcards parses a flashcard payload. The payload is either a JSON
// array of {front, back} objects or an object wrapping that array under
// "flashcards". Every card must have a non-empty front and back.
func DecodeFlashcards(data []byte) (model.FlashcardSet, error) {
	raw, err := unwrapList(data, "flashcards")
	if err != nil {
		return nil, fmt.Errorf("decoding flashcards: %w", err)
	}

	var cards model.FlashcardSet
	if err := json.Unmarshal(raw, &cards); err != nil {
		return nil, fmt.Errorf("decoding flashcards: %w", err)
	}

	for i, c := range cards {
		if strings.TrimSpace(c.Front) == "" || strings.TrimSpace(c.Back) == "" {
			return nil, fmt.Errorf("flashcard %d: front and back are required", i)
		}
	}
	return cards, nil
}

// quizQuestionWire accepts both the "correctAnswer" key used by published quizzes and the
// explicit "correctOptionIndex" key.
type quizQuestionWire struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswer      *int     `json:"correctAnswer"`
	CorrectOptionIndex *int     `json:"correctOptionIndex"`
	Explanation        string   `json:"explanation"`
}

// DecodeQuiz parses a quiz payload. The payload is either a JSON array of
// questions or an object wrapping that array under "questions". Each question
// needs text, at least two options and a correct index within range.
func DecodeQuiz(data []byte) (model.QuizSet, error) {
	raw, err := unwrapList(data, "questions")
	if err != nil {
		return nil, fmt.Errorf("decoding quiz: %w", err)
	}

	var wire []quizQuestionWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decoding quiz: %w", err)
	}

	quiz := make(model.QuizSet, 0, len(wire))
	for i, q := range wire {
		if strings.TrimSpace(q.Question) == "" {
			return nil, fmt.Errorf("question %d: text is required", i)
		}
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("question %d: need at least 2 options, got %d", i, len(q.Options))
		}

		idx := q.CorrectOptionIndex
		if idx == nil {
			idx = q.CorrectAnswer
		}
		if idx == nil {
			return nil, fmt.Errorf("question %d: correct option is missing", i)
		}
		if *idx < 0 || *idx >= len(q.Options) {
			return nil, fmt.Errorf("question %d: correct option %d out of range", i, *idx)
		}

		quiz = append(quiz, model.QuizQuestion{
			Question:           q.Question,
			Options:            q.Options,
			CorrectOptionIndex: *idx,
			Explanation:        q.Explanation,
		})
	}
	return quiz, nil
}

// unwrapList returns the JSON array in data, looking under key if data is an object.
func unwrapList(data []byte, key string) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	switch trimmed[0] {
	case '[':
		return trimmed, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, err
		}
		inner, ok := obj[key]
		if !ok {
			return nil, fmt.Errorf("object has no %q field", key)
		}
		inner = bytes.TrimSpace(inner)
		if len(inner) == 0 || inner[0] != '[' {
			return nil, fmt.Errorf("%q is not a list", key)
		}
		return inner, nil
	default:
		return nil, fmt.Errorf("payload is neither a list nor an object")
	}
}
