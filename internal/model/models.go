package model

import "time"

// ContentRecord is the ledger's view of one submitted piece of learning content.
// The auxiliary references are only meaningful once Processed is true.
type ContentRecord struct {
	ID                 string    // Decimal uint256 assigned by the registry contract
	Owner              string    // Hex address of the submitter
	SourceReference    string    // URL supplied at submission time
	Processed          bool      // Set once by the external processing pipeline
	FlashcardReference string    // IPFS CID of the flashcard set
	QuizReference      string    // IPFS CID of the quiz set
	AudioReference     string    // IPFS CID of the audio narration
	SubmittedAt        time.Time // Block timestamp of the submission
}

// Flashcard is a single two-sided card.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// FlashcardSet is an ordered deck resolved from a flashcard reference.
type FlashcardSet []Flashcard

// QuizQuestion is a single multiple-choice question.
type QuizQuestion struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctAnswer"`
	Explanation        string   `json:"explanation,omitempty"`
}

// QuizSet is an ordered list of questions resolved from a quiz reference.
type QuizSet []QuizQuestion

// Material is a content record together with its resolved auxiliary payloads.
// For unprocessed records Flashcards, Quiz and AudioURL are always empty.
type Material struct {
	Record     ContentRecord
	Flashcards FlashcardSet
	Quiz       QuizSet
	AudioURL   string
}

// Receipt is the ledger's acknowledgment of a submission.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
	RecordID    string // Empty if the ledger did not report the new id
}

// Submission is a row of the local submission log.
type Submission struct {
	ID              string // UUID
	Owner           string
	SourceReference string
	TxHash          string
	RecordID        string
	SubmittedAt     time.Time
}

// Status is the load state of a record accessor.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}
