package types

// Section tree of a generated tutorial. Persisted as one JSONB document on the
// tutorial row; the canonical serialization of this tree is what the content
// hash is computed over.

type BlockType string

const (
	BlockTypeText        BlockType = "text"
	BlockTypeImage       BlockType = "image"
	BlockTypeAudio       BlockType = "audio"
	BlockTypeVideo       BlockType = "video"
	BlockTypeDiagram     BlockType = "diagram"
	BlockTypeQuiz        BlockType = "quiz"
	BlockTypePlaceholder BlockType = "placeholder"
)

type BlockStatus string

const (
	BlockStatusOK     BlockStatus = "ok"
	BlockStatusFailed BlockStatus = "failed"
)

type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"` // 0-based index into Options
	Explanation   string   `json:"explanation,omitempty"`
}

type ContentBlock struct {
	Type         BlockType     `json:"type"`
	OriginalType BlockType     `json:"original_type,omitempty"` // set when a fallback degraded the block
	Status       BlockStatus   `json:"status"`
	Text         string        `json:"text,omitempty"`
	URL          string        `json:"url,omitempty"`
	ObjectKey    string        `json:"object_key,omitempty"`
	AltText      string        `json:"alt_text,omitempty"`
	Diagram      string        `json:"diagram,omitempty"` // mermaid source
	Prompt       string        `json:"prompt,omitempty"`
	Error        string        `json:"error,omitempty"`
	Citations    []string      `json:"citations,omitempty"`
	Quiz         *QuizQuestion `json:"quiz,omitempty"`
}

type Section struct {
	Title  string         `json:"title"`
	Kind   string         `json:"kind"` // pedagogical type: concept|example|practice|summary|...
	Goal   string         `json:"goal,omitempty"`
	Blocks []ContentBlock `json:"blocks"`
}

// FailedBlocks returns every block across sections left in status=failed.
func FailedBlocks(sections []Section) []FailedBlockRef {
	var out []FailedBlockRef
	for si := range sections {
		out = append(out, SectionFailedBlocks(si, sections[si])...)
	}
	return out
}

// SectionFailedBlocks returns the failed blocks of one section, tagged with
// its index in the artifact.
func SectionFailedBlocks(index int, s Section) []FailedBlockRef {
	var out []FailedBlockRef
	for bi, b := range s.Blocks {
		if b.Status == BlockStatusFailed {
			out = append(out, FailedBlockRef{
				SectionIndex: index,
				SectionTitle: s.Title,
				BlockIndex:   bi,
				OriginalType: b.OriginalType,
				Prompt:       b.Prompt,
				Error:        b.Error,
			})
		}
	}
	return out
}

// FailedBlockRef is one entry in a strict-validation failure report.
type FailedBlockRef struct {
	SectionIndex int       `json:"section_index"`
	SectionTitle string    `json:"section_title"`
	BlockIndex   int       `json:"block_index"`
	OriginalType BlockType `json:"original_type"`
	Prompt       string    `json:"prompt,omitempty"`
	Error        string    `json:"error,omitempty"`
}
