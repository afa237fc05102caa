package transcribe

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"kara/karaoke"
)

// whisperResult mirrors the JSON whisper writes with word timestamps
// enabled. Times are in seconds.
type whisperResult struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []whisperSegment `json:"segments"`
}

type whisperSegment struct {
	Text  string        `json:"text"`
	Start float64       `json:"start"`
	End   float64       `json:"end"`
	Words []whisperWord `json:"words"`
}

type whisperWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// wordsFile is the plain transcript format accepted from disk, for users
// who bring their own timings.
type wordsFile struct {
	Words []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
	Text     string `json:"text"`
	Language string `json:"language"`
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// parseWhisperJSON flattens whisper segments into a word list. Word text
// is trimmed since whisper pads words with leading spaces.
func parseWhisperJSON(data []byte) (*karaoke.Transcript, error) {
	var result whisperResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode whisper output: %w", err)
	}

	var words []karaoke.Word
	for _, seg := range result.Segments {
		for _, w := range seg.Words {
			text := strings.TrimSpace(w.Word)
			if text == "" {
				continue
			}
			start := seconds(w.Start)
			end := seconds(w.End)
			if end < start {
				end = start
			}
			words = append(words, karaoke.Word{Text: text, Start: start, End: end})
		}
	}
	if len(words) == 0 {
		return nil, ErrNoWords
	}

	// Whisper occasionally emits out-of-order timestamps across segment
	// boundaries.
	sort.SliceStable(words, func(i, j int) bool {
		return words[i].Start < words[j].Start
	})

	if err := karaoke.ValidateWords(words); err != nil {
		return nil, err
	}
	return &karaoke.Transcript{
		Words:    words,
		Text:     strings.TrimSpace(result.Text),
		Language: result.Language,
	}, nil
}

// LoadFile reads a transcript from disk. Both the whisper JSON schema and
// the plain words schema are accepted.
func LoadFile(path string) (*karaoke.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, karaoke.NewError(err, "transcribe", "load-file")
	}

	if transcript, err := parseWhisperJSON(data); err == nil {
		return transcript, nil
	}

	var plain wordsFile
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, karaoke.NewError(fmt.Errorf("unrecognized transcript format: %w", err), "transcribe", "load-file")
	}

	words := make([]karaoke.Word, 0, len(plain.Words))
	for _, w := range plain.Words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		words = append(words, karaoke.Word{
			Text:  text,
			Start: seconds(w.Start),
			End:   seconds(w.End),
		})
	}
	if err := karaoke.ValidateWords(words); err != nil {
		return nil, karaoke.NewError(err, "transcribe", "load-file")
	}
	return &karaoke.Transcript{
		Words:    words,
		Text:     strings.TrimSpace(plain.Text),
		Language: plain.Language,
	}, nil
}
