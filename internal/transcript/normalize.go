// Package transcript normalizes recognized text before injection.
package transcript

import "strings"

// trailingPunct is the sentence-final set the upstream recognizer tends to
// over-produce for short utterances, covering both ASCII and CJK forms.
const trailingPunct = ".,!?;:" + "。，！？、；：" + "“”‘’"

// allPunct additionally covers brackets and dashes and is used by the
// realtime path, which strips punctuation wholesale.
const allPunct = trailingPunct + "()[]<>\"'" + "（）【】《》—…·"

// Options controls transcript normalization behavior.
type Options struct {
	TrailingSpace bool
}

// Normalize collapses whitespace and strips trailing punctuation from a raw
// transcript, optionally appending a single trailing space for dictation flow.
func Normalize(raw string, opts Options) string {
	text := strings.Join(strings.Fields(raw), " ")
	text = TrimTrailingPunctuation(text)
	if text == "" {
		return ""
	}
	if opts.TrailingSpace {
		return text + " "
	}
	return text
}

// TrimTrailingPunctuation removes sentence-final punctuation runs.
func TrimTrailingPunctuation(text string) string {
	return strings.TrimRightFunc(text, func(r rune) bool {
		return strings.ContainsRune(trailingPunct, r)
	})
}

// StripPunctuation removes all punctuation, used for realtime transcripts
// where the streaming recognizer inserts punctuation mid-utterance.
func StripPunctuation(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(allPunct, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
