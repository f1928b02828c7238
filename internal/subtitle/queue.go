// Package subtitle paces agent sentences and short status notices on the
// single subtitle line.
package subtitle

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"voicefront/internal/domain"
	"voicefront/internal/sched"
)

const (
	DefaultPerChar   = 90 * time.Millisecond
	NoticeTransience = time.Second
)

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)

// SplitSentences returns the terminated sentences in text. Trailing text
// without terminal punctuation is dropped.
func SplitSentences(text string) []string {
	matches := sentencePattern.FindAllString(text, -1)
	sentences := make([]string, 0, len(matches))
	for _, m := range matches {
		if s := strings.TrimSpace(m); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// Sink shows the subtitle line. An empty subtitle clears it.
type Sink interface {
	Subtitle(text string)
	Notice(notice domain.Notice, detail string)
}

// Queue shows one sentence at a time, each for len(sentence) x perChar.
// Sentences and transient notices share one timer so that showing either
// cancels whatever was pending. Methods run on the loop.
type Queue struct {
	sched   sched.Scheduler
	sink    Sink
	perChar time.Duration

	sentences []string
	cursor    int
	timer     sched.Timer
}

func NewQueue(s sched.Scheduler, sink Sink, perChar time.Duration) *Queue {
	if perChar <= 0 {
		perChar = DefaultPerChar
	}
	return &Queue{sched: s, sink: sink, perChar: perChar}
}

// Replace discards the current queue and starts showing text.
func (q *Queue) Replace(text string) {
	q.timer = sched.Stop(q.timer)
	q.sentences = SplitSentences(text)
	q.cursor = 0
	q.showNext()
}

func (q *Queue) showNext() {
	q.timer = nil
	if q.cursor >= len(q.sentences) {
		q.sentences = nil
		q.cursor = 0
		q.sink.Subtitle("")
		return
	}
	sentence := q.sentences[q.cursor]
	q.cursor++
	q.sink.Subtitle(sentence)
	q.timer = q.sched.AfterFunc(time.Duration(utf8.RuneCountInString(sentence))*q.perChar, q.showNext)
}

// Clear cancels pending sentences and blanks the line.
func (q *Queue) Clear() {
	q.timer = sched.Stop(q.timer)
	q.sentences = nil
	q.cursor = 0
	q.sink.Subtitle("")
}

// Cancel stops the pending timer without touching the line.
func (q *Queue) Cancel() {
	q.timer = sched.Stop(q.timer)
	q.sentences = nil
	q.cursor = 0
}

// Notice replaces the line with a status. Transient notices clear after
// NoticeTransience and then call done, if set.
func (q *Queue) Notice(notice domain.Notice, detail string, transient bool, done func()) {
	q.Cancel()
	q.sink.Notice(notice, detail)
	if !transient {
		return
	}
	q.timer = q.sched.AfterFunc(NoticeTransience, func() {
		q.timer = nil
		q.sink.Subtitle("")
		if done != nil {
			done()
		}
	})
}

// Active reports whether a sentence or notice timer is pending.
func (q *Queue) Active() bool { return q.timer != nil }

// Remaining is the number of sentences not yet shown.
func (q *Queue) Remaining() int { return len(q.sentences) - q.cursor }
