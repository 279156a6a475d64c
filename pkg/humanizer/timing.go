package humanizer

import (
	"strings"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/analysis"
)

// Typing-delay clamp. Anything outside this range reads as robotic.
const (
	minTypingDelay = 2 * time.Second
	maxTypingDelay = 15 * time.Second
)

// moodProfile tunes pacing per outbound persona.
type moodProfile struct {
	speed float64 // scales typing duration
	pause float64 // scales every pause
	typo  float64 // scales typo probability
}

var moodProfiles = map[analysis.Mood]moodProfile{
	analysis.MoodNeutral:      {speed: 1.0, pause: 1.0, typo: 1.0},
	analysis.MoodEnthusiastic: {speed: 1.2, pause: 0.8, typo: 1.3},
	analysis.MoodEmpathetic:   {speed: 0.9, pause: 1.2, typo: 0.8},
	analysis.MoodDetermined:   {speed: 1.05, pause: 0.9, typo: 1.0},
}

func profileFor(mood analysis.Mood) moodProfile {
	if p, ok := moodProfiles[mood]; ok {
		return p
	}
	return moodProfiles[analysis.MoodNeutral]
}

// typingDelay estimates how long a human would take to type the chunk.
func (h *Humanizer) typingDelay(text string, profile moodProfile) time.Duration {
	wordCount := len(strings.Fields(text))
	wpm := h.between(float64(h.cfg.TypingWPMMin), float64(h.cfg.TypingWPMMax))
	seconds := float64(wordCount) / wpm * 60 * h.between(0.85, 1.15) * profile.speed

	delay := time.Duration(seconds * float64(time.Second))
	if delay < minTypingDelay {
		return minTypingDelay
	}
	if delay > maxTypingDelay {
		return maxTypingDelay
	}
	return delay
}

// prePause computes the pause before a chunk starts typing. The opener of a
// first-ever reply gets the longest beat, as if the sender had just picked up
// the phone.
func (h *Humanizer) prePause(chunkIndex int, firstMessage bool, profile moodProfile) time.Duration {
	var lo, hi float64
	switch {
	case chunkIndex == 0 && firstMessage:
		lo, hi = 1.5, 3.0
	case chunkIndex == 0:
		lo, hi = 0.8, 1.5
	default:
		lo, hi = 0.3, 0.8
	}
	return h.pauseIn(lo, hi, profile)
}

// postPause computes the pause after a chunk is sent. Questions hang in the
// air a little longer.
func (h *Humanizer) postPause(text string, profile moodProfile) time.Duration {
	if strings.HasSuffix(strings.TrimSpace(text), "?") {
		return h.pauseIn(0.8, 1.2, profile)
	}
	return h.pauseIn(0.3, 0.7, profile)
}

func (h *Humanizer) pauseIn(lo, hi float64, profile moodProfile) time.Duration {
	return time.Duration(h.between(lo, hi) * profile.pause * float64(time.Second))
}
