package session

import (
	"fmt"
	"strings"

	"github.com/vainnor/pomobot/types"
)

func startedNotice(s *Session) string {
	return fmt.Sprintf("Pomodoro session started for %d minutes of work and %d minutes of break time.",
		s.WorkMinutes, s.BreakMinutes)
}

func workNotice(s *Session, observers []types.Participant) string {
	return prefixMentions(observers,
		fmt.Sprintf("Pomodoro session started for %d minute(s)!", s.WorkMinutes))
}

func breakNotice(s *Session, observers []types.Participant) string {
	return prefixMentions(observers,
		fmt.Sprintf("Pomodoro session ended! Break time for %d minute(s)!", s.BreakMinutes))
}

func stoppedNotice() string {
	return "Pomodoro session was stopped."
}

func prefixMentions(observers []types.Participant, text string) string {
	if len(observers) == 0 {
		return text
	}
	mentions := make([]string, 0, len(observers))
	for _, p := range observers {
		mentions = append(mentions, p.Mention())
	}
	return strings.Join(mentions, " ") + " " + text
}
