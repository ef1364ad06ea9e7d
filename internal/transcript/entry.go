package transcript

import "time"

type Speaker string

const (
	SpeakerUser      Speaker = "You"
	SpeakerAssistant Speaker = "DevPro"
	SpeakerSystem    Speaker = "System"
)

// Entry is one line of the conversation as shown to the user. Entries are
// published in arrival order and never changed afterwards.
type Entry struct {
	Time    time.Time `json:"time"`
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
}
