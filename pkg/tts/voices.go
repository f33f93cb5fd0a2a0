package tts

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultVoiceID is the ElevenLabs voice that reads answers aloud.
const DefaultVoiceID = "ESFCSGXf29OXVudtb0W7"

// Voice is one entry of the ElevenLabs voice library.
type Voice struct {
	VoiceID    string            `json:"voice_id"`
	Name       string            `json:"name"`
	Category   string            `json:"category"`
	Labels     map[string]string `json:"labels"`
	PreviewURL string            `json:"preview_url"`
}

// String renders the voice for listings.
func (v Voice) String() string {
	if len(v.Labels) == 0 {
		return fmt.Sprintf("%s  %s (%s)", v.VoiceID, v.Name, v.Category)
	}
	keys := make([]string, 0, len(v.Labels))
	for k := range v.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	labels := make([]string, 0, len(keys))
	for _, k := range keys {
		labels = append(labels, k+"="+v.Labels[k])
	}
	return fmt.Sprintf("%s  %s (%s) %s", v.VoiceID, v.Name, v.Category, strings.Join(labels, " "))
}

// ElevenLabsVoices maps friendly preset names to ElevenLabs voice IDs.
var ElevenLabsVoices = map[string]string{
	"scout":     DefaultVoiceID,
	"charlotte": "XB0fDUnXU5powFXDhCwa", // British female, warm
	"aria":      "9BWtsMINqrJLrRacOk9x", // American female, expressive
	"rachel":    "21m00Tcm4TlvDq8ikWAM", // American female, calm
	"josh":      "TxGEqnHWrfWFTfGW9XjX", // American male, deep
	"adam":      "pNInz6obpgDQGcFmaJgB", // American male, deep
}

// ResolveElevenLabsVoice returns the voice ID for a preset name,
// or the input unchanged if it's already a voice ID.
func ResolveElevenLabsVoice(name string) string {
	if id, ok := ElevenLabsVoices[strings.ToLower(name)]; ok {
		return id
	}
	return name
}
