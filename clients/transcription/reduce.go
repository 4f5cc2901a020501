package transcription

import (
	"strings"

	"cloud.google.com/go/speech/apiv1/speechpb"
)

const (
	DoctorLabel  = "DOCTOR"
	PatientLabel = "PATIENT"
)

/*
* The lowest speaker tag seen anywhere in the response is the doctor
* Within a result consecutive words of one tag form a labelled line
* A result without tags contributes its top alternative
 */
func ReduceResults(results []*speechpb.SpeechRecognitionResult) string {
	doctorTag, tagged := lowestSpeakerTag(results)

	var parts []string
	for _, result := range results {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		top := alts[0]
		if tagged && hasSpeakerTags(top.GetWords()) {
			if lines := segment(top.GetWords(), doctorTag); lines != "" {
				parts = append(parts, lines)
			}
			continue
		}
		if text := strings.TrimSpace(top.GetTranscript()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

func lowestSpeakerTag(results []*speechpb.SpeechRecognitionResult) (int32, bool) {
	var lowest int32
	found := false
	for _, result := range results {
		for _, alt := range result.GetAlternatives() {
			for _, w := range alt.GetWords() {
				tag := w.GetSpeakerTag()
				if tag == 0 {
					continue
				}
				if !found || tag < lowest {
					lowest = tag
					found = true
				}
			}
		}
	}
	return lowest, found
}

func hasSpeakerTags(words []*speechpb.WordInfo) bool {
	for _, w := range words {
		if w.GetSpeakerTag() != 0 {
			return true
		}
	}
	return false
}

func segment(words []*speechpb.WordInfo, doctorTag int32) string {
	var (
		lines   []string
		current []string
		label   string
	)
	flush := func() {
		if len(current) > 0 {
			lines = append(lines, label+": "+strings.Join(current, " "))
			current = nil
		}
	}
	for _, w := range words {
		next := PatientLabel
		if w.GetSpeakerTag() == doctorTag {
			next = DoctorLabel
		}
		if next != label {
			flush()
			label = next
		}
		current = append(current, w.GetWord())
	}
	flush()
	return strings.Join(lines, "\n")
}
