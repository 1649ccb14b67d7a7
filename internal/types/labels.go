package types

import (
	"fmt"
	"strings"
)

const DefaultLanguage = "en"

// Labels is the text of the counter's UI triggers and displays in one language.
type Labels struct {
	Title    string `json:"title"`
	Start    string `json:"start"`
	Stop     string `json:"stop"`
	Manual   string `json:"manual"`
	AI       string `json:"ai"`
	Count    string `json:"count"`
	Accuracy string `json:"accuracy"`
	History  string `json:"history"`
}

var translations = map[string]Labels{
	"en": {
		Title:    "Poultry Counter",
		Start:    "Start Counting",
		Stop:     "Stop Counting",
		Manual:   "Manual Count",
		AI:       "AI Count",
		Count:    "Count: ",
		Accuracy: "Accuracy: ",
		History:  "Stored Counts",
	},
	"hi": {
		Title:    "मुर्गी गणक",
		Start:    "गिनती शुरू करें",
		Stop:     "गिनती रोकें",
		Manual:   "मैनुअल गिनती",
		AI:       "एआई गिनती",
		Count:    "गिनती: ",
		Accuracy: "सटीकता: ",
		History:  "संग्रहीत गिनती",
	},
}

// Languages returns the supported language codes.
func Languages() []string {
	return []string{"en", "hi"}
}

// LabelsFor returns the label set for lang, falling back to English.
func LabelsFor(lang string) Labels {
	if l, ok := translations[strings.ToLower(strings.TrimSpace(lang))]; ok {
		return l
	}
	return translations[DefaultLanguage]
}

// RenderHistory renders one display line per record, e.g. "Count: 3 (2026-10-17T08:00:00.000Z)".
func RenderHistory(lang string, records []CountRecord) []string {
	l := LabelsFor(lang)
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, fmt.Sprintf("%s%d (%s)", l.Count, r.Count, r.Timestamp))
	}
	return out
}
