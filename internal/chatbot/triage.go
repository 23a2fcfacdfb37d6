package chatbot

import "strings"

type TriageKind string

const (
	TriageUrgent          TriageKind = "urgent"
	TriageInfection       TriageKind = "infection"
	TriageHeadacheNausea  TriageKind = "headache_nausea"
	TriageGastroenteritis TriageKind = "gastroenteritis"
	TriageGeneral         TriageKind = "general"
)

type TriageResult struct {
	Kind   TriageKind `json:"kind"`
	Advice string     `json:"advice"`
}

var urgentSymptoms = []string{
	"chest pain", "difficulty breathing", "severe bleeding", "loss of consciousness",
	"severe headache", "high fever", "stroke symptoms", "heart attack",
}

// symptomPairs are checked in order after the urgent list. Both terms of a
// pair must appear; pairs are never combined.
var symptomPairs = []struct {
	first, second string
	result        TriageResult
}{
	{"fever", "cough", TriageResult{
		Kind:   TriageInfection,
		Advice: "Fever and cough together may indicate an infection. Rest, stay hydrated, and consult a healthcare provider if symptoms persist or worsen.",
	}},
	{"headache", "nausea", TriageResult{
		Kind:   TriageHeadacheNausea,
		Advice: "Headache with nausea can have various causes. Rest in a dark, quiet room and stay hydrated. See a doctor if symptoms are severe or persistent.",
	}},
	{"stomach pain", "diarrhea", TriageResult{
		Kind:   TriageGastroenteritis,
		Advice: "Stomach pain with diarrhea may indicate gastroenteritis. Stay hydrated with clear fluids and follow a bland diet. Consult a doctor if symptoms persist.",
	}},
}

const (
	urgentAdvice  = "🚨 These symptoms require immediate medical attention! Please call emergency services or go to the nearest emergency room immediately."
	generalAdvice = "I recommend consulting with a healthcare professional for proper evaluation of your symptoms. They can provide accurate diagnosis and appropriate treatment."
)

// Triage maps a symptom description to advice.
func Triage(symptoms string) TriageResult {
	input := Normalize(symptoms)

	for _, s := range urgentSymptoms {
		if strings.Contains(input, s) {
			return TriageResult{Kind: TriageUrgent, Advice: urgentAdvice}
		}
	}
	for _, p := range symptomPairs {
		if strings.Contains(input, p.first) && strings.Contains(input, p.second) {
			return p.result
		}
	}
	return TriageResult{Kind: TriageGeneral, Advice: generalAdvice}
}
