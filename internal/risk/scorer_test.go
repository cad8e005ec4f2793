package risk

import (
	"fmt"
	"testing"
)

func day(pairs ...string) Record {
	m := map[string]string{}
	for i := 0; i+1 < len(pairs); i += 2 {
		m[pairs[i]] = pairs[i+1]
	}
	return Record{Answers: m}
}

func TestScoreFromAnswers_Mapping(t *testing.T) {
	cases := []struct {
		name    string
		answers map[string]string
		want    float64
	}{
		{"empty", nil, 0},
		{"all none", map[string]string{"q1": "None", "q2": "Normal"}, 1},
		{"all severe", map[string]string{"q1": "Severe", "q2": "severe - constant"}, 0.2},
		{"mixed", map[string]string{"q1": "Mild", "q2": "Moderate"}, 0.55},
		{"prefix before separator", map[string]string{"q1": "Moderate - most of the day"}, 0.4},
		{"case insensitive", map[string]string{"q1": "MILD"}, 0.7},
		{"unmapped defaults", map[string]string{"q1": "Fluctuating"}, 0.5},
		{"rounded to 3 places", map[string]string{"q1": "None", "q2": "Mild", "q3": "Severe"}, 0.633},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ScoreFromAnswers(tc.answers)
			if got != tc.want {
				t.Fatalf("ScoreFromAnswers(%v) = %v, want %v", tc.answers, got, tc.want)
			}
			if got < 0 || got > 1 {
				t.Fatalf("score %v out of [0,1]", got)
			}
		})
	}
}

func TestScoreFromAnswers_Idempotent(t *testing.T) {
	answers := map[string]string{"headache": "Mild", "sleep": "Severe", "stress": "Normal"}
	first := ScoreFromAnswers(answers)
	for i := 0; i < 5; i++ {
		if got := ScoreFromAnswers(answers); got != first {
			t.Fatalf("call %d: got %v, want %v", i, got, first)
		}
	}
}

func TestClassify_LowByDefault(t *testing.T) {
	got := Classify([]Record{
		day("headache", "None", "sleep", "Normal"),
		day("headache", "Mild"),
	})
	if got.Level != LevelLow || got.Reason != "no major recurring symptoms" {
		t.Fatalf("got %+v, want Low/no major recurring symptoms", got)
	}
}

func TestClassify_ClusteredSymptomsTakePrecedence(t *testing.T) {
	// Two days with nausea and weakness both non-trivial. The accumulated
	// score alone (2*6=12) would only justify Mid via rule 5; the cluster
	// rule must win because it is checked first.
	records := []Record{
		day("nausea", "Mild", "weakness", "Moderate"),
		day("nausea", "Severe", "weakness", "Mild"),
	}
	got := Classify(records)
	if got.Level != LevelHigh || got.Reason != "clustered symptoms" {
		t.Fatalf("got %+v, want High/clustered symptoms", got)
	}
	if got.Score != 12 {
		t.Fatalf("score = %v, want 12", got.Score)
	}
}

func TestClassify_SustainedStressStreak(t *testing.T) {
	// 7 consecutive stress-qualifying days -> streak 7 -> Mid with the
	// sustained reason, even though 7*4=28 >= 20 would match the High
	// accumulation rule further down the list.
	var records []Record
	for i := 0; i < 7; i++ {
		records = append(records, day("stress", "Severe"))
	}
	got := Classify(records)
	if got.Level != LevelMid || got.Reason != "sustained low mood/stress" {
		t.Fatalf("got %+v, want Mid/sustained low mood/stress", got)
	}
}

func TestClassify_StressRunMustBeConsecutive(t *testing.T) {
	records := []Record{
		day("stress", "Severe"),
		day("stress", "Severe"),
		day("stress", "None"), // breaks the run
		day("stress", "Severe"),
		day("stress", "Severe"),
		day("stress", "Severe"),
	}
	got := Classify(records)
	if got.Reason == "sustained low mood/stress" {
		t.Fatalf("broken run classified as sustained: %+v", got)
	}
	// 5 stress days * 4 = 20 -> High via accumulation instead.
	if got.Level != LevelHigh || got.Reason != "multiple risk factors accumulated" {
		t.Fatalf("got %+v, want High/multiple risk factors accumulated", got)
	}
}

func TestClassify_HeadachesWithLowSleep(t *testing.T) {
	var records []Record
	for i := 0; i < 3; i++ {
		records = append(records, day("headache", "Moderate", "sleep", "Severe"))
	}
	got := Classify(records)
	if got.Level != LevelMid || got.Reason != "frequent headaches with low sleep" {
		t.Fatalf("got %+v, want Mid/frequent headaches with low sleep", got)
	}
}

func TestClassify_AccumulationThresholds(t *testing.T) {
	// Two qualifying sleep days and two headache days: 2*3 + 2*2 = 10.
	records := []Record{
		day("headache", "Severe", "sleep", "Moderate"),
		day("headache", "Severe", "sleep", "Moderate"),
	}
	got := Classify(records)
	if got.Level != LevelMid || got.Reason != "some recurring issues" {
		t.Fatalf("got %+v, want Mid/some recurring issues", got)
	}
	if got.Score != 10 {
		t.Fatalf("score = %v, want 10", got.Score)
	}
}

// TestClassify_PrecedenceIsObservable builds an adversarial history that
// matches both the cluster rule and the accumulation rules. Swapping which
// rule is evaluated first would change the outcome, so the classification
// itself witnesses the ordering.
func TestClassify_PrecedenceIsObservable(t *testing.T) {
	var records []Record
	// Cluster days also carrying enough weight to cross the score >= 20 line.
	for i := 0; i < 3; i++ {
		records = append(records, day(
			"nausea", "Severe",
			"weakness", "Severe",
			"sleep", "Severe",
		))
	}
	got := Classify(records)
	// score = 3*(6+3) = 27 >= 20, yet the reason must be the cluster rule's.
	if got.Score < 20 {
		t.Fatalf("fixture too weak, score = %v", got.Score)
	}
	if got.Level != LevelHigh || got.Reason != "clustered symptoms" {
		t.Fatalf("got %+v, want cluster rule to win over accumulation", got)
	}
}

func TestClassify_MildDoesNotQualify(t *testing.T) {
	var records []Record
	for i := 0; i < 10; i++ {
		records = append(records, day("headache", "Mild", "sleep", "Mild", "stress", "Mild"))
	}
	got := Classify(records)
	if got.Score != 0 || got.Level != LevelLow {
		t.Fatalf("mild answers accumulated weight: %+v", got)
	}
}

func ExampleScoreFromAnswers() {
	score := ScoreFromAnswers(map[string]string{
		"headache": "None",
		"sleep":    "Moderate - slept under 5 hours",
	})
	fmt.Println(score)
	// Output: 0.7
}
