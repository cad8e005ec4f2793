// Package risk provides the deterministic, dependency-free scoring layer for
// daily check-ins. It is intentionally small and engineered like a library:
//
//   - No logging and no persistence (callers decide both)
//   - Pure functions: same answers always produce the same score
//   - Deterministic classification with a fixed rule precedence
//
// Two strategies coexist because the system accepts either personalized
// generated question sets or the legacy fixed set: a per-record severity
// mean (ScoreFromAnswers) and a multi-record rule-based classifier
// (Classify) that accumulates weighted symptom days.
package risk

import (
	"math"
	"strings"
)

// Level is the qualitative risk classification.
type Level string

// Risk levels in ascending severity.
const (
	LevelLow  Level = "Low"
	LevelMid  Level = "Mid"
	LevelHigh Level = "High"
)

// Summary is the derived output of the rule-based classifier. It is never
// persisted; callers recompute it from stored check-ins.
type Summary struct {
	Level  Level   `json:"level"`
	Reason string  `json:"reason"`
	Score  float64 `json:"score"`
}

// Record is the minimal view of a check-in the classifier needs: the chosen
// answer labels keyed by question id. Records passed to Classify must be
// ordered oldest first.
type Record struct {
	Answers map[string]string
}

// Severity values assigned to answer labels. Unknown labels sit between
// mild and moderate so an unmapped option neither clears nor flags a record.
const (
	severityNone     = 1.0
	severityMild     = 0.7
	severityModerate = 0.4
	severitySevere   = 0.2
	severityUnknown  = 0.5
)

// severityValue maps a free-text answer label to its numeric severity. The
// match is a case-insensitive comparison of the label's leading token, taken
// before any separator ("Moderate - most of the day" matches "moderate").
func severityValue(label string) float64 {
	head := strings.ToLower(strings.TrimSpace(label))
	if i := strings.IndexAny(head, " -(/,"); i > 0 {
		head = head[:i]
	}
	switch head {
	case "none", "normal", "no":
		return severityNone
	case "mild":
		return severityMild
	case "moderate":
		return severityModerate
	case "severe":
		return severitySevere
	default:
		return severityUnknown
	}
}

// ScoreFromAnswers maps each answer label to a severity value and returns the
// mean, clamped to [0,1] and rounded to 3 decimal places. An empty answer set
// scores 0. Higher stored values mean healthier answers; the risk series
// inverts this at presentation time.
func ScoreFromAnswers(answers map[string]string) float64 {
	if len(answers) == 0 {
		return 0
	}
	sum := 0.0
	for _, label := range answers {
		sum += severityValue(label)
	}
	mean := sum / float64(len(answers))
	if mean < 0 {
		mean = 0
	}
	if mean > 1 {
		mean = 1
	}
	return math.Round(mean*1000) / 1000
}

// Symptom keywords searched for in question ids. The legacy fixed set uses
// these ids directly; generated sets carry them as id fragments or categories.
const (
	symptomHeadache = "headache"
	symptomSleep    = "sleep"
	symptomStress   = "stress"
	symptomNausea   = "nausea"
	symptomWeakness = "weakness"
)

// answerSeverity finds the answer belonging to a symptom within a record and
// returns its severity value. When the record never asked about the symptom
// it returns severityNone, which disqualifies the day for that symptom.
func answerSeverity(r Record, symptom string) float64 {
	for id, label := range r.Answers {
		if strings.Contains(strings.ToLower(id), symptom) {
			return severityValue(label)
		}
	}
	return severityNone
}

// qualifies reports whether a symptom answer is moderate or worse.
func qualifies(v float64) bool { return v <= severityModerate }

// nonTrivial reports whether a symptom answer is anything beyond none/normal.
func nonTrivial(v float64) bool { return v <= severityMild }

// Classify runs the rule-based cluster scorer over check-in records ordered
// oldest first and returns a Summary.
//
// Accumulation per record: +2 for a qualifying headache answer, +3 for a
// qualifying low-sleep answer, +4 for a qualifying high-stress answer (the
// longest consecutive run of stress days is tracked separately), and +6 for a
// symptom-cluster day where nausea and weakness are simultaneously
// non-trivial.
//
// Classification evaluates rules in a fixed order and the first match wins;
// the ordering is a deliberate tie-break policy, never a magnitude
// comparison between rules:
//
//  1. >=2 symptom-cluster days            -> High "clustered symptoms"
//  2. longest stress run >=5              -> Mid  "sustained low mood/stress"
//  3. >=3 headache days and >=3 low sleep -> Mid  "frequent headaches with low sleep"
//  4. accumulated score >=20              -> High "multiple risk factors accumulated"
//  5. accumulated score >=10              -> Mid  "some recurring issues"
//  6. otherwise                           -> Low  "no major recurring symptoms"
func Classify(records []Record) Summary {
	var (
		score        float64
		headacheDays int
		lowSleepDays int
		clusterDays  int
		stressRun    int
		maxStressRun int
	)

	for _, r := range records {
		if qualifies(answerSeverity(r, symptomHeadache)) {
			headacheDays++
			score += 2
		}
		if qualifies(answerSeverity(r, symptomSleep)) {
			lowSleepDays++
			score += 3
		}
		if qualifies(answerSeverity(r, symptomStress)) {
			score += 4
			stressRun++
			if stressRun > maxStressRun {
				maxStressRun = stressRun
			}
		} else {
			stressRun = 0
		}
		if nonTrivial(answerSeverity(r, symptomNausea)) && nonTrivial(answerSeverity(r, symptomWeakness)) {
			clusterDays++
			score += 6
		}
	}

	switch {
	case clusterDays >= 2:
		return Summary{Level: LevelHigh, Reason: "clustered symptoms", Score: score}
	case maxStressRun >= 5:
		return Summary{Level: LevelMid, Reason: "sustained low mood/stress", Score: score}
	case headacheDays >= 3 && lowSleepDays >= 3:
		return Summary{Level: LevelMid, Reason: "frequent headaches with low sleep", Score: score}
	case score >= 20:
		return Summary{Level: LevelHigh, Reason: "multiple risk factors accumulated", Score: score}
	case score >= 10:
		return Summary{Level: LevelMid, Reason: "some recurring issues", Score: score}
	default:
		return Summary{Level: LevelLow, Reason: "no major recurring symptoms", Score: score}
	}
}
