// Package services – extraction quality
//
// The heuristic in this file scores how reliable an automated document
// extraction looks, independent of the narrative analysis attached to it.
// It is deliberately blunt: a handful of fixed deductions, no weighting by
// document type.
package services

import (
	"github.com/healthsphere/go-health-backend/internal/ocr"
	"github.com/healthsphere/go-health-backend/internal/utils"
)

// highConfidenceThreshold is the confidence at or above which an extracted
// value counts as trustworthy.
const highConfidenceThreshold = 0.7

// ExtractionQuality is the heuristic assessment of one extraction result.
type ExtractionQuality struct {
	Score               float64  `json:"score"`
	Issues              []string `json:"issues"`
	LabCount            int      `json:"lab_count"`
	HighConfidenceCount int      `json:"high_confidence_count"`
}

// AssessExtraction scores an extraction result in [0,1]. Deductions:
//
//	-0.4  zero structured values extracted
//	-0.2  fewer than half of the values reach the confidence threshold
//	-0.2  fewer than 70% of the values carry a non-null reading
//	-0.1  no patient identifier found
//	-0.1  no report date found
//
// The value deductions are mutually exclusive with the zero-values one.
// Issues always contains at least one entry, a positive one when nothing
// was deducted.
func AssessExtraction(res *ocr.Result) ExtractionQuality {
	score := 1.0
	var issues []string

	labCount := len(res.Values)
	highConf := 0
	nonNull := 0
	for _, v := range res.Values {
		if v.Confidence >= highConfidenceThreshold {
			highConf++
		}
		if v.Reading != nil {
			nonNull++
		}
	}

	if labCount == 0 {
		score -= 0.4
		issues = append(issues, "no structured lab values were extracted")
	} else {
		if highConf*2 < labCount {
			score -= 0.2
			issues = append(issues, "fewer than half of the extracted values are high confidence")
		}
		if float64(nonNull) < 0.7*float64(labCount) {
			score -= 0.2
			issues = append(issues, "many extracted values are missing readings")
		}
	}
	if res.PatientID == "" {
		score -= 0.1
		issues = append(issues, "no patient identifier found")
	}
	if res.ReportDate == "" {
		score -= 0.1
		issues = append(issues, "no report date found")
	}

	if len(issues) == 0 {
		issues = append(issues, "extraction looks complete")
	}

	return ExtractionQuality{
		Score:               utils.Clamp01(score),
		Issues:              issues,
		LabCount:            labCount,
		HighConfidenceCount: highConf,
	}
}
