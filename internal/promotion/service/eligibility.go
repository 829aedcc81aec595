package service

import (
	"fmt"
	"strings"

	promotiondomain "github.com/shulekit/shulekit/internal/promotion/domain"
)

// studentFacts are the measured values eligibility is judged against. A
// student with no academics record evaluates against zeros.
type studentFacts struct {
	AverageGrade      float64
	AttendanceRate    float64
	DisciplinaryCases int
	FeeOutstanding    int64
	// Terminal promotions ignore fee items: a graduating student's arrears
	// are settled administratively, not by holding the student back.
	SkipFeeItems bool
}

// evaluateSets applies each criteria set to the facts. A set passes when all
// its items pass; the student is eligible when any set passes. A class level
// with no sets defaults to eligible so schools without configured rules keep
// their manual promotion flow.
func evaluateSets(sets []promotiondomain.PromotionCriteria, facts studentFacts) (*promotiondomain.EligibilityResult, error) {
	if len(sets) == 0 {
		return &promotiondomain.EligibilityResult{IsEligible: true, DefaultAllowed: true}, nil
	}

	result := &promotiondomain.EligibilityResult{
		Results: make([]promotiondomain.CriteriaResult, 0, len(sets)),
	}
	for i := range sets {
		set := &sets[i]
		items, err := set.Items()
		if err != nil {
			return nil, err
		}

		setResult := promotiondomain.CriteriaResult{
			CriteriaID: set.ID,
			Name:       set.Name,
			Passed:     true,
			Items:      make([]promotiondomain.ItemResult, 0, len(items)),
		}
		for _, item := range items {
			itemResult := evaluateItem(item, facts)
			if !itemResult.Passed {
				setResult.Passed = false
			}
			setResult.Items = append(setResult.Items, itemResult)
		}

		if setResult.Passed && !result.IsEligible {
			result.IsEligible = true
			result.PrimarySetID = set.ID
		}
		result.Results = append(result.Results, setResult)
	}
	return result, nil
}

func evaluateItem(item promotiondomain.CriteriaItem, facts studentFacts) promotiondomain.ItemResult {
	result := promotiondomain.ItemResult{Type: item.Type, Name: item.Name, Passed: true}

	switch item.Type {
	case promotiondomain.CriteriaGrade:
		if facts.AverageGrade < item.Limit {
			result.Passed = false
			result.Reason = fmt.Sprintf("average grade %.1f below required %.1f", facts.AverageGrade, item.Limit)
		}
	case promotiondomain.CriteriaFeeBalance:
		if facts.SkipFeeItems {
			break
		}
		if item.IsRequired {
			if facts.FeeOutstanding > 0 {
				result.Passed = false
				result.Reason = fmt.Sprintf("full payment required, %d outstanding", facts.FeeOutstanding)
			}
		} else if facts.FeeOutstanding > int64(item.Limit) {
			result.Passed = false
			result.Reason = fmt.Sprintf("fee balance %d exceeds limit %d", facts.FeeOutstanding, int64(item.Limit))
		}
	case promotiondomain.CriteriaAttendance:
		if facts.AttendanceRate < item.Limit {
			result.Passed = false
			result.Reason = fmt.Sprintf("attendance %.1f%% below required %.1f%%", facts.AttendanceRate, item.Limit)
		}
	case promotiondomain.CriteriaDisciplinary:
		if item.IsRequired {
			if facts.DisciplinaryCases != 0 {
				result.Passed = false
				result.Reason = fmt.Sprintf("clean record required, %d cases on file", facts.DisciplinaryCases)
			}
		} else if facts.DisciplinaryCases > int(item.Limit) {
			result.Passed = false
			result.Reason = fmt.Sprintf("%d disciplinary cases exceed limit %d", facts.DisciplinaryCases, int(item.Limit))
		}
	case promotiondomain.CriteriaCustom:
		// Nothing measurable to check against. The item still shows up in
		// the result so the school sees it was considered, and a required
		// one blocks automatic promotion until someone signs it off.
		if item.IsRequired {
			result.Passed = false
			result.Reason = fmt.Sprintf("%s needs manual verification", item.Name)
		}
	default:
		result.Passed = false
		result.Reason = "unknown criteria type"
	}
	return result
}

// validateItems rejects malformed criteria before anything is persisted.
func validateItems(items []promotiondomain.CriteriaItem) error {
	if len(items) == 0 {
		return promotiondomain.ErrInvalidCriteria
	}
	for _, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return promotiondomain.ErrInvalidCriteria
		}
		switch item.Type {
		case promotiondomain.CriteriaGrade, promotiondomain.CriteriaAttendance:
			if item.Limit <= 0 || item.Limit > 100 {
				return promotiondomain.ErrInvalidCriteria
			}
		case promotiondomain.CriteriaFeeBalance, promotiondomain.CriteriaDisciplinary, promotiondomain.CriteriaCustom:
			if item.Limit < 0 {
				return promotiondomain.ErrInvalidCriteria
			}
		default:
			return promotiondomain.ErrInvalidCriteria
		}
	}
	return nil
}

// firstFailureReason summarizes a failed evaluation for the exclusion list.
func firstFailureReason(result *promotiondomain.EligibilityResult) string {
	for _, set := range result.Results {
		for _, item := range set.Items {
			if !item.Passed {
				return item.Reason
			}
		}
	}
	return "no criteria set passed"
}
